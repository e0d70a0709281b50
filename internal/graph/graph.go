// Package graph derives the relationship graph drawn for a schema diagram.
package graph

import (
	"fmt"
	"log/slog"

	"github.com/tablewright/tablewright/internal/schema"
)

// Position is a node's top-left corner in diagram coordinates.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeColumn is a column as rendered on a node.
type NodeColumn struct {
	schema.Column
	IsForeignKey bool `json:"is_foreign_key"`
}

// Node is one table in the diagram, keyed by table name.
type Node struct {
	Table    string       `json:"table"`
	Columns  []NodeColumn `json:"columns"`
	Position Position     `json:"position"`
}

// Edge is a foreign key drawn from the referencing column to the referenced
// column. Only the first column pair of a composite key is drawn.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceColumn string `json:"source_column"`
	TargetColumn string `json:"target_column"`
	Constraint   string `json:"constraint"`
}

// Graph is derived wholesale from a set of tables and never patched.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`

	index map[string]int
}

// Build derives the graph for one schema's tables. Foreign keys whose column
// lists are empty after normalization, or that reference a table outside the
// set, are dropped. Edges follow table order, then foreign key order.
func Build(tables []schema.Table) *Graph {
	return BuildWithLogger(tables, nil)
}

// BuildWithLogger is Build with dropped edges reported at debug level.
func BuildWithLogger(tables []schema.Table, logger *slog.Logger) *Graph {
	g := &Graph{
		Nodes: make([]Node, 0, len(tables)),
		Edges: []Edge{},
		index: make(map[string]int, len(tables)),
	}

	for i := range tables {
		t := &tables[i]
		fkCols := t.ForeignKeyColumns()
		cols := make([]NodeColumn, len(t.Columns))
		for j, c := range t.Columns {
			cols[j] = NodeColumn{Column: c, IsForeignKey: fkCols[c.Name]}
		}
		g.index[t.Name] = len(g.Nodes)
		g.Nodes = append(g.Nodes, Node{Table: t.Name, Columns: cols})
	}

	for i := range tables {
		t := &tables[i]
		for ordinal, fk := range t.ForeignKeys {
			local := schema.NormalizeColumns(fk.Columns)
			referenced := schema.NormalizeColumns(fk.ReferencedColumns)
			if len(local) == 0 || len(referenced) == 0 {
				if logger != nil {
					logger.Debug("skipping foreign key without columns", "table", t.Name, "constraint", fk.Name)
				}
				continue
			}
			if _, ok := g.index[fk.ReferencedTable]; !ok {
				if logger != nil {
					logger.Debug("skipping dangling foreign key", "table", t.Name, "constraint", fk.Name, "referenced", fk.ReferencedTable)
				}
				continue
			}
			g.Edges = append(g.Edges, Edge{
				ID:           fmt.Sprintf("%s-%s-%d", t.Name, fk.Name, ordinal),
				Source:       t.Name,
				Target:       fk.ReferencedTable,
				SourceColumn: local[0],
				TargetColumn: referenced[0],
				Constraint:   fk.Name,
			})
		}
	}

	return g
}

// Node returns the node for a table, or nil.
func (g *Graph) Node(table string) *Node {
	i, ok := g.lookup(table)
	if !ok {
		return nil
	}
	return &g.Nodes[i]
}

// Index returns the table's position in the input order.
func (g *Graph) Index(table string) (int, bool) {
	return g.lookup(table)
}

func (g *Graph) lookup(table string) (int, bool) {
	if g.index == nil {
		g.index = make(map[string]int, len(g.Nodes))
		for i, n := range g.Nodes {
			g.index[n.Table] = i
		}
	}
	i, ok := g.index[table]
	return i, ok
}

// InDegree counts, per table, the edges that reference it.
func (g *Graph) InDegree() map[string]int {
	deg := make(map[string]int, len(g.Nodes))
	for _, n := range g.Nodes {
		deg[n.Table] = 0
	}
	for _, e := range g.Edges {
		deg[e.Target]++
	}
	return deg
}

// Neighbors returns the tables joined to table by an edge in either
// direction, in edge order and without duplicates.
func (g *Graph) Neighbors(table string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		if name != table && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, e := range g.Edges {
		if e.Source == table {
			add(e.Target)
		}
		if e.Target == table {
			add(e.Source)
		}
	}
	return out
}

// WithPositions returns a copy of the graph with node positions filled in.
func (g *Graph) WithPositions(pos map[string]Position) *Graph {
	out := &Graph{
		Nodes: make([]Node, len(g.Nodes)),
		Edges: g.Edges,
		index: make(map[string]int, len(g.Nodes)),
	}
	copy(out.Nodes, g.Nodes)
	for i := range out.Nodes {
		out.Nodes[i].Position = pos[out.Nodes[i].Table]
		out.index[out.Nodes[i].Table] = i
	}
	return out
}

// SelfReferences returns the tables that have a foreign key to themselves.
func (g *Graph) SelfReferences() []string {
	seen := make(map[string]bool)
	var result []string
	for _, e := range g.Edges {
		if e.Source == e.Target && !seen[e.Source] {
			seen[e.Source] = true
			result = append(result, e.Source)
		}
	}
	return result
}

// DetectCycles finds reference cycles with a DFS over the edges, ignoring
// self-references. Each cycle is returned as the tables along it.
func (g *Graph) DetectCycles() [][]string {
	var cycles [][]string
	visited := make(map[string]bool)
	inStack := make(map[string]bool)

	adj := make(map[string][]string)
	for _, e := range g.Edges {
		if e.Source == e.Target {
			continue
		}
		adj[e.Source] = append(adj[e.Source], e.Target)
	}

	var path []string
	var dfs func(node string)
	dfs = func(node string) {
		visited[node] = true
		inStack[node] = true
		path = append(path, node)

		for _, next := range adj[node] {
			if !visited[next] {
				dfs(next)
				continue
			}
			if !inStack[next] {
				continue
			}
			for i, n := range path {
				if n == next {
					cycle := make([]string, len(path)-i)
					copy(cycle, path[i:])
					cycles = append(cycles, cycle)
					break
				}
			}
		}

		path = path[:len(path)-1]
		inStack[node] = false
	}

	for _, n := range g.Nodes {
		if !visited[n.Table] {
			dfs(n.Table)
		}
	}

	return cycles
}
