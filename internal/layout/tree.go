package layout

import (
	"sort"

	"github.com/tablewright/tablewright/internal/graph"
)

// Tree places tables in levels. Level 0 holds the tables nothing references;
// each following level holds the unvisited tables joined by an edge, in
// either direction, to the level above. Tables never reached form a final
// level. Within a level tables keep their input order and the row is
// centered on x = 0.
type Tree struct{}

func (Tree) Name() string { return StrategyTree }

func (Tree) Layout(g *graph.Graph, opts Options) map[string]graph.Position {
	opts = opts.withDefaults()
	levels := treeLevels(g)

	pos := make(map[string]graph.Position, len(g.Nodes))
	stepX := opts.NodeWidth + opts.HorizontalGap
	stepY := opts.NodeHeight + opts.VerticalGap
	for depth, level := range levels {
		n := float64(len(level))
		width := n*opts.NodeWidth + (n-1)*opts.HorizontalGap
		left := -width / 2
		for i, idx := range level {
			pos[g.Nodes[idx].Table] = graph.Position{
				X: left + float64(i)*stepX,
				Y: float64(depth) * stepY,
			}
		}
	}
	return pos
}

// treeLevels returns node indexes grouped by level.
func treeLevels(g *graph.Graph) [][]int {
	deg := g.InDegree()
	visited := make([]bool, len(g.Nodes))

	var current []int
	for i, n := range g.Nodes {
		if deg[n.Table] == 0 {
			current = append(current, i)
			visited[i] = true
		}
	}

	var levels [][]int
	for len(current) > 0 {
		levels = append(levels, current)

		var next []int
		for _, idx := range current {
			for _, name := range g.Neighbors(g.Nodes[idx].Table) {
				j, ok := g.Index(name)
				if !ok || visited[j] {
					continue
				}
				visited[j] = true
				next = append(next, j)
			}
		}
		sort.Ints(next)
		current = next
	}

	var rest []int
	for i := range g.Nodes {
		if !visited[i] {
			rest = append(rest, i)
		}
	}
	if len(rest) > 0 {
		levels = append(levels, rest)
	}
	return levels
}
