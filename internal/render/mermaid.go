// Package render writes diagrams in text formats other tools can draw.
package render

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tablewright/tablewright/internal/graph"
)

var nonWord = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// Mermaid renders g as a Mermaid erDiagram. Each node becomes an entity
// listing its columns with PK/FK markers; each edge becomes a relationship
// from the referenced table to the referencing one, labelled with the
// constraint name.
func Mermaid(g *graph.Graph) string {
	var sb strings.Builder
	sb.WriteString("erDiagram\n")

	nullableFK := make(map[string]bool)
	for _, n := range g.Nodes {
		fmt.Fprintf(&sb, "    %s {\n", ident(n.Table))
		for _, c := range n.Columns {
			fmt.Fprintf(&sb, "        %s %s", typeWord(c.DataType), ident(c.Name))
			if k := keys(c); k != "" {
				sb.WriteString(" " + k)
			}
			sb.WriteString("\n")
			if c.IsForeignKey && c.Nullable {
				nullableFK[n.Table+"."+c.Name] = true
			}
		}
		sb.WriteString("    }\n")
	}

	for _, e := range g.Edges {
		// a nullable referencing column means the parent is optional
		rel := "||--o{"
		if nullableFK[e.Source+"."+e.SourceColumn] {
			rel = "|o--o{"
		}
		fmt.Fprintf(&sb, "    %s %s %s : %q\n", ident(e.Target), rel, ident(e.Source), e.Constraint)
	}
	return sb.String()
}

func keys(c graph.NodeColumn) string {
	switch {
	case c.IsPrimaryKey && c.IsForeignKey:
		return "PK, FK"
	case c.IsPrimaryKey:
		return "PK"
	case c.IsForeignKey:
		return "FK"
	}
	return ""
}

// ident reduces a name to the characters Mermaid accepts unquoted.
func ident(name string) string {
	s := strings.Trim(nonWord.ReplaceAllString(name, "_"), "_")
	if s == "" {
		return "_"
	}
	return s
}

// typeWord turns a SQL type such as "character varying(255)" into a single
// Mermaid attribute type token.
func typeWord(t string) string {
	if strings.TrimSpace(t) == "" {
		return "unknown"
	}
	return ident(t)
}
