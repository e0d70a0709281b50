package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tablewright/tablewright/internal/diagram"
	"github.com/tablewright/tablewright/internal/graph"
	"github.com/tablewright/tablewright/internal/render"
	"github.com/tablewright/tablewright/internal/schema"
	"github.com/tablewright/tablewright/internal/selection"
)

var diagramLayout string
var diagramFormat string
var diagramMatch string

var diagramCmd = &cobra.Command{
	Use:   "diagram <connection> [schema]",
	Short: "Print the diagram of a schema",
	Long: `Fetch every table of the schema, build the relationship graph and lay it
out. --format text prints positions and relationships, mermaid prints an
erDiagram and json prints the view the web UI draws.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch diagramFormat {
		case "text", "mermaid", "json":
		default:
			return fmt.Errorf("unknown format %q (expected text, mermaid or json)", diagramFormat)
		}

		ctx := cmd.Context()
		eng, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer eng.Close(context.Background())

		s, err := eng.Diagram(ctx, args[0], schemaArg(args, 1))
		if err != nil {
			return err
		}
		view := s.View()
		if diagramLayout != "" {
			if view, err = s.SetLayout(diagramLayout); err != nil {
				return err
			}
		}

		switch diagramFormat {
		case "mermaid":
			fmt.Print(render.Mermaid(s.Graph()))
			return nil
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(view)
		}
		writeDiagramText(os.Stdout, view, diagramMatch)
		return nil
	},
}

// writeDiagramText prints the view. A non-empty match limits the tables and
// relationships printed; positions stay those of the full layout.
func writeDiagramText(w io.Writer, v *diagram.View, match string) {
	tables := selection.FilterTables(v.Tables, match)
	fmt.Fprintf(w, "%s/%s (%s, %s layout)\n", v.ConnectionID, v.Schema, v.Engine, v.Layout)
	fmt.Fprintln(w, schema.Summary(tables))
	fmt.Fprintln(w)

	for _, n := range v.Nodes {
		if !selection.Match(n.Table, match) {
			continue
		}
		fmt.Fprintf(w, "  %-30s (%6.0f, %6.0f)  %d columns\n", n.Table, n.Position.X, n.Position.Y, len(n.Columns))
	}
	var edges []graph.Edge
	for _, e := range v.Edges {
		if selection.Match(e.Source, match) && selection.Match(e.Target, match) {
			edges = append(edges, e)
		}
	}
	var dangling []selection.DanglingRef
	if match != "" {
		dangling = selection.FindDanglingReferences(tables)
	}
	if len(edges) > 0 || len(dangling) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Relationships:")
		for _, e := range edges {
			fmt.Fprintf(w, "  %s.%s -> %s.%s  [%s]\n", e.Source, e.SourceColumn, e.Target, e.TargetColumn, e.Constraint)
		}
		for _, d := range dangling {
			fmt.Fprintf(w, "  %s -> %s  [%s, outside selection]\n", d.Table, d.ReferencedTable, d.ForeignKey)
		}
	}
	for _, c := range v.Cycles {
		fmt.Fprintf(w, "\nCycle: %s\n", strings.Join(c, " -> "))
	}
	if len(v.SelfReferences) > 0 {
		fmt.Fprintf(w, "\nSelf-referencing: %s\n", strings.Join(v.SelfReferences, ", "))
	}
}

func init() {
	diagramCmd.Flags().StringVar(&diagramLayout, "layout", "", "layout strategy: tree or circular (default: diagram.strategy)")
	diagramCmd.Flags().StringVar(&diagramFormat, "format", "text", "output format: text, mermaid or json")
	diagramCmd.Flags().StringVar(&diagramMatch, "match", "", "text format only: print tables matching a glob")
	rootCmd.AddCommand(diagramCmd)
}
