package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tablewright/tablewright/internal/selection"
)

var tablesMatch string

var tablesCmd = &cobra.Command{
	Use:   "tables <connection> [schema]",
	Short: "List the tables of a schema",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		eng, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer eng.Close(context.Background())

		tables, err := eng.Tables(ctx, args[0], schemaArg(args, 1))
		if err != nil {
			return err
		}

		tables = selection.FilterSummaries(tables, tablesMatch)

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SCHEMA\tTABLE")
		for _, t := range tables {
			fmt.Fprintf(tw, "%s\t%s\n", t.Schema, t.Name)
		}
		return tw.Flush()
	},
}

func init() {
	tablesCmd.Flags().StringVar(&tablesMatch, "match", "", `only list tables matching a glob such as "order_*"`)
	rootCmd.AddCommand(tablesCmd)
}
