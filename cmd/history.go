package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history <connection>",
	Short: "Show recently submitted statements",
	Long: `Show statements submitted through diagrams on a connection, newest first.
The memory backend only remembers statements from the current process;
configure history.backend as postgres or mongodb to keep them.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		eng, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer eng.Close(context.Background())

		if _, err := eng.ResolveSchema(args[0], ""); err != nil {
			return err
		}
		entries, err := eng.History(ctx, args[0], historyLimit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No history recorded.")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TIME\tSCHEMA\tSTATUS\tSQL\tERROR")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				e.ExecutedAt.Local().Format(time.DateTime), e.Schema, e.Status, e.SQL, e.Error)
		}
		return tw.Flush()
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of entries (0 for all)")
	rootCmd.AddCommand(historyCmd)
}
