package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tablewright/tablewright/internal/state"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the saved workspace",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ws, err := state.Load(cfg.Workspace)
		if err != nil {
			return fmt.Errorf("loading workspace: %w", err)
		}

		if ws.LastConnection == "" {
			fmt.Println("No diagram opened yet.")
		} else {
			fmt.Printf("Last diagram: %s/%s\n", ws.LastConnection, ws.LastSchema)
		}
		strategy := ws.LayoutStrategy
		if strategy == "" {
			strategy = cfg.Diagram.Strategy
		}
		fmt.Printf("Layout:       %s\n", strategy)

		if len(ws.Recent) > 0 {
			fmt.Println()
			fmt.Println("Recent diagrams:")
			for _, r := range ws.Recent {
				fmt.Printf("  %-20s %-20s %s\n", r.ConnectionID, r.Schema, r.OpenedAt.Local().Format(time.DateTime))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
