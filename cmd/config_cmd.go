package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tablewright/tablewright/internal/config"
	"github.com/tablewright/tablewright/internal/dialect"
	"github.com/tablewright/tablewright/internal/typemap"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and validate the Tablewright configuration and list the column types offered per engine.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current config (secrets masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		fmt.Println("Current configuration:")
		fmt.Println()
		fmt.Println("  Connections:")
		for _, c := range cfg.Connections {
			fmt.Printf("    %s (%s)\n", c.ID, c.Engine)
			if c.Path != "" {
				fmt.Printf("      Path:       %s\n", c.Path)
			} else {
				fmt.Printf("      Host:       %s:%d\n", c.Host, c.Port)
				fmt.Printf("      Database:   %s\n", c.Database)
				fmt.Printf("      Username:   %s\n", c.Username)
				fmt.Printf("      Password:   %s\n", maskSecret(c.Password))
			}
			fmt.Printf("      Schema:     %s\n", c.DefaultSchema())
		}
		fmt.Println()
		fmt.Printf("  Diagram layout:   %s\n", cfg.Diagram.Strategy)
		fmt.Printf("  DDL defaults:     %s\n", cfg.DDL.DefaultPolicy)
		fmt.Printf("  History backend:  %s\n", cfg.History.Backend)
		if cfg.Export.Bucket != "" {
			fmt.Printf("  Export:           s3://%s/%s\n", cfg.Export.Bucket, cfg.Export.Prefix)
		}
		fmt.Printf("  Server port:      %d\n", cfg.Server.Port)
		fmt.Printf("  Log level:        %s\n", cfg.Logging.Level)
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("config invalid: %w", err)
		}

		if problems := cfg.Validate(); len(problems) > 0 {
			fmt.Println("Validation errors:")
			for _, p := range problems {
				fmt.Printf("  - %s\n", p)
			}
			return fmt.Errorf("%d validation error(s)", len(problems))
		}

		fmt.Println("Configuration is valid.")
		return nil
	},
}

var configTypesCmd = &cobra.Command{
	Use:   "types <engine>",
	Short: "List the column types offered for an engine",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := dialect.Parse(args[0])
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TYPE\tCATEGORY\tLENGTH")
		for _, ti := range typemap.Catalog(engine) {
			length := ""
			if ti.TakesLength {
				length = "yes"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", ti.Name, ti.Category, length)
		}
		return tw.Flush()
	},
}

func maskSecret(s string) string {
	if strings.HasPrefix(s, "${") {
		return s
	}
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configTypesCmd)
	rootCmd.AddCommand(configCmd)
}
