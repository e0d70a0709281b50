package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tablewright/tablewright/internal/config"
	"github.com/tablewright/tablewright/internal/dialect"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file interactively",
	Long: `Walk through prompts to create a Tablewright configuration file at
~/.tablewright/tablewright.yaml with one connection. Passwords may be given
as ${ENV:NAME}, ${VAULT:path#key} or ${AWS_SM:secret#key} references.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reader := bufio.NewReader(os.Stdin)

		fmt.Println("Tablewright Configuration Setup")
		fmt.Println("===============================")
		fmt.Println()

		engineName := prompt(reader, "Database engine (postgresql/mysql/mariadb/sqlite/oracle)", "postgresql")
		engine, err := dialect.Parse(engineName)
		if err != nil {
			return err
		}

		conn := config.ConnectionConfig{
			ID:     prompt(reader, "Connection id", "main"),
			Engine: string(engine),
		}
		if engine == dialect.SQLite {
			conn.Path = prompt(reader, "Database file", "./app.db")
		} else {
			conn.Host = prompt(reader, "Host", "localhost")
			portStr := prompt(reader, "Port", defaultPort(engine))
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return fmt.Errorf("invalid port: %s", portStr)
			}
			conn.Port = port
			conn.Database = prompt(reader, "Database name", "")
			conn.Schema = prompt(reader, "Schema (leave empty for default)", "")
			conn.Username = prompt(reader, "Username", "")
			conn.Password = prompt(reader, "Password", "")
		}
		fmt.Println()

		cfg := &config.Config{
			Version:     config.CurrentVersion,
			Connections: []config.ConnectionConfig{conn},
		}
		if problems := cfg.Validate(); len(problems) > 0 {
			return fmt.Errorf("invalid connection: %s", strings.Join(problems, "; "))
		}

		cfgPath := config.ExpandHome(config.DefaultPath)
		if cfgFile != "" {
			cfgPath = cfgFile
		}
		if err := cfg.Save(cfgPath); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}

		fmt.Printf("Config written to %s\n", cfgPath)
		fmt.Println()
		fmt.Println("Next steps:")
		fmt.Printf("  tablewright tables %s    — List the tables\n", conn.ID)
		fmt.Printf("  tablewright diagram %s   — Print the diagram\n", conn.ID)
		fmt.Println("  tablewright serve        — Start the web UI")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func prompt(reader *bufio.Reader, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("  %s [%s]: ", label, defaultVal)
	} else {
		fmt.Printf("  %s: ", label)
	}
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultVal
	}
	return input
}

func defaultPort(e dialect.Engine) string {
	switch e {
	case dialect.Oracle:
		return "1521"
	case dialect.MySQL, dialect.MariaDB:
		return "3306"
	default:
		return "5432"
	}
}
