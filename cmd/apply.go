package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tablewright/tablewright/internal/ddl"
	"github.com/tablewright/tablewright/internal/diagram"
	"github.com/tablewright/tablewright/internal/executor"
	"github.com/tablewright/tablewright/internal/tui"
)

var (
	applyNoInput  bool
	applyNullable bool
	applyDefault  string
	applyCascade  bool
)

var applyCmd = &cobra.Command{
	Use:   "apply <connection> <schema> <intent> [args...]",
	Short: "Turn a diagram edit into DDL and run it",
	Long: `Synthesize and run one edit against a schema. Intents:

  create-table <table>
  add-column   <table> <column> <type> [--nullable] [--default EXPR]
  drop-column  <table> <column>
  drop-table   <table> [--cascade]
  connect      <source-table> <source-column> <target-table> <target-column>

Destructive statements show their warning in the terminal and run only after
you type "yes" there. With --no-input they are cancelled instead.`,
	Args: cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		eng, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer eng.Close(context.Background())

		s, err := eng.Diagram(ctx, args[0], args[1])
		if err != nil {
			return err
		}

		out, err := runIntent(ctx, s, args[2], args[3:])
		if err != nil {
			return err
		}

		prompt := tui.Confirm
		if applyNoInput {
			prompt = declinePending
		}
		out, err = resolvePending(ctx, s, out, prompt)
		if err != nil {
			return err
		}
		if out == nil {
			fmt.Println("Cancelled; nothing was run.")
			return nil
		}

		fmt.Printf("Executed: %s\n", out.SQL)
		if out.Result != nil && out.Result.RowsAffected > 0 {
			fmt.Printf("Rows affected: %d\n", out.Result.RowsAffected)
		}
		if out.RefreshError != nil {
			fmt.Printf("Warning: the statement ran but the diagram could not be reloaded: %v\n", out.RefreshError)
		}
		return nil
	},
}

// resolvePending settles an outcome awaiting confirmation. The pending
// warning is handed to prompt and the statement is confirmed only when prompt
// approves it; otherwise the operation is cancelled and nil is returned.
// Outcomes that need no confirmation pass through unchanged.
func resolvePending(ctx context.Context, s *diagram.Session, out *executor.Outcome, prompt func(*executor.PendingOperation) (bool, error)) (*executor.Outcome, error) {
	if out.Status != executor.StatusConfirmationRequired {
		return out, nil
	}
	approved, err := prompt(out.Pending)
	if err != nil {
		return nil, err
	}
	if !approved {
		if err := s.Cancel(ctx, out.Pending.ID); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return s.Confirm(ctx, out.Pending.ID)
}

func declinePending(p *executor.PendingOperation) (bool, error) {
	fmt.Printf("%s\n%s\n", p.Message, p.SQL)
	return false, nil
}

// runIntent submits the edit named by intent.
func runIntent(ctx context.Context, s *diagram.Session, intent string, args []string) (*executor.Outcome, error) {
	need := func(n int, usage string) error {
		if len(args) != n {
			return fmt.Errorf("usage: apply <connection> <schema> %s %s", intent, usage)
		}
		return nil
	}

	switch intent {
	case "create-table":
		if err := need(1, "<table>"); err != nil {
			return nil, err
		}
		return s.CreateTable(ctx, args[0])
	case "add-column":
		if err := need(3, "<table> <column> <type>"); err != nil {
			return nil, err
		}
		return s.AddColumn(ctx, args[0], ddl.ColumnSpec{
			Name:     args[1],
			Type:     args[2],
			Nullable: applyNullable,
			Default:  applyDefault,
		})
	case "drop-column":
		if err := need(2, "<table> <column>"); err != nil {
			return nil, err
		}
		return s.DropColumn(ctx, args[0], args[1])
	case "drop-table":
		if err := need(1, "<table>"); err != nil {
			return nil, err
		}
		return s.DropTable(ctx, args[0], applyCascade)
	case "connect":
		if err := need(4, "<source-table> <source-column> <target-table> <target-column>"); err != nil {
			return nil, err
		}
		return s.Connect(ctx, args[0], args[1], args[2], args[3])
	}
	return nil, fmt.Errorf("unknown intent %q (expected create-table, add-column, drop-column, drop-table or connect)", intent)
}

func init() {
	applyCmd.Flags().BoolVar(&applyNoInput, "no-input", false, "cancel destructive statements instead of prompting")
	applyCmd.Flags().BoolVar(&applyNullable, "nullable", false, "add-column: allow NULL values")
	applyCmd.Flags().StringVar(&applyDefault, "default", "", "add-column: DEFAULT expression")
	applyCmd.Flags().BoolVar(&applyCascade, "cascade", false, "drop-table: also drop dependent objects")
	rootCmd.AddCommand(applyCmd)
}
