// Package tui holds the terminal prompts used by the CLI.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tablewright/tablewright/internal/executor"
)

// confirmWord is what the user types to run a dangerous statement.
const confirmWord = "yes"

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("196")).
			Padding(0, 1)
	sqlStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// ConfirmModel asks the user to approve one pending operation.
type ConfirmModel struct {
	pending   *executor.PendingOperation
	input     textinput.Model
	confirmed bool
	done      bool
	statusMsg string
	width     int
}

// NewConfirmModel creates a prompt for p.
func NewConfirmModel(p *executor.PendingOperation) ConfirmModel {
	in := textinput.New()
	in.Placeholder = confirmWord
	in.CharLimit = 16
	in.Focus()

	return ConfirmModel{pending: p, input: in, width: 80}
}

func (m ConfirmModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m ConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.done = true
			return m, tea.Quit

		case "enter":
			if strings.EqualFold(strings.TrimSpace(m.input.Value()), confirmWord) {
				m.confirmed = true
				m.done = true
				return m, tea.Quit
			}
			m.statusMsg = fmt.Sprintf("Type %q to run the statement, or esc to cancel.", confirmWord)
			m.input.SetValue("")
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m ConfirmModel) View() string {
	if m.done {
		return ""
	}

	var body strings.Builder
	body.WriteString(titleStyle.Render("Confirmation required: "+m.pending.DangerousType) + "\n\n")
	body.WriteString(m.pending.Message + "\n\n")
	body.WriteString(sqlStyle.Render(m.pending.SQL))

	width := m.width - 4
	if width < 20 {
		width = 20
	}

	var b strings.Builder
	b.WriteString(boxStyle.Width(width).Render(body.String()) + "\n\n")
	b.WriteString(fmt.Sprintf("  Type %q to confirm: %s\n", confirmWord, m.input.View()))
	if m.statusMsg != "" {
		b.WriteString("\n  " + errStyle.Render(m.statusMsg) + "\n")
	}
	b.WriteString("\n  " + dimStyle.Render("enter: submit • esc: cancel") + "\n")
	return b.String()
}

// Confirmed reports whether the user approved the operation.
func (m ConfirmModel) Confirmed() bool { return m.confirmed }

// Done reports whether the prompt has finished.
func (m ConfirmModel) Done() bool { return m.done }

// Confirm shows the prompt for p and reports whether the user approved it.
func Confirm(p *executor.PendingOperation) (bool, error) {
	finalModel, err := tea.NewProgram(NewConfirmModel(p)).Run()
	if err != nil {
		return false, fmt.Errorf("running confirmation prompt: %w", err)
	}
	return finalModel.(ConfirmModel).Confirmed(), nil
}
