package confirm

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// Model is the bubbletea model for the "type yes to continue" gate.
type Model struct {
	message  string
	input    textinput.Model
	retry    bool
	accepted bool
	done     bool
}

// NewModel creates a confirmation model showing message.
func NewModel(message string) Model {
	in := textinput.New()
	in.Placeholder = "yes / no"
	in.CharLimit = 8
	in.Focus()

	return Model{message: message, input: in}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c", "esc":
			m.done = true
			return m, tea.Quit

		case "enter":
			switch strings.ToLower(strings.TrimSpace(m.input.Value())) {
			case "yes":
				m.accepted = true
				m.done = true
				return m, tea.Quit
			case "no":
				m.done = true
				return m, tea.Quit
			}
			m.retry = true
			m.input.SetValue("")
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("dilla") + "\n\n")
	b.WriteString(warnStyle.Render("  "+m.message) + "\n\n")
	b.WriteString("  " + m.input.View() + "\n\n")
	if m.retry {
		b.WriteString(errStyle.Render("  Please type 'yes' or 'no'.") + "\n")
	}
	b.WriteString(dimStyle.Render("  enter to answer • esc to cancel") + "\n")
	return b.String()
}

// Accepted reports whether the operator typed yes.
func (m Model) Accepted() bool {
	return m.accepted
}

// Done returns true once the operator answered or cancelled.
func (m Model) Done() bool {
	return m.done
}

// Prompt asks for confirmation on a terminal.
type Prompt struct {
	In  io.Reader
	Out io.Writer
}

// Confirm runs the prompt and reports whether the operator accepted.
func (p *Prompt) Confirm(ctx context.Context, message string) (bool, error) {
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if p.In != nil {
		opts = append(opts, tea.WithInput(p.In))
	}
	if p.Out != nil {
		opts = append(opts, tea.WithOutput(p.Out))
	}

	final, err := tea.NewProgram(NewModel(message), opts...).Run()
	if err != nil {
		return false, fmt.Errorf("running confirmation prompt: %w", err)
	}
	return final.(Model).Accepted(), nil
}
