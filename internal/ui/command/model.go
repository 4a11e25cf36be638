// Package command is the ":" palette of the dashboard.
package command

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/nailedit/internal/theme"
)

// Name identifies a palette command.
type Name string

const (
	Tasks   Name = "tasks"
	Goals   Name = "goals"
	NewItem Name = "new"
	Reload  Name = "reload"
	Login   Name = "login"
	Logout  Name = "logout"
	Dark    Name = "dark"
	Light   Name = "light"
	Help    Name = "help"
	Quit    Name = "quit"
)

// Names lists every command in the order they are suggested.
var Names = []Name{Tasks, Goals, NewItem, Reload, Login, Logout, Dark, Light, Help, Quit}

// aliases map short forms to commands.
var aliases = map[string]Name{
	"t": Tasks,
	"g": Goals,
	"q": Quit,
	"r": Reload,
}

// CommandMsg is emitted when the user runs a known command.
type CommandMsg struct {
	Name Name
}

// CancelMsg is emitted when the palette is dismissed.
type CancelMsg struct{}

// Parse resolves input to a command.
func Parse(input string) (Name, error) {
	s := strings.ToLower(strings.TrimSpace(input))
	if n, ok := aliases[s]; ok {
		return n, nil
	}
	for _, n := range Names {
		if string(n) == s {
			return n, nil
		}
	}
	return "", fmt.Errorf("unknown command %q", strings.TrimSpace(input))
}

// Model is the command palette view.
type Model struct {
	input  textinput.Model
	err    error
	width  int
	height int
}

// New creates a new command palette model.
func New(width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "type a command..."
	ti.Prompt = ": "
	ti.ShowSuggestions = true
	suggestions := make([]string, len(Names))
	for i, n := range Names {
		suggestions[i] = string(n)
	}
	ti.SetSuggestions(suggestions)

	m := Model{input: ti}
	m.SetSize(width, height)
	return m
}

// Open clears the palette and focuses the input.
func (m *Model) Open() tea.Cmd {
	m.input.Reset()
	m.err = nil
	return m.input.Focus()
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "esc":
			m.input.Blur()
			return m, func() tea.Msg { return CancelMsg{} }
		case "enter":
			if strings.TrimSpace(m.input.Value()) == "" {
				return m, nil
			}
			name, err := Parse(m.input.Value())
			if err != nil {
				m.err = err
				return m, nil
			}
			m.input.Reset()
			m.input.Blur()
			return m, func() tea.Msg { return CommandMsg{Name: name} }
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the command palette.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	parts := []string{titleStyle.Render("Command Palette"), m.input.View()}
	if m.err != nil {
		parts = append(parts, lipgloss.NewStyle().Foreground(theme.ColorRed).MarginTop(1).Render(m.err.Error()))
	}

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// SetSize updates the command palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}
