package help

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/nailedit/internal/keys"
	"github.com/nhle/nailedit/internal/model"
	"github.com/nhle/nailedit/internal/theme"
)

// Model is the help overlay: every binding plus the columns of each board.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	width  int
	height int
}

// New creates a help overlay for k.
func New(k *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.ShowAll = true
	m := Model{keys: k, help: h}
	m.SetSize(width, height)
	return m
}

// Update is a no-op; the parent closes the overlay.
func (m Model) Update(tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the overlay.
func (m Model) View() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render("Keyboard Shortcuts")

	content := lipgloss.JoinVertical(lipgloss.Left,
		title,
		m.help.View(m.keys),
		"",
		legend("Tasks", model.KindTask),
		legend("Goals", model.KindGoal),
	)

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(content)
}

// legend lists the columns of a board in order.
func legend(label string, kind model.Kind) string {
	cats := model.Categories(kind)
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = theme.CategoryStyle(c).Render(string(c))
	}
	return theme.HelpStyle.Render(label+":") + " " + strings.Join(names, " | ")
}

// SetSize updates the overlay dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
