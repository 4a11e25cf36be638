package detail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/nailedit/internal/keys"
	"github.com/nhle/nailedit/internal/model"
	"github.com/nhle/nailedit/internal/theme"
)

// BackMsg signals the parent to navigate back to the board.
type BackMsg struct{}

// EditMsg asks the parent to open the edit form for the shown item.
type EditMsg struct {
	Kind model.Kind
	Item model.Item
}

// DeleteMsg asks the parent to delete the shown item.
type DeleteMsg struct {
	Kind model.Kind
	ID   string
}

// Model is the item detail view component.
type Model struct {
	kind     model.Kind
	item     *model.Item
	viewport viewport.Model
	keys     *keys.KeyMap
	width    int
	height   int
}

// New creates a new detail view model.
func New(k *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     k,
		width:    width,
		height:   height,
	}
}

// Kind returns the kind of the shown item.
func (m Model) Kind() model.Kind { return m.kind }

// Item returns the item shown, if any.
func (m Model) Item() (model.Item, bool) {
	if m.item == nil {
		return model.Item{}, false
	}
	return *m.item, true
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, m.keys.Back):
			return m, func() tea.Msg { return BackMsg{} }

		case key.Matches(keyMsg, m.keys.Edit):
			if m.item != nil {
				out := EditMsg{Kind: m.kind, Item: *m.item}
				return m, func() tea.Msg { return out }
			}

		case key.Matches(keyMsg, m.keys.Delete):
			if m.item != nil {
				out := DeleteMsg{Kind: m.kind, ID: m.item.ID}
				return m, func() tea.Msg { return out }
			}
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the detail view.
func (m Model) View() string {
	if m.item == nil {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("Nothing selected")
	}
	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Render(m.viewport.View())
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.item == nil {
		return ""
	}
	it := m.item

	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(it.Title))

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	sections = append(sections,
		fmt.Sprintf("%s %s", metaStyle.Render("Category:"), theme.CategoryStyle(it.Category).Render(string(it.Category))),
		metaStyle.Render("ID: "+it.ID),
	)

	if !m.kind.HasDescription() {
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(min(m.width-8, 80), 1)))
	sections = append(sections, "", separator, "")

	body := renderMarkdown(it.Description, m.width-8, theme.IsDark())
	if body == "" {
		body = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("No description")
	}
	sections = append(sections, body)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetItem updates the item being displayed and re-renders the content.
func (m *Model) SetItem(kind model.Kind, item model.Item) {
	m.kind = kind
	m.item = &item
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoTop()
}

// Clear removes the shown item.
func (m *Model) Clear() {
	m.item = nil
	m.viewport.SetContent("")
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width - 6
	m.viewport.Height = height - 4
	if m.item != nil {
		m.viewport.SetContent(m.renderContent())
	}
}
