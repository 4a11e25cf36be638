package board

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/nailedit/internal/keys"
	"github.com/nhle/nailedit/internal/model"
	"github.com/nhle/nailedit/internal/projection"
	"github.com/nhle/nailedit/internal/theme"
)

// SelectedMsg is sent when the user opens an item.
type SelectedMsg struct {
	Kind model.Kind
	Item model.Item
}

// ReorderMsg asks for activeID to take the place of overID within a column.
type ReorderMsg struct {
	Kind     model.Kind
	Category model.Category
	ActiveID string
	OverID   string
}

// FocusMsg is sent when the focused column changes.
type FocusMsg struct {
	Kind     model.Kind
	Category model.Category
}

// Model shows one column per category of a kind.
type Model struct {
	kind    model.Kind
	keys    *keys.KeyMap
	columns []list.Model
	cats    []model.Category
	items   []model.Item
	focus   int
	width   int
	height  int
}

// New creates an empty board for kind.
func New(kind model.Kind, k *keys.KeyMap, width, height int) Model {
	m := Model{
		kind:   kind,
		keys:   k,
		cats:   model.Categories(kind),
		width:  width,
		height: height,
	}
	m.columns = make([]list.Model, len(m.cats))
	for i, c := range m.cats {
		l := list.New([]list.Item{}, ItemDelegate{focused: i == 0}, 0, 0)
		l.Title = string(c)
		l.SetShowStatusBar(false)
		l.SetShowHelp(false)
		l.SetFilteringEnabled(false)
		l.DisableQuitKeybindings()
		l.Styles.Title = theme.CategoryStyle(c)
		m.columns[i] = l
	}
	m.resize()
	return m
}

// Kind returns the kind of item shown.
func (m Model) Kind() model.Kind { return m.kind }

// FocusedCategory returns the category of the focused column.
func (m Model) FocusedCategory() model.Category { return m.cats[m.focus] }

// Focus moves the cursor to the column of c. Unknown categories are ignored.
func (m *Model) Focus(c model.Category) {
	for i, cat := range m.cats {
		if cat == c {
			m.setFocus(i)
			return
		}
	}
}

// SelectedItem returns the item under the cursor.
func (m Model) SelectedItem() (model.Item, bool) {
	w, ok := m.columns[m.focus].SelectedItem().(ItemWrapper)
	if !ok {
		return model.Item{}, false
	}
	return w.Item, true
}

// SetItems replaces the board contents, keeping the cursor on the same item
// where it still exists.
func (m *Model) SetItems(items []model.Item) tea.Cmd {
	m.items = items
	var cmds []tea.Cmd
	for i, col := range projection.Columns(items, m.kind) {
		prev, _ := m.columns[i].SelectedItem().(ItemWrapper)
		listItems := make([]list.Item, len(col.Items))
		sel := -1
		for j, it := range col.Items {
			listItems[j] = ItemWrapper{Item: it}
			if it.ID == prev.Item.ID {
				sel = j
			}
		}
		cmds = append(cmds, m.columns[i].SetItems(listItems))
		if sel >= 0 {
			m.columns[i].Select(sel)
		}
		m.columns[i].Title = fmt.Sprintf("%s (%d)", col.Category, len(col.Items))
	}
	return tea.Batch(cmds...)
}

// Select moves the cursor to the item with the given id in the focused column.
func (m *Model) Select(id string) {
	for j, li := range m.columns[m.focus].Items() {
		if w, ok := li.(ItemWrapper); ok && w.Item.ID == id {
			m.columns[m.focus].Select(j)
			return
		}
	}
}

// Update handles messages for the board.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Left):
		if m.focus > 0 {
			m.setFocus(m.focus - 1)
			return m, m.focusCmd()
		}
		return m, nil

	case key.Matches(keyMsg, m.keys.Right):
		if m.focus < len(m.columns)-1 {
			m.setFocus(m.focus + 1)
			return m, m.focusCmd()
		}
		return m, nil

	case key.Matches(keyMsg, m.keys.MoveUp):
		return m, m.reorderCmd(-1)

	case key.Matches(keyMsg, m.keys.MoveDown):
		return m, m.reorderCmd(1)

	case key.Matches(keyMsg, m.keys.Select):
		item, ok := m.SelectedItem()
		if !ok {
			return m, nil
		}
		kind := m.kind
		return m, func() tea.Msg { return SelectedMsg{Kind: kind, Item: item} }
	}

	// Navigation keys go to the focused list.
	var cmd tea.Cmd
	m.columns[m.focus], cmd = m.columns[m.focus].Update(msg)
	return m, cmd
}

// reorderCmd asks to swap the selected item with its neighbour at offset.
func (m Model) reorderCmd(offset int) tea.Cmd {
	col := m.columns[m.focus]
	idx := col.Index()
	items := col.Items()
	if idx < 0 || idx+offset < 0 || idx+offset >= len(items) {
		return nil
	}
	active, ok1 := items[idx].(ItemWrapper)
	over, ok2 := items[idx+offset].(ItemWrapper)
	if !ok1 || !ok2 {
		return nil
	}
	msg := ReorderMsg{
		Kind:     m.kind,
		Category: m.cats[m.focus],
		ActiveID: active.Item.ID,
		OverID:   over.Item.ID,
	}
	return func() tea.Msg { return msg }
}

func (m Model) focusCmd() tea.Cmd {
	msg := FocusMsg{Kind: m.kind, Category: m.cats[m.focus]}
	return func() tea.Msg { return msg }
}

func (m *Model) setFocus(i int) {
	m.focus = i
	for j := range m.columns {
		m.columns[j].SetDelegate(ItemDelegate{focused: j == i})
	}
}

// View renders the columns side by side under a summary line.
func (m Model) View() string {
	colWidth := m.columnWidth()
	rendered := make([]string, len(m.columns))
	for i, col := range m.columns {
		style := theme.ColumnStyle
		if i == m.focus {
			style = theme.FocusedColumnStyle
		}
		body := col.View()
		if len(col.Items()) == 0 {
			body = col.Styles.Title.Render(col.Title) + "\n\n" +
				theme.HelpStyle.Render("nothing here")
		}
		rendered[i] = style.Width(colWidth).Render(body)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.summary(),
		lipgloss.JoinHorizontal(lipgloss.Top, rendered...),
	)
}

// summary shows per-column counts and, for tasks, the share of done items.
func (m Model) summary() string {
	counts := projection.Counts(m.items, m.kind)
	parts := make([]string, 0, len(m.cats)+1)
	for _, c := range m.cats {
		parts = append(parts, theme.CategoryStyle(c).Render(fmt.Sprintf("%s: %d", c, counts[c])))
	}
	if m.kind == model.KindTask {
		done := projection.Share(m.items, model.CategoryDone)
		parts = append(parts, progressBar(done, 20))
	}
	return lipgloss.NewStyle().Padding(0, 1).Render(strings.Join(parts, "  "))
}

func progressBar(percent, width int) string {
	filled := percent * width / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return lipgloss.NewStyle().Foreground(theme.ColorGreen).Render(bar) +
		fmt.Sprintf(" %d%% done", percent)
}

// SetSize updates the board dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.resize()
}

func (m Model) columnWidth() int {
	n := len(m.columns)
	w := m.width/n - 4
	if w < 12 {
		w = 12
	}
	return w
}

func (m *Model) resize() {
	h := m.height - 3
	if h < 3 {
		h = 3
	}
	for i := range m.columns {
		m.columns[i].SetSize(m.columnWidth(), h)
	}
}
