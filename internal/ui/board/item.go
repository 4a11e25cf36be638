package board

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/nailedit/internal/model"
	"github.com/nhle/nailedit/internal/theme"
)

// ItemWrapper wraps a model.Item so it can be used in a bubbles/list.
type ItemWrapper struct {
	Item model.Item
}

// FilterValue returns the string used for fuzzy filtering.
func (w ItemWrapper) FilterValue() string { return w.Item.Title }

// Title returns the item title for the list.
func (w ItemWrapper) Title() string { return w.Item.Title }

// Description returns the first line of the description.
func (w ItemWrapper) Description() string {
	first, _, _ := strings.Cut(strings.TrimSpace(w.Item.Description), "\n")
	return first
}

// ItemDelegate implements list.ItemDelegate for rendering one card per line.
type ItemDelegate struct {
	// focused is false for columns without the cursor; their selection is
	// not highlighted.
	focused bool
}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single item line, truncated to the column width.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	wrapper, ok := item.(ItemWrapper)
	if !ok {
		return
	}

	title := wrapper.Title()
	marker := "•"
	if wrapper.Item.Description != "" {
		marker = "≡"
	}
	line := fmt.Sprintf("%s %s", marker, title)

	width := m.Width() - 3
	if width > 1 && lipgloss.Width(line) > width {
		line = truncate(line, width)
	}

	if d.focused && index == m.Index() {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "…"
}
