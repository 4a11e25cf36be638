package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/nailedit/internal/theme"
)

// Layout manages the terminal layout dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentHeight returns the height available between header and status bar.
func (l Layout) ContentHeight() int {
	h := l.Height - l.HeaderHeight - l.StatusBarHeight
	if h < 0 {
		return 0
	}
	return h
}

// RenderHeader renders the page tabs on the left and the user on the right.
func (l Layout) RenderHeader(pages []string, active int, user string) string {
	tabs := make([]string, len(pages))
	for i, p := range pages {
		if i == active {
			tabs[i] = "[" + p + "]"
		} else {
			tabs[i] = " " + p + " "
		}
	}
	left := theme.HeaderStyle.Render("nailedit  " + strings.Join(tabs, " "))
	right := theme.HeaderStyle.Render(user)
	return joinSpread(l.Width, left, right, theme.HeaderStyle)
}

// RenderStatusBar renders the hints on the left and a notification on the
// right.
func (l Layout) RenderStatusBar(hints, notice string) string {
	left := theme.StatusBarStyle.Render(hints)
	if notice == "" {
		return joinSpread(l.Width, left, "", theme.StatusBarStyle)
	}
	right := theme.StatusBarStyle.Render(notice)
	return joinSpread(l.Width, left, right, theme.StatusBarStyle)
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, content area, and status bar.
func (l Layout) RenderWithFrame(header, content, statusBar string) string {
	content = lipgloss.NewStyle().Height(l.ContentHeight()).Render(content)
	return lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
}

// joinSpread places left and right at opposite edges, filling the gap with
// the bar background.
func joinSpread(width int, left, right string, bar lipgloss.Style) string {
	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	filler := lipgloss.NewStyle().
		Width(gap).
		Background(bar.GetBackground()).
		Render("")
	return lipgloss.JoinHorizontal(lipgloss.Top, left, filler, right)
}
