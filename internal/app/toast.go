package app

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/nailedit/internal/model"
	"github.com/nhle/nailedit/internal/theme"
)

// toastExpiredMsg clears the notification with the given id, unless a
// newer one has replaced it.
type toastExpiredMsg struct {
	id int
}

// notify shows a notification and schedules its removal.
func (m *Model) notify(level model.NotificationLevel, text string) tea.Cmd {
	m.toastSeq++
	id := m.toastSeq
	m.toast = &model.Notification{
		ID:        id,
		Level:     level,
		Message:   text,
		CreatedAt: time.Now(),
	}
	return tea.Tick(m.toastDuration, func(time.Time) tea.Msg {
		return toastExpiredMsg{id: id}
	})
}

func (m *Model) expireToast(id int) {
	if m.toast != nil && m.toast.ID == id {
		m.toast = nil
	}
}

func (m Model) renderToast() string {
	if m.toast == nil {
		return ""
	}
	return theme.ToastStyle(m.toast.Level).Render(m.toast.Message)
}
