package app

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"

	"github.com/nhle/nailedit/internal/form"
	"github.com/nhle/nailedit/internal/gateway"
	"github.com/nhle/nailedit/internal/model"
	"github.com/nhle/nailedit/internal/reconcile"
	"github.com/nhle/nailedit/internal/session"
	"github.com/nhle/nailedit/internal/store"
)

// itemsLoadedMsg is sent after a reconciler reloads from its repository.
type itemsLoadedMsg struct {
	kind model.Kind
	err  error
}

// itemSavedMsg is sent after a submitted form has been applied.
type itemSavedMsg struct {
	kind model.Kind
	op   form.Op
	item model.Item
	err  error
}

// itemRemovedMsg is sent after a delete completes.
type itemRemovedMsg struct {
	kind model.Kind
	id   string
	err  error
}

// itemsReorderedMsg is sent after a move within a column completes.
type itemsReorderedMsg struct {
	kind     model.Kind
	activeID string
	moved    bool
	err      error
}

// loggedInMsg carries the outcome of a login attempt.
type loggedInMsg struct {
	session session.Session
	err     error
}

// loggedOutMsg is sent after the session has been torn down.
type loggedOutMsg struct {
	err error
}

func loadItems(rec *reconcile.Reconciler) tea.Cmd {
	return func() tea.Msg {
		err := rec.Load(context.Background())
		return itemsLoadedMsg{kind: rec.Kind(), err: err}
	}
}

// saveItem applies a form command. A superseded update means a newer edit
// of the same item is in flight, so the form is done with it.
func saveItem(rec *reconcile.Reconciler, command form.Command) tea.Cmd {
	return func() tea.Msg {
		item, err := command.Apply(context.Background(), rec)
		if errors.Is(err, reconcile.ErrSuperseded) {
			err = nil
		}
		return itemSavedMsg{kind: rec.Kind(), op: command.Op, item: item, err: err}
	}
}

func removeItem(rec *reconcile.Reconciler, id string) tea.Cmd {
	return func() tea.Msg {
		err := rec.Remove(context.Background(), id)
		return itemRemovedMsg{kind: rec.Kind(), id: id, err: err}
	}
}

func reorderItems(rec *reconcile.Reconciler, c model.Category, activeID, overID string) tea.Cmd {
	return func() tea.Msg {
		moved, err := rec.Reorder(context.Background(), c, activeID, overID)
		return itemsReorderedMsg{kind: rec.Kind(), activeID: activeID, moved: moved, err: err}
	}
}

func loginCmd(sessions Sessions, email, password string) tea.Cmd {
	return func() tea.Msg {
		s, err := sessions.Login(context.Background(), email, password)
		return loggedInMsg{session: s, err: err}
	}
}

func logoutCmd(sessions Sessions) tea.Cmd {
	return func() tea.Msg {
		return loggedOutMsg{err: sessions.Logout()}
	}
}

// saveSelectedCategory persists the focused goals column. Failures are
// logged only; the preference is cosmetic.
func saveSelectedCategory(prefs *store.Preferences, logger *log.Logger, c model.Category) tea.Cmd {
	return func() tea.Msg {
		if err := prefs.SetSelectedCategory(context.Background(), c); err != nil {
			logger.WithError(err).WithField("category", c).Warn("saving selected category")
		}
		return nil
	}
}

func saveDarkMode(prefs *store.Preferences, logger *log.Logger, dark bool) tea.Cmd {
	return func() tea.Msg {
		if err := prefs.SetDarkMode(context.Background(), dark); err != nil {
			logger.WithError(err).Warn("saving dark mode")
		}
		return nil
	}
}

// describeError turns an operation failure into notification text.
func describeError(action string, err error) string {
	if gateway.IsUnauthorized(err) {
		return fmt.Sprintf("%s: not authorized, press L to log in", action)
	}
	return fmt.Sprintf("%s: %v", action, err)
}
