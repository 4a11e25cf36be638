package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"

	"github.com/nhle/nailedit/internal/form"
	"github.com/nhle/nailedit/internal/keys"
	"github.com/nhle/nailedit/internal/model"
	"github.com/nhle/nailedit/internal/reconcile"
	"github.com/nhle/nailedit/internal/session"
	"github.com/nhle/nailedit/internal/store"
	appsync "github.com/nhle/nailedit/internal/sync"
	"github.com/nhle/nailedit/internal/theme"
	"github.com/nhle/nailedit/internal/ui"
	"github.com/nhle/nailedit/internal/ui/board"
	"github.com/nhle/nailedit/internal/ui/command"
	"github.com/nhle/nailedit/internal/ui/detail"
	helpview "github.com/nhle/nailedit/internal/ui/help"
	"github.com/nhle/nailedit/internal/ui/itemform"
	"github.com/nhle/nailedit/internal/ui/login"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewBoard ViewState = iota
	ViewDetail
	ViewForm
	ViewLogin
	ViewHelp
	ViewCommand
)

// Page indexes.
const (
	PageTasks = iota
	PageGoals
)

var pageTitles = []string{"Tasks", "Goals"}

// Sessions is the part of session.Manager the dashboard needs.
type Sessions interface {
	Current() session.Session
	Login(ctx context.Context, email, password string) (session.Session, error)
	Logout() error
}

// Options are the collaborators of the root model.
type Options struct {
	Tasks    *reconcile.Reconciler
	Goals    *reconcile.Reconciler
	Sessions Sessions
	Prefs    *store.Preferences
	Display  model.DisplayConfig
	Logger   *log.Logger

	// Poller reloads remote collections in the background. Optional.
	Poller *appsync.Poller
}

// page is one board together with its collection and dialog.
type page struct {
	rec     *reconcile.Reconciler
	board   board.Model
	form    itemform.Model
	loading bool
	// version is the collection version last copied into the board.
	version uint64
}

// sync copies the collection into the board when it changed since the last
// copy.
func (p *page) sync() tea.Cmd {
	v := p.rec.Version()
	if v == p.version {
		return nil
	}
	p.version = v
	return p.board.SetItems(p.rec.Items())
}

// Model is the root Bubble Tea model that manages view routing,
// layout, and the two boards.
type Model struct {
	currentView  ViewState
	previousView ViewState
	activePage   int
	pages        [2]page

	layout   ui.Layout
	keys     *keys.KeyMap
	detail   detail.Model
	helpView helpview.Model
	login    login.Model
	palette  command.Model

	sessions Sessions
	poller   *appsync.Poller
	prefs    *store.Preferences
	log      *log.Logger

	toast         *model.Notification
	toastSeq      int
	toastDuration time.Duration
	ready         bool
}

// New creates the root model. Saved preferences are applied here: the theme
// (unless the configuration forces one) and the focused goals column.
func New(opts Options) Model {
	k := keys.DefaultKeyMap()
	logger := opts.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}

	m := Model{
		currentView:   ViewBoard,
		keys:          k,
		layout:        ui.NewLayout(80, 24),
		detail:        detail.New(k, 80, 24),
		helpView:      helpview.New(k, 80, 24),
		login:         login.New(80, 24),
		palette:       command.New(80, 24),
		sessions:      opts.Sessions,
		poller:        opts.Poller,
		prefs:         opts.Prefs,
		log:           logger,
		toastDuration: time.Duration(opts.Display.ToastSec) * time.Second,
	}
	if m.toastDuration <= 0 {
		m.toastDuration = 3 * time.Second
	}

	for i, rec := range []*reconcile.Reconciler{opts.Tasks, opts.Goals} {
		m.pages[i] = page{
			rec:     rec,
			board:   board.New(rec.Kind(), k, 80, 24),
			form:    itemform.New(form.New(rec.Kind()), 80, 24),
			loading: true,
		}
		m.pages[i].version = rec.Version()
		m.pages[i].board.SetItems(rec.Items())
	}

	ctx := context.Background()
	switch opts.Display.DarkMode {
	case "true":
		theme.SetDark(true)
	case "false":
		theme.SetDark(false)
	default:
		if dark, ok := m.prefs.DarkMode(ctx); ok {
			theme.SetDark(dark)
		}
	}
	m.pages[PageGoals].board.Focus(m.prefs.SelectedCategory(ctx, model.KindGoal))

	return m
}

// Init loads both boards and starts background polling.
func (m Model) Init() tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(m.pages)+1)
	for i := range m.pages {
		cmds = append(cmds, loadItems(m.pages[i].rec))
	}
	if m.poller != nil {
		cmds = append(cmds, m.poller.Start())
	}
	return tea.Batch(cmds...)
}

// quit stops the poller and exits.
func (m Model) quit() tea.Cmd {
	if m.poller != nil {
		m.poller.Stop()
	}
	return tea.Quit
}

// reloadAll loads every collection that has no change waiting for the
// repository.
func (m *Model) reloadAll() []tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(m.pages))
	for i := range m.pages {
		if m.pages[i].rec.Busy() {
			continue
		}
		m.pages[i].loading = true
		cmds = append(cmds, loadItems(m.pages[i].rec))
	}
	return cmds
}

// pageOf returns the page index holding kind.
func pageOf(kind model.Kind) int {
	if kind == model.KindGoal {
		return PageGoals
	}
	return PageTasks
}

// refresh copies the reconciler's collection into the board of kind and
// keeps an open detail view of that kind current.
func (m *Model) refresh(kind model.Kind) tea.Cmd {
	p := &m.pages[pageOf(kind)]
	cmd := p.sync()
	if shown, ok := m.detail.Item(); ok && m.detail.Kind() == kind {
		if cur, found := p.rec.Get(shown.ID); found && cur != shown {
			m.detail.SetItem(kind, cur)
		}
	}
	return cmd
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.Width, m.layout.ContentHeight()
		for i := range m.pages {
			m.pages[i].board.SetSize(w, h)
			m.pages[i].form.SetSize(w, h)
		}
		m.detail.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.login.SetSize(w, h)
		m.palette.SetSize(w, h)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case toastExpiredMsg:
		m.expireToast(msg.id)
		return m, nil

	case appsync.SyncResultMsg:
		next := m.poller.WaitForNextResult()
		if msg.Skipped || msg.Error != nil {
			return m, next
		}
		return m, tea.Batch(m.refresh(msg.Kind), next)

	case itemsLoadedMsg:
		m.pages[pageOf(msg.kind)].loading = false
		cmd := m.refresh(msg.kind)
		if msg.err != nil {
			toast := m.notify(model.NotifyError, describeError("Could not load "+msg.kind.Plural(), msg.err))
			return m, tea.Batch(cmd, toast)
		}
		return m, cmd

	case board.SelectedMsg:
		m.previousView = m.currentView
		m.currentView = ViewDetail
		m.detail.SetItem(msg.Kind, msg.Item)
		return m, nil

	case board.ReorderMsg:
		return m, reorderItems(m.pages[pageOf(msg.Kind)].rec, msg.Category, msg.ActiveID, msg.OverID)

	case itemsReorderedMsg:
		cmd := m.refresh(msg.kind)
		m.pages[pageOf(msg.kind)].board.Select(msg.activeID)
		if msg.err != nil {
			toast := m.notify(model.NotifyError, describeError("Could not save order", msg.err))
			return m, tea.Batch(cmd, toast)
		}
		return m, cmd

	case board.FocusMsg:
		if msg.Kind == model.KindGoal {
			return m, saveSelectedCategory(m.prefs, m.log, msg.Category)
		}
		return m, nil

	case detail.BackMsg:
		m.currentView = ViewBoard
		m.detail.Clear()
		return m, nil

	case detail.EditMsg:
		m.activePage = pageOf(msg.Kind)
		item, ok := m.pages[m.activePage].rec.Get(msg.Item.ID)
		if !ok {
			toast := m.notify(model.NotifyError, capitalize(string(msg.Kind))+" no longer exists")
			return m, toast
		}
		cmd := m.openForm(&item)
		return m, cmd

	case detail.DeleteMsg:
		return m, removeItem(m.pages[pageOf(msg.Kind)].rec, msg.ID)

	case itemform.SubmitMsg:
		return m, saveItem(m.pages[pageOf(msg.Kind)].rec, msg.Command)

	case itemform.CancelMsg:
		m.currentView = ViewBoard
		return m, nil

	case itemSavedMsg:
		return m.handleSaved(msg)

	case itemRemovedMsg:
		cmd := m.refresh(msg.kind)
		if msg.err != nil {
			toast := m.notify(model.NotifyError, describeError("Could not delete "+string(msg.kind), msg.err))
			return m, tea.Batch(cmd, toast)
		}
		if shown, ok := m.detail.Item(); ok && shown.ID == msg.id {
			m.detail.Clear()
			m.currentView = ViewBoard
		}
		toast := m.notify(model.NotifySuccess, capitalize(string(msg.kind))+" deleted")
		return m, tea.Batch(cmd, toast)

	case login.SubmitMsg:
		return m, loginCmd(m.sessions, msg.Email, msg.Password)

	case login.CancelMsg:
		m.currentView = ViewBoard
		return m, nil

	case loggedInMsg:
		if msg.err != nil {
			cmd := m.login.Fail(errors.New(describeError("Login failed", msg.err)))
			return m, cmd
		}
		m.login.Close()
		m.currentView = ViewBoard
		cmds := append(m.reloadAll(), m.notify(model.NotifySuccess, "Logged in as "+msg.session.Username))
		return m, tea.Batch(cmds...)

	case command.CommandMsg:
		m.currentView = ViewBoard
		cmd := m.runCommand(msg.Name)
		return m, cmd

	case command.CancelMsg:
		m.currentView = ViewBoard
		return m, nil

	case loggedOutMsg:
		if msg.err != nil {
			toast := m.notify(model.NotifyError, describeError("Logout failed", msg.err))
			return m, toast
		}
		cmds := append(m.reloadAll(), m.notify(model.NotifyInfo, "Logged out"))
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, m.quit()
		}
		if m.currentView == ViewHelp {
			if key.Matches(msg, m.keys.Help) || key.Matches(msg, m.keys.Back) {
				m.currentView = m.previousView
			}
			return m, nil
		}
		if m.currentView == ViewBoard {
			if handled, next, cmd := m.handleBoardKey(msg); handled {
				return next, cmd
			}
		}
		if m.currentView == ViewDetail && key.Matches(msg, m.keys.Help) {
			m.previousView = m.currentView
			m.currentView = ViewHelp
			return m, nil
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// handleBoardKey processes the keys that only apply while a board is shown.
func (m Model) handleBoardKey(msg tea.KeyMsg) (bool, tea.Model, tea.Cmd) {
	p := &m.pages[m.activePage]

	switch {
	case key.Matches(msg, m.keys.Quit):
		return true, m, m.quit()

	case key.Matches(msg, m.keys.Command):
		m.currentView = ViewCommand
		cmd := m.palette.Open()
		return true, m, cmd

	case key.Matches(msg, m.keys.Help):
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return true, m, nil

	case key.Matches(msg, m.keys.SwitchPage):
		m.activePage = (m.activePage + 1) % len(m.pages)
		return true, m, nil

	case key.Matches(msg, m.keys.New):
		cmd := m.openForm(nil)
		return true, m, cmd

	case key.Matches(msg, m.keys.Edit):
		item, ok := p.board.SelectedItem()
		if !ok {
			return true, m, nil
		}
		cmd := m.openForm(&item)
		return true, m, cmd

	case key.Matches(msg, m.keys.Delete):
		item, ok := p.board.SelectedItem()
		if !ok {
			return true, m, nil
		}
		return true, m, removeItem(p.rec, item.ID)

	case key.Matches(msg, m.keys.Reload):
		cmds := m.reloadAll()
		return true, m, tea.Batch(cmds...)

	case key.Matches(msg, m.keys.Theme):
		return true, m, m.setDark(!theme.IsDark())

	case key.Matches(msg, m.keys.Login):
		if m.sessions != nil && m.sessions.Current().Token != "" {
			return true, m, logoutCmd(m.sessions)
		}
		cmd := m.startLogin()
		return true, m, cmd
	}
	return false, m, nil
}

// runCommand executes a palette command from the board.
func (m *Model) runCommand(name command.Name) tea.Cmd {
	switch name {
	case command.Tasks:
		m.activePage = PageTasks
	case command.Goals:
		m.activePage = PageGoals
	case command.NewItem:
		return m.openForm(nil)
	case command.Reload:
		return tea.Batch(m.reloadAll()...)
	case command.Login:
		if m.sessions != nil {
			if s := m.sessions.Current(); s.Token != "" {
				return m.notify(model.NotifyInfo, "Already logged in as "+s.Username)
			}
		}
		return m.startLogin()
	case command.Logout:
		if m.sessions == nil || m.sessions.Current().Token == "" {
			return m.notify(model.NotifyInfo, "Not logged in")
		}
		return logoutCmd(m.sessions)
	case command.Dark:
		return m.setDark(true)
	case command.Light:
		return m.setDark(false)
	case command.Help:
		m.previousView = ViewBoard
		m.currentView = ViewHelp
	case command.Quit:
		return m.quit()
	}
	return nil
}

func (m *Model) startLogin() tea.Cmd {
	if m.sessions == nil {
		return m.notify(model.NotifyError, "Login is not configured")
	}
	m.previousView = m.currentView
	m.currentView = ViewLogin
	return m.login.Start()
}

func (m *Model) setDark(dark bool) tea.Cmd {
	theme.SetDark(dark)
	return saveDarkMode(m.prefs, m.log, dark)
}

// openForm shows the dialog of the active page, for a new item when item
// is nil.
func (m *Model) openForm(item *model.Item) tea.Cmd {
	p := &m.pages[m.activePage]
	var cmd tea.Cmd
	if item == nil {
		cmd = p.form.StartAdd()
	} else {
		cmd = p.form.StartEdit(*item)
	}
	if !p.form.Active() {
		return nil
	}
	m.previousView = m.currentView
	m.currentView = ViewForm
	return cmd
}

func (m Model) handleSaved(msg itemSavedMsg) (tea.Model, tea.Cmd) {
	p := &m.pages[pageOf(msg.kind)]
	refresh := p.sync()
	formCmd := p.form.Resolve(msg.err)

	if msg.err != nil {
		toast := m.notify(model.NotifyError, describeError("Could not save "+string(msg.kind), msg.err))
		return m, tea.Batch(refresh, formCmd, toast)
	}

	m.currentView = ViewBoard
	m.detail.Clear()
	if msg.item.ID != "" {
		p.board.Focus(msg.item.Category)
		p.board.Select(msg.item.ID)
	}
	verb := "created"
	if msg.op == form.OpUpdate {
		verb = "updated"
	}
	toast := m.notify(model.NotifySuccess, capitalize(string(msg.kind))+" "+verb)
	return m, tea.Batch(refresh, formCmd, toast)
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewBoard:
		p := &m.pages[m.activePage]
		p.board, cmd = p.board.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewForm:
		p := &m.pages[m.activePage]
		p.form, cmd = p.form.Update(msg)
	case ViewLogin:
		m.login, cmd = m.login.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.palette, cmd = m.palette.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	user := "guest"
	if m.sessions != nil {
		if s := m.sessions.Current(); s.Username != "" {
			user = s.Username
		}
	}
	header := m.layout.RenderHeader(pageTitles, m.activePage, user)
	statusBar := m.layout.RenderStatusBar(m.keyHints(), m.renderToast())

	return m.layout.RenderWithFrame(header, m.renderContent(), statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewBoard:
		return m.pages[m.activePage].board.View()
	case ViewDetail:
		return m.detail.View()
	case ViewForm:
		return m.pages[m.activePage].form.View()
	case ViewLogin:
		return m.login.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.palette.View()
	default:
		return ""
	}
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewDetail:
		return "esc back | e edit | d delete | j/k scroll"
	case ViewForm:
		if m.pages[m.activePage].form.Submitting() {
			return "saving..."
		}
		return "enter submit | esc cancel"
	case ViewLogin:
		return "enter submit | esc cancel"
	case ViewCommand:
		return "enter run | tab complete | esc cancel"
	default:
		if m.pages[m.activePage].loading {
			return "loading..."
		}
		hints := "q quit | ? help | : command | n new | e edit | d delete | tab switch | K/J move"
		if m.syncFailed() {
			hints = "sync failed | " + hints
		}
		return hints
	}
}

// syncFailed reports whether the last background reload of any collection
// failed.
func (m Model) syncFailed() bool {
	if m.poller == nil {
		return false
	}
	for _, s := range m.poller.GetStatuses() {
		if s.State == appsync.SyncError {
			return true
		}
	}
	return false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
