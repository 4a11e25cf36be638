package login

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/nailedit/internal/theme"
)

// SubmitMsg carries the entered credentials.
type SubmitMsg struct {
	Email    string
	Password string
}

// CancelMsg is dispatched when the user aborts the login form.
type CancelMsg struct{}

// credentials holds form values on the heap so huh's Value() pointers stay
// valid across Bubble Tea model copies.
type credentials struct {
	email    string
	password string
}

// Model is the login screen.
type Model struct {
	form   *huh.Form
	creds  *credentials
	err    string
	width  int
	height int
}

// New creates an inactive login form.
func New(width, height int) Model {
	return Model{creds: &credentials{}, width: width, height: height}
}

// Active reports whether the form is showing.
func (m Model) Active() bool { return m.form != nil }

// Start shows the form. The email of a previous attempt is kept.
func (m *Model) Start() tea.Cmd {
	m.creds.password = ""
	m.form = m.build()
	return m.form.Init()
}

// Fail shows err and lets the user try again.
func (m *Model) Fail(err error) tea.Cmd {
	m.err = err.Error()
	return m.Start()
}

// Close hides the form.
func (m *Model) Close() {
	m.form = nil
	m.err = ""
	m.creds.password = ""
}

// Update handles messages for the login form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		out := SubmitMsg{Email: strings.TrimSpace(m.creds.email), Password: m.creds.password}
		m.form = nil
		return m, func() tea.Msg { return out }
	case huh.StateAborted:
		m.Close()
		return m, func() tea.Msg { return CancelMsg{} }
	}
	return m, cmd
}

// View renders the login form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render("Log in")

	content := title + "\n" + m.form.View()
	if m.err != "" {
		content += "\n" + lipgloss.NewStyle().Foreground(theme.ColorRed).Render(m.err)
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) build() *huh.Form {
	w := m.width - 4
	if w < 30 {
		w = 30
	}
	if w > 60 {
		w = 60
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Value(&m.creds.email).
				Validate(required("Email")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.creds.password).
				Validate(required("Password")),
		),
	).WithWidth(w)
}

func required(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}
