package itemform

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/nailedit/internal/form"
	"github.com/nhle/nailedit/internal/model"
	"github.com/nhle/nailedit/internal/theme"
)

// SubmitMsg is dispatched when the form passes validation. The receiver
// applies the command and reports back through Resolve.
type SubmitMsg struct {
	Kind    model.Kind
	Command form.Command
}

// CancelMsg is dispatched when the user aborts the form.
type CancelMsg struct {
	Kind model.Kind
}

// Model renders a form.Session with huh. Inputs are bound to the session's
// fields, which live on the heap and so survive Bubble Tea model copies.
type Model struct {
	session *form.Session
	form    *huh.Form
	// submitting is set once a command has been sent and cleared by
	// Resolve. Messages are ignored meanwhile.
	submitting bool
	width      int
	height     int
}

// New creates a form for the given session.
func New(session *form.Session, width, height int) Model {
	return Model{session: session, width: width, height: height}
}

// Session returns the underlying dialog state.
func (m Model) Session() *form.Session { return m.session }

// Active reports whether the form is showing.
func (m Model) Active() bool { return m.session.IsOpen() && m.form != nil }

// Submitting reports whether a command is waiting for Resolve.
func (m Model) Submitting() bool { return m.submitting }

// StartAdd opens an empty form.
func (m *Model) StartAdd() tea.Cmd {
	if err := m.session.OpenAdd(); err != nil {
		return nil
	}
	m.form = m.build()
	return m.form.Init()
}

// StartEdit opens the form preloaded from item.
func (m *Model) StartEdit(item model.Item) tea.Cmd {
	if err := m.session.OpenEdit(item); err != nil {
		return nil
	}
	m.form = m.build()
	return m.form.Init()
}

// Resolve reports the result of applying the submitted command. A failure
// reopens the inputs with the entered values so the user can retry.
func (m *Model) Resolve(err error) tea.Cmd {
	m.submitting = false
	m.session.Resolve(err)
	if err == nil {
		m.form = nil
		return nil
	}
	m.form = m.build()
	return m.form.Init()
}

// Update handles messages for the form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil || m.submitting {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		command, err := m.session.Submit()
		if err != nil {
			m.form = m.build()
			return m, m.form.Init()
		}
		m.submitting = true
		kind := m.session.Kind()
		return m, func() tea.Msg { return SubmitMsg{Kind: kind, Command: command} }
	case huh.StateAborted:
		m.session.Cancel()
		m.form = nil
		kind := m.session.Kind()
		return m, func() tea.Msg { return CancelMsg{Kind: kind} }
	}

	return m, cmd
}

// View renders the form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	verb := "New"
	if m.session.State() == form.Editing {
		verb = "Edit"
	}
	title := fmt.Sprintf("%s %s", verb, m.session.Kind())

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render(title) + "\n" + m.form.View()
	if m.submitting {
		content += "\n" + theme.HelpStyle.Render("Saving...")
	}
	if err := m.session.LastError(); err != nil {
		content += "\n" + lipgloss.NewStyle().Foreground(theme.ColorRed).Render(err.Error())
	}

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) build() *huh.Form {
	fields := m.session.Fields()
	kind := m.session.Kind()

	inputs := []huh.Field{
		huh.NewInput().
			Title("Title").
			Placeholder("What needs to be done?").
			Value(&fields.Title).
			Validate(validateRequired("Title")),
	}
	if kind.HasDescription() {
		inputs = append(inputs,
			huh.NewText().
				Title("Description").
				Placeholder("Optional details (markdown)...").
				Value(&fields.Description),
		)
	}

	cats := model.Categories(kind)
	opts := make([]huh.Option[model.Category], len(cats))
	for i, c := range cats {
		opts[i] = huh.NewOption(string(c), c)
	}
	inputs = append(inputs,
		huh.NewSelect[model.Category]().
			Title("Category").
			Options(opts...).
			Value(&fields.Category),
	)

	return huh.NewForm(
		huh.NewGroup(inputs...),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 4
	if h < 10 {
		h = 10
	}
	return h
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}
