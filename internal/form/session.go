// Package form holds the state of the add/edit dialog independently of how
// it is rendered.
package form

import (
	"context"
	"errors"
	"strings"

	"github.com/nhle/nailedit/internal/model"
)

// State is the dialog state.
type State int

const (
	Closed State = iota
	Adding
	Editing
)

func (s State) String() string {
	switch s {
	case Adding:
		return "adding"
	case Editing:
		return "editing"
	default:
		return "closed"
	}
}

var (
	// ErrAlreadyOpen is returned when opening a dialog that is already open.
	ErrAlreadyOpen = errors.New("form is already open")
	// ErrClosed is returned when submitting a closed dialog.
	ErrClosed = errors.New("form is not open")
)

// Fields are the editable values. They live on the heap so a renderer can
// bind inputs to them directly.
type Fields struct {
	Title       string
	Description string
	Category    model.Category
}

// Op is what a submitted form asks for.
type Op int

const (
	OpCreate Op = iota
	OpUpdate
)

// Command is the result of a valid submission.
type Command struct {
	Op    Op
	ID    string
	Draft model.Draft
}

// Committer applies commands. *reconcile.Reconciler satisfies it.
type Committer interface {
	Create(ctx context.Context, d model.Draft) (model.Item, error)
	Update(ctx context.Context, id string, p model.Patch) (model.Item, error)
}

// Apply runs the command against c.
func (c Command) Apply(ctx context.Context, to Committer) (model.Item, error) {
	if c.Op == OpUpdate {
		return to.Update(ctx, c.ID, model.PatchFrom(c.Draft))
	}
	return to.Create(ctx, c.Draft)
}

// Session is the dialog for one kind of item.
type Session struct {
	kind    model.Kind
	state   State
	target  model.Item
	fields  *Fields
	lastErr error
}

// New returns a closed session for kind.
func New(kind model.Kind) *Session {
	s := &Session{kind: kind, fields: &Fields{}}
	s.reset()
	return s
}

// Kind returns the kind of item edited.
func (s *Session) Kind() model.Kind { return s.kind }

// State returns the current state.
func (s *Session) State() State { return s.state }

// IsOpen reports whether the dialog is showing.
func (s *Session) IsOpen() bool { return s.state != Closed }

// Target returns the item being edited, if any.
func (s *Session) Target() (model.Item, bool) {
	return s.target, s.state == Editing
}

// Fields returns the bound field values.
func (s *Session) Fields() *Fields { return s.fields }

// LastError returns the error of the last failed submission.
func (s *Session) LastError() error { return s.lastErr }

// OpenAdd opens an empty dialog with the first category preselected.
func (s *Session) OpenAdd() error {
	if s.IsOpen() {
		return ErrAlreadyOpen
	}
	s.reset()
	s.state = Adding
	return nil
}

// OpenEdit opens the dialog preloaded from item.
func (s *Session) OpenEdit(item model.Item) error {
	if s.IsOpen() {
		return ErrAlreadyOpen
	}
	s.reset()
	s.state = Editing
	s.target = item
	s.fields.Title = item.Title
	s.fields.Description = item.Description
	s.fields.Category = item.Category
	return nil
}

// Cancel closes the dialog and discards edits.
func (s *Session) Cancel() {
	s.state = Closed
	s.reset()
}

// Submit validates the fields and returns the command to apply. On a
// validation failure the dialog stays open and the error is recorded.
func (s *Session) Submit() (Command, error) {
	if !s.IsOpen() {
		return Command{}, ErrClosed
	}
	d := model.Draft{
		Title:       strings.TrimSpace(s.fields.Title),
		Description: s.fields.Description,
		Category:    s.fields.Category,
	}
	if !s.kind.HasDescription() {
		d.Description = ""
	}
	if err := d.Validate(s.kind); err != nil {
		s.lastErr = err
		return Command{}, err
	}
	if s.state == Editing {
		return Command{Op: OpUpdate, ID: s.target.ID, Draft: d}, nil
	}
	return Command{Op: OpCreate, Draft: d}, nil
}

// Resolve reports the outcome of applying the submitted command. Success
// closes and resets the dialog; failure keeps it open for a retry.
func (s *Session) Resolve(err error) {
	if err != nil {
		s.lastErr = err
		return
	}
	s.state = Closed
	s.reset()
}

// SubmitTo submits and applies the command synchronously.
func (s *Session) SubmitTo(ctx context.Context, c Committer) (model.Item, error) {
	cmd, err := s.Submit()
	if err != nil {
		return model.Item{}, err
	}
	item, err := cmd.Apply(ctx, c)
	s.Resolve(err)
	return item, err
}

// reset restores default field values in place so bound inputs stay valid.
func (s *Session) reset() {
	s.target = model.Item{}
	s.lastErr = nil
	s.fields.Title = ""
	s.fields.Description = ""
	s.fields.Category = model.DefaultCategory(s.kind)
}
