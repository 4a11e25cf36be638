package model

import (
	"strings"
)

// Kind identifies which board an item belongs to.
type Kind string

const (
	KindTask Kind = "task"
	KindGoal Kind = "goal"
)

// ParseKind converts user input ("task", "tasks", "goal", "goals") into a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "task", "tasks":
		return KindTask, nil
	case "goal", "goals":
		return KindGoal, nil
	}
	return "", &KindError{Value: s}
}

// Plural returns the collection name used in paths and headings.
func (k Kind) Plural() string { return string(k) + "s" }

// HasDescription reports whether items of this kind carry a description.
func (k Kind) HasDescription() bool { return k == KindTask }

// Item is a task or goal as held by the board.
type Item struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Category    Category `json:"category"`
}

// Draft is the payload of a create request.
type Draft struct {
	Title       string
	Description string
	Category    Category
}

// Validate checks the draft against the category enum of kind.
func (d Draft) Validate(kind Kind) error {
	if strings.TrimSpace(d.Title) == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	if !d.Category.ValidFor(kind) {
		return &CategoryError{Kind: kind, Value: string(d.Category)}
	}
	return nil
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Title       *string
	Description *string
	Category    *Category
}

// Validate checks the fields present in the patch.
func (p Patch) Validate(kind Kind) error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	if p.Category != nil && !p.Category.ValidFor(kind) {
		return &CategoryError{Kind: kind, Value: string(*p.Category)}
	}
	return nil
}

// Apply returns a copy of item with the patch applied.
func (p Patch) Apply(item Item) Item {
	if p.Title != nil {
		item.Title = *p.Title
	}
	if p.Description != nil {
		item.Description = *p.Description
	}
	if p.Category != nil {
		item.Category = *p.Category
	}
	return item
}

// PatchFrom builds a patch that sets every editable field from d.
func PatchFrom(d Draft) Patch {
	title, desc, cat := d.Title, d.Description, d.Category
	return Patch{Title: &title, Description: &desc, Category: &cat}
}

// IndexOf returns the position of the item with the given id, or -1.
func IndexOf(items []Item, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}
