package gateway

import (
	"context"
	"fmt"
	"net/url"

	log "github.com/sirupsen/logrus"

	"github.com/nhle/nailedit/internal/model"
)

// wireItem is an item as the service encodes it. Servers backed by MongoDB
// answer with _id; others with id.
type wireItem struct {
	MongoID     string `json:"_id,omitempty"`
	ID          string `json:"id,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
}

func (w wireItem) id() string {
	if w.MongoID != "" {
		return w.MongoID
	}
	return w.ID
}

// taskPayload is the body of POST/PUT for tasks.
type taskPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// goalPayload is the body of POST/PUT for goals, which have no description.
type goalPayload struct {
	Title    string `json:"title"`
	Category string `json:"category"`
}

// Items is the remote repository for one kind of item. It implements
// reconcile.Repository.
type Items struct {
	client *Client
	kind   model.Kind
	path   string
	log    *log.Logger
}

// NewItems returns a repository for kind rooted at path (e.g. /api/tasks).
func NewItems(c *Client, kind model.Kind, path string) *Items {
	return &Items{client: c, kind: kind, path: path, log: c.log}
}

// Kind returns the kind of item served by this repository.
func (r *Items) Kind() model.Kind { return r.kind }

// List fetches the full collection. Every item must carry a known category.
func (r *Items) List(ctx context.Context) ([]model.Item, error) {
	var wire []wireItem
	if err := r.client.Get(ctx, r.path, &wire); err != nil {
		return nil, fmt.Errorf("listing %s: %w", r.kind.Plural(), err)
	}

	items := make([]model.Item, 0, len(wire))
	for _, w := range wire {
		item, err := r.decode(w, true)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", r.kind.Plural(), err)
		}
		if item.ID == "" {
			return nil, fmt.Errorf("listing %s: item %q has no id", r.kind.Plural(), item.Title)
		}
		items = append(items, item)
	}
	r.log.WithFields(log.Fields{"kind": r.kind, "count": len(items)}).Debug("listed items")
	return items, nil
}

// Create sends a create request and returns the item the service answered
// with. Fields missing from the response are left empty.
func (r *Items) Create(ctx context.Context, d model.Draft) (model.Item, error) {
	var wire wireItem
	if err := r.client.Post(ctx, r.path, r.payload(d.Title, d.Description, d.Category), &wire); err != nil {
		return model.Item{}, fmt.Errorf("creating %s: %w", r.kind, err)
	}
	item, err := r.decode(wire, false)
	if err != nil {
		return model.Item{}, fmt.Errorf("creating %s: %w", r.kind, err)
	}
	return item, nil
}

// Update sends the full editable state of item and returns the (possibly
// partial) item the service answered with.
func (r *Items) Update(ctx context.Context, item model.Item) (model.Item, error) {
	var wire wireItem
	path := r.itemPath(item.ID)
	if err := r.client.Put(ctx, path, r.payload(item.Title, item.Description, item.Category), &wire); err != nil {
		return model.Item{}, fmt.Errorf("updating %s %s: %w", r.kind, item.ID, err)
	}
	out, err := r.decode(wire, false)
	if err != nil {
		return model.Item{}, fmt.Errorf("updating %s %s: %w", r.kind, item.ID, err)
	}
	if out.ID == "" {
		out.ID = item.ID
	}
	return out, nil
}

// Delete removes the item with the given id.
func (r *Items) Delete(ctx context.Context, id string) error {
	if err := r.client.Delete(ctx, r.itemPath(id)); err != nil {
		return fmt.Errorf("deleting %s %s: %w", r.kind, id, err)
	}
	return nil
}

func (r *Items) itemPath(id string) string {
	return r.path + "/" + url.PathEscape(id)
}

func (r *Items) payload(title, description string, c model.Category) interface{} {
	if r.kind.HasDescription() {
		return taskPayload{Title: title, Description: description, Category: string(c)}
	}
	return goalPayload{Title: title, Category: string(c)}
}

// decode validates the category at the boundary. Create and update
// responses may omit it; list responses may not.
func (r *Items) decode(w wireItem, requireCategory bool) (model.Item, error) {
	item := model.Item{
		ID:          w.id(),
		Title:       w.Title,
		Description: w.Description,
	}
	if !r.kind.HasDescription() {
		item.Description = ""
	}
	if w.Category == "" && !requireCategory {
		return item, nil
	}
	c, err := model.ParseCategory(r.kind, w.Category)
	if err != nil {
		return model.Item{}, err
	}
	item.Category = c
	return item, nil
}
