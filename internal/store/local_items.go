package store

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"github.com/nhle/nailedit/internal/model"
)

// LocalItems keeps one kind of item as a JSON array under a single key.
// It serves as the repository for offline goals and implements both
// reconcile.Repository and reconcile.Orderer.
type LocalItems struct {
	kv   KV
	key  string
	kind model.Kind
	log  *log.Logger
	now  func() time.Time

	mu sync.Mutex
}

// NewLocalItems returns a repository of kind stored under key.
func NewLocalItems(kv KV, key string, kind model.Kind, logger *log.Logger) *LocalItems {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &LocalItems{kv: kv, key: key, kind: kind, log: logger, now: time.Now}
}

// LoadItems decodes the stored collection. A missing key is an empty
// collection. Undecodable data is logged, the key is reset, and a
// *model.MalformedDataError is returned alongside an empty collection.
func (l *LocalItems) LoadItems(ctx context.Context) ([]model.Item, error) {
	raw, found, err := l.kv.Get(ctx, l.key)
	if err != nil {
		return nil, err
	}
	if !found || raw == "" {
		return []model.Item{}, nil
	}

	var items []model.Item
	decodeErr := sonic.ConfigStd.UnmarshalFromString(raw, &items)
	if decodeErr == nil {
		decodeErr = l.check(items)
	}
	if decodeErr != nil {
		l.log.WithFields(log.Fields{"key": l.key}).WithError(decodeErr).Warn("discarding malformed local data")
		if err := l.kv.Delete(ctx, l.key); err != nil {
			l.log.WithError(err).Error("resetting malformed key")
		}
		return []model.Item{}, &model.MalformedDataError{Key: l.key, Err: decodeErr}
	}
	if items == nil {
		items = []model.Item{}
	}
	return items, nil
}

// SaveItems replaces the stored collection.
func (l *LocalItems) SaveItems(ctx context.Context, items []model.Item) error {
	if items == nil {
		items = []model.Item{}
	}
	raw, err := sonic.ConfigStd.MarshalToString(items)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", l.key, err)
	}
	return l.kv.Set(ctx, l.key, raw)
}

func (l *LocalItems) check(items []model.Item) error {
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if it.ID == "" {
			return fmt.Errorf("item %q has no id", it.Title)
		}
		if seen[it.ID] {
			return fmt.Errorf("duplicate id %q", it.ID)
		}
		seen[it.ID] = true
		if _, err := model.ParseCategory(l.kind, string(it.Category)); err != nil {
			return err
		}
	}
	return nil
}

// List implements reconcile.Repository.
func (l *LocalItems) List(ctx context.Context) ([]model.Item, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.LoadItems(ctx)
}

// Create implements reconcile.Repository. The new item gets a
// timestamp-derived id, bumped until it is unique.
func (l *LocalItems) Create(ctx context.Context, d model.Draft) (model.Item, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	items, err := l.LoadItems(ctx)
	if err != nil && !model.IsMalformedData(err) {
		return model.Item{}, err
	}

	item := model.Item{
		ID:          l.nextID(items),
		Title:       d.Title,
		Description: d.Description,
		Category:    d.Category,
	}
	if !l.kind.HasDescription() {
		item.Description = ""
	}
	if err := l.SaveItems(ctx, append(items, item)); err != nil {
		return model.Item{}, err
	}
	return item, nil
}

// Update implements reconcile.Repository.
func (l *LocalItems) Update(ctx context.Context, item model.Item) (model.Item, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	items, err := l.LoadItems(ctx)
	if err != nil {
		return model.Item{}, err
	}
	i := model.IndexOf(items, item.ID)
	if i < 0 {
		return model.Item{}, &model.NotFoundError{Kind: l.kind, ID: item.ID}
	}
	if !l.kind.HasDescription() {
		item.Description = ""
	}
	items[i] = item
	if err := l.SaveItems(ctx, items); err != nil {
		return model.Item{}, err
	}
	return item, nil
}

// Delete implements reconcile.Repository.
func (l *LocalItems) Delete(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	items, err := l.LoadItems(ctx)
	if err != nil {
		return err
	}
	i := model.IndexOf(items, id)
	if i < 0 {
		return &model.NotFoundError{Kind: l.kind, ID: id}
	}
	return l.SaveItems(ctx, append(items[:i:i], items[i+1:]...))
}

// SaveOrder implements reconcile.Orderer.
func (l *LocalItems) SaveOrder(ctx context.Context, items []model.Item) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.SaveItems(ctx, items)
}

func (l *LocalItems) nextID(items []model.Item) string {
	n := l.now().UnixMilli()
	for {
		id := strconv.FormatInt(n, 10)
		if model.IndexOf(items, id) < 0 {
			return id
		}
		n++
	}
}
