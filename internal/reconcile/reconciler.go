// Package reconcile owns the in-memory collection of one kind of item and
// keeps it in step with a repository. The collection is authoritative while
// the program runs; the repository is brought up to date after each change.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/nhle/nailedit/internal/model"
)

// Repository is where items are stored: the remote service or the local
// key/value store.
type Repository interface {
	List(ctx context.Context) ([]model.Item, error)
	Create(ctx context.Context, d model.Draft) (model.Item, error)
	Update(ctx context.Context, item model.Item) (model.Item, error)
	Delete(ctx context.Context, id string) error
}

// Orderer is implemented by repositories that can store the collection
// order. Remote repositories do not, so order is kept in memory only.
type Orderer interface {
	SaveOrder(ctx context.Context, items []model.Item) error
}

// ErrSuperseded is returned by Update when a newer update to the same item
// was issued before this one completed. The response was not applied.
var ErrSuperseded = errors.New("update superseded by a newer edit")

// pendingEdit is an update waiting for the repository.
type pendingEdit struct {
	seq uint64
	// local is the optimistic value shown meanwhile.
	local model.Item
	// base is restored if the update fails.
	base model.Item
}

// Reconciler holds the ordered collection. Methods are safe for concurrent
// use; the lock is never held across a repository call.
type Reconciler struct {
	kind model.Kind
	repo Repository
	log  *log.Logger

	mu      sync.Mutex
	items   []model.Item
	version uint64
	seq     uint64
	pending map[string]pendingEdit
	// inflight counts creates and removes waiting for the repository.
	inflight int
}

// New returns an empty reconciler for kind backed by repo.
func New(kind model.Kind, repo Repository, logger *log.Logger) *Reconciler {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Reconciler{
		kind:    kind,
		repo:    repo,
		log:     logger,
		items:   []model.Item{},
		pending: make(map[string]pendingEdit),
	}
}

// Kind returns the kind of item held.
func (r *Reconciler) Kind() model.Kind { return r.kind }

// Items returns a copy of the collection.
func (r *Reconciler) Items() []model.Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Item, len(r.items))
	copy(out, r.items)
	return out
}

// Version increases on every change to the collection.
func (r *Reconciler) Version() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.version
}

// Busy reports whether any change is waiting for the repository.
func (r *Reconciler) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending) > 0 || r.inflight > 0
}

func (r *Reconciler) track(delta int) {
	r.mu.Lock()
	r.inflight += delta
	r.mu.Unlock()
}

// Get returns the item with the given id.
func (r *Reconciler) Get(id string) (model.Item, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := model.IndexOf(r.items, id)
	if i < 0 {
		return model.Item{}, false
	}
	return r.items[i], true
}

// Load replaces the collection with the repository contents. On failure
// the collection is left as it was, except for malformed local data which
// empties it; the error is returned in both cases.
//
// Edits still waiting for the repository are laid over the fresh items, and
// when the repository cannot store order the current order is kept, with
// new items at the end.
func (r *Reconciler) Load(ctx context.Context) error {
	items, err := r.repo.List(ctx)
	if err != nil && !model.IsMalformedData(err) {
		r.log.WithField("kind", r.kind).WithError(err).Warn("load failed")
		return fmt.Errorf("loading %s: %w", r.kind.Plural(), err)
	}

	fresh := make([]model.Item, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if seen[it.ID] {
			return fmt.Errorf("loading %s: duplicate id %q", r.kind.Plural(), it.ID)
		}
		seen[it.ID] = true
		fresh = append(fresh, it)
	}

	r.mu.Lock()
	for id, p := range r.pending {
		if i := model.IndexOf(fresh, id); i >= 0 {
			p.base = fresh[i]
			fresh[i] = merge(fresh[i], p.local)
			r.pending[id] = p
		}
	}
	if _, ok := r.repo.(Orderer); !ok {
		fresh = orderLike(fresh, r.items)
	}
	r.items = fresh
	r.version++
	r.mu.Unlock()

	r.log.WithFields(log.Fields{"kind": r.kind, "count": len(fresh)}).Debug("loaded")
	if err != nil {
		return fmt.Errorf("loading %s: %w", r.kind.Plural(), err)
	}
	return nil
}

// Create validates d, asks the repository to create it and appends the
// result. The draft's category always wins over the response.
func (r *Reconciler) Create(ctx context.Context, d model.Draft) (model.Item, error) {
	if !r.kind.HasDescription() {
		d.Description = ""
	}
	if err := d.Validate(r.kind); err != nil {
		return model.Item{}, err
	}

	r.track(1)
	created, err := r.repo.Create(ctx, d)
	r.track(-1)
	if err != nil {
		r.log.WithField("kind", r.kind).WithError(err).Warn("create failed")
		return model.Item{}, err
	}
	if created.ID == "" {
		return model.Item{}, fmt.Errorf("creating %s: response has no id", r.kind)
	}

	created.Category = d.Category
	if created.Title == "" {
		created.Title = d.Title
	}
	if created.Description == "" {
		created.Description = d.Description
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if model.IndexOf(r.items, created.ID) >= 0 {
		return model.Item{}, fmt.Errorf("creating %s: id %q already present", r.kind, created.ID)
	}
	r.items = append(r.items, created)
	r.version++
	r.log.WithFields(log.Fields{"kind": r.kind, "id": created.ID}).Debug("created")
	return created, nil
}

// Update applies p to the item optimistically, then sends the result to the
// repository. On success the local fields are kept; on failure the item is
// rolled back. A response that arrives after a newer update to the same
// item was issued is dropped and ErrSuperseded (or the failure) is returned.
func (r *Reconciler) Update(ctx context.Context, id string, p model.Patch) (model.Item, error) {
	if !r.kind.HasDescription() {
		p.Description = nil
	}
	if err := p.Validate(r.kind); err != nil {
		return model.Item{}, err
	}

	r.mu.Lock()
	i := model.IndexOf(r.items, id)
	if i < 0 {
		r.mu.Unlock()
		return model.Item{}, &model.NotFoundError{Kind: r.kind, ID: id}
	}
	before := r.items[i]
	local := p.Apply(before)
	r.items[i] = local
	r.seq++
	seq := r.seq
	r.pending[id] = pendingEdit{seq: seq, local: local, base: before}
	r.version++
	r.mu.Unlock()

	remote, err := r.repo.Update(ctx, local)

	r.mu.Lock()
	defer r.mu.Unlock()

	fields := log.Fields{"kind": r.kind, "id": id, "seq": seq}
	if r.pending[id].seq != seq {
		r.log.WithFields(fields).Debug("dropping stale update response")
		if err != nil {
			return model.Item{}, err
		}
		return model.Item{}, ErrSuperseded
	}
	pending := r.pending[id]
	delete(r.pending, id)

	j := model.IndexOf(r.items, id)
	if err != nil {
		r.log.WithFields(fields).WithError(err).Warn("update failed, rolling back")
		if j >= 0 {
			r.items[j] = pending.base
			r.version++
		}
		return model.Item{}, err
	}
	merged := merge(remote, local)
	if j >= 0 {
		r.items[j] = merged
		r.version++
	}
	return merged, nil
}

// merge fills the item from the response, letting the locally known
// editable fields win over what the server echoed.
func merge(remote, local model.Item) model.Item {
	out := remote
	out.ID = local.ID
	out.Title = local.Title
	out.Description = local.Description
	out.Category = local.Category
	return out
}

// Remove deletes the item in the repository and then drops it locally.
// On failure the collection is unchanged.
func (r *Reconciler) Remove(ctx context.Context, id string) error {
	r.track(1)
	err := r.repo.Delete(ctx, id)
	r.track(-1)
	if err != nil {
		r.log.WithFields(log.Fields{"kind": r.kind, "id": id}).WithError(err).Warn("delete failed")
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if i := model.IndexOf(r.items, id); i >= 0 {
		r.items = append(r.items[:i:i], r.items[i+1:]...)
		r.version++
	}
	delete(r.pending, id)
	return nil
}

// Reorder moves activeID to the position of overID among the items of
// category c. It reports whether anything moved. When the repository can
// store order the new order is saved, and restored on failure.
func (r *Reconciler) Reorder(ctx context.Context, c model.Category, activeID, overID string) (bool, error) {
	r.mu.Lock()
	before := r.items
	next, moved := moveByID(before, c, activeID, overID)
	if !moved {
		r.mu.Unlock()
		return false, nil
	}
	r.items = next
	r.version++
	r.mu.Unlock()

	orderer, ok := r.repo.(Orderer)
	if !ok {
		return true, nil
	}
	snapshot := make([]model.Item, len(next))
	copy(snapshot, next)
	if err := orderer.SaveOrder(ctx, snapshot); err != nil {
		r.log.WithFields(log.Fields{"kind": r.kind, "id": activeID}).WithError(err).Warn("saving order failed, restoring")
		r.mu.Lock()
		r.items = orderLike(r.items, before)
		r.version++
		r.mu.Unlock()
		return false, err
	}
	return true, nil
}

// orderLike returns items arranged in the id order of ref. Items missing
// from ref keep their relative order at the end; current field values are
// preserved.
func orderLike(items, ref []model.Item) []model.Item {
	byID := make(map[string]model.Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	out := make([]model.Item, 0, len(items))
	for _, it := range ref {
		if cur, ok := byID[it.ID]; ok {
			out = append(out, cur)
			delete(byID, it.ID)
		}
	}
	for _, it := range items {
		if _, ok := byID[it.ID]; ok {
			out = append(out, it)
		}
	}
	return out
}
