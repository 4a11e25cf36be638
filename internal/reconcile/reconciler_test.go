package reconcile

import (
	"context"
	"errors"
	"io"
	"reflect"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/nhle/nailedit/internal/model"
)

var errBoom = errors.New("boom")

func quietLogger() *log.Logger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}

// fakeRepo records calls and answers from its fields. Update calls can be
// held until released through the gate channel.
type fakeRepo struct {
	mu sync.Mutex

	listItems []model.Item
	listErr   error

	createResp model.Item
	createErr  error

	updateResp  func(model.Item) model.Item
	updateErr   error
	updateGates map[string]chan error

	deleteErr error

	calls []string
}

func (f *fakeRepo) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeRepo) List(ctx context.Context) ([]model.Item, error) {
	f.record("list")
	return f.listItems, f.listErr
}

func (f *fakeRepo) Create(ctx context.Context, d model.Draft) (model.Item, error) {
	f.record("create")
	return f.createResp, f.createErr
}

func (f *fakeRepo) Update(ctx context.Context, item model.Item) (model.Item, error) {
	f.record("update")
	f.mu.Lock()
	gate := f.updateGates[item.Title]
	f.mu.Unlock()
	if gate != nil {
		if err := <-gate; err != nil {
			return model.Item{}, err
		}
	}
	if f.updateErr != nil {
		return model.Item{}, f.updateErr
	}
	if f.updateResp != nil {
		return f.updateResp(item), nil
	}
	return item, nil
}

func (f *fakeRepo) Delete(ctx context.Context, id string) error {
	f.record("delete")
	return f.deleteErr
}

func (f *fakeRepo) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type orderingRepo struct {
	fakeRepo
	saved   [][]model.Item
	saveErr error
}

func (o *orderingRepo) SaveOrder(ctx context.Context, items []model.Item) error {
	o.saved = append(o.saved, items)
	return o.saveErr
}

func strptr(s string) *string { return &s }

func catptr(c model.Category) *model.Category { return &c }

func loaded(t *testing.T, kind model.Kind, repo Repository, items []model.Item) *Reconciler {
	t.Helper()
	r := New(kind, repo, quietLogger())
	r.items = append([]model.Item{}, items...)
	return r
}

func board() []model.Item {
	return []model.Item{
		{ID: "1", Title: "a", Category: model.CategoryToDo},
		{ID: "2", Title: "b", Category: model.CategoryDone},
		{ID: "3", Title: "c", Category: model.CategoryToDo},
		{ID: "4", Title: "d", Category: model.CategoryInProgress},
		{ID: "5", Title: "e", Category: model.CategoryToDo},
	}
}

func TestLoadReplacesState(t *testing.T) {
	repo := &fakeRepo{listItems: board()}
	r := New(model.KindTask, repo, quietLogger())

	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(r.Items(), board()) {
		t.Fatalf("Items = %+v", r.Items())
	}

	repo.listItems = []model.Item{{ID: "9", Title: "z", Category: model.CategoryDone}}
	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := r.Items(); len(got) != 1 || got[0].ID != "9" {
		t.Fatalf("Load should replace wholesale, got %+v", got)
	}
}

func TestLoadFailureKeepsState(t *testing.T) {
	repo := &fakeRepo{}
	r := loaded(t, model.KindTask, repo, board())
	repo.listErr = errBoom

	if err := r.Load(context.Background()); !errors.Is(err, errBoom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if !reflect.DeepEqual(r.Items(), board()) {
		t.Fatal("state changed after failed load")
	}
	if repo.callCount() != 1 {
		t.Fatalf("load must not retry, calls = %d", repo.callCount())
	}
}

func TestLoadMalformedDataEmpties(t *testing.T) {
	repo := &fakeRepo{listItems: []model.Item{}, listErr: &model.MalformedDataError{Key: "goals", Err: errBoom}}
	r := loaded(t, model.KindGoal, repo, []model.Item{{ID: "x", Title: "x", Category: model.CategoryDailyGoal}})

	err := r.Load(context.Background())
	if !model.IsMalformedData(err) {
		t.Fatalf("expected malformed data error, got %v", err)
	}
	if len(r.Items()) != 0 {
		t.Fatalf("expected empty collection, got %+v", r.Items())
	}
}

func TestCreateBlankTitle(t *testing.T) {
	repo := &fakeRepo{}
	r := loaded(t, model.KindTask, repo, board())

	_, err := r.Create(context.Background(), model.Draft{Title: "  ", Category: model.CategoryToDo})
	var ve *model.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if repo.callCount() != 0 {
		t.Fatal("no request may be made for an invalid draft")
	}
	if !reflect.DeepEqual(r.Items(), board()) {
		t.Fatal("collection changed")
	}
}

func TestCreateUnknownCategory(t *testing.T) {
	repo := &fakeRepo{}
	r := New(model.KindTask, repo, quietLogger())

	_, err := r.Create(context.Background(), model.Draft{Title: "x", Category: model.CategoryDailyGoal})
	var ce *model.CategoryError
	if !errors.As(err, &ce) || repo.callCount() != 0 {
		t.Fatalf("expected CategoryError without a call, got %v (%d calls)", err, repo.callCount())
	}
}

func TestCreateAppends(t *testing.T) {
	repo := &fakeRepo{createResp: model.Item{ID: "1", Title: "Buy milk", Category: model.CategoryToDo}}
	existing := []model.Item{{ID: "0", Title: "old", Category: model.CategoryDone}}
	r := loaded(t, model.KindTask, repo, existing)

	got, err := r.Create(context.Background(), model.Draft{Title: "Buy milk", Category: model.CategoryToDo})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	want := append(existing, model.Item{ID: "1", Title: "Buy milk", Category: model.CategoryToDo})
	if !reflect.DeepEqual(r.Items(), want) {
		t.Fatalf("Items = %+v, want %+v", r.Items(), want)
	}
	if got.ID != "1" {
		t.Fatalf("returned %+v", got)
	}
}

func TestCreateForcesDraftCategory(t *testing.T) {
	repo := &fakeRepo{createResp: model.Item{ID: "7"}}
	r := New(model.KindTask, repo, quietLogger())

	got, err := r.Create(context.Background(), model.Draft{Title: "x", Description: "y", Category: model.CategoryInProgress})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	want := model.Item{ID: "7", Title: "x", Description: "y", Category: model.CategoryInProgress}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestCreateFailureAddsNothing(t *testing.T) {
	repo := &fakeRepo{createErr: errBoom}
	r := loaded(t, model.KindTask, repo, board())

	if _, err := r.Create(context.Background(), model.Draft{Title: "x", Category: model.CategoryToDo}); !errors.Is(err, errBoom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if !reflect.DeepEqual(r.Items(), board()) {
		t.Fatal("collection changed after failed create")
	}
}

func TestCreateRejectsDuplicateID(t *testing.T) {
	repo := &fakeRepo{createResp: model.Item{ID: "1"}}
	r := loaded(t, model.KindTask, repo, board())

	if _, err := r.Create(context.Background(), model.Draft{Title: "x", Category: model.CategoryToDo}); err == nil {
		t.Fatal("expected duplicate id error")
	}
	if len(r.Items()) != len(board()) {
		t.Fatal("duplicate was appended")
	}
}

func TestUpdateLocalWinsOverPartialResponse(t *testing.T) {
	repo := &fakeRepo{updateResp: func(it model.Item) model.Item {
		return model.Item{ID: it.ID, Title: it.Title}
	}}
	r := loaded(t, model.KindTask, repo, []model.Item{
		{ID: "1", Title: "Old", Description: "keep", Category: model.CategoryInProgress},
	})

	got, err := r.Update(context.Background(), "1", model.Patch{Title: strptr("New")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	want := model.Item{ID: "1", Title: "New", Description: "keep", Category: model.CategoryInProgress}
	if got != want || r.Items()[0] != want {
		t.Fatalf("got %+v / %+v, want %+v", got, r.Items()[0], want)
	}
}

func TestUpdateValidation(t *testing.T) {
	repo := &fakeRepo{}
	r := loaded(t, model.KindTask, repo, board())

	if _, err := r.Update(context.Background(), "1", model.Patch{Title: strptr("")}); !model.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := r.Update(context.Background(), "1", model.Patch{Category: catptr("Later")}); !model.IsValidation(err) {
		t.Fatalf("expected category error, got %v", err)
	}
	if _, err := r.Update(context.Background(), "nope", model.Patch{Title: strptr("x")}); !model.IsNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if repo.callCount() != 0 {
		t.Fatalf("no request expected, got %d", repo.callCount())
	}
}

func TestUpdateRollsBackOnFailure(t *testing.T) {
	repo := &fakeRepo{updateErr: errBoom}
	r := loaded(t, model.KindTask, repo, board())

	if _, err := r.Update(context.Background(), "3", model.Patch{Title: strptr("changed"), Category: catptr(model.CategoryDone)}); !errors.Is(err, errBoom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if !reflect.DeepEqual(r.Items(), board()) {
		t.Fatalf("not rolled back: %+v", r.Items())
	}
}

func TestUpdateIsOptimistic(t *testing.T) {
	gate := make(chan error)
	repo := &fakeRepo{updateGates: map[string]chan error{"changed": gate}}
	r := loaded(t, model.KindTask, repo, board())

	done := make(chan error)
	go func() {
		_, err := r.Update(context.Background(), "1", model.Patch{Title: strptr("changed")})
		done <- err
	}()

	waitFor(t, func() bool { it, _ := r.Get("1"); return it.Title == "changed" })
	if !r.Busy() {
		t.Fatal("expected Busy while the update is in flight")
	}
	gate <- nil
	if err := <-done; err != nil {
		t.Fatalf("Update: %v", err)
	}
	if r.Busy() {
		t.Fatal("still Busy after the update completed")
	}
}

// Edit A is sent, then edit B; A's response arrives last. The newer local
// state must survive.
func TestStaleUpdateResponseIgnored(t *testing.T) {
	gateA := make(chan error)
	repo := &fakeRepo{
		updateGates: map[string]chan error{"A": gateA},
		updateResp:  func(it model.Item) model.Item { return model.Item{ID: it.ID, Title: "server"} },
	}
	r := loaded(t, model.KindTask, repo, board())

	doneA := make(chan error)
	go func() {
		_, err := r.Update(context.Background(), "1", model.Patch{Title: strptr("A")})
		doneA <- err
	}()
	waitFor(t, func() bool { it, _ := r.Get("1"); return it.Title == "A" })

	if _, err := r.Update(context.Background(), "1", model.Patch{Title: strptr("B")}); err != nil {
		t.Fatalf("Update B: %v", err)
	}

	gateA <- nil
	if err := <-doneA; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("stale update should report ErrSuperseded, got %v", err)
	}
	if it, _ := r.Get("1"); it.Title != "B" {
		t.Fatalf("stale response overwrote newer edit: %+v", it)
	}
}

func TestStaleUpdateFailureDoesNotRollBack(t *testing.T) {
	gateA := make(chan error)
	repo := &fakeRepo{updateGates: map[string]chan error{"A": gateA}}
	r := loaded(t, model.KindTask, repo, board())

	doneA := make(chan error)
	go func() {
		_, err := r.Update(context.Background(), "1", model.Patch{Title: strptr("A")})
		doneA <- err
	}()
	waitFor(t, func() bool { it, _ := r.Get("1"); return it.Title == "A" })

	if _, err := r.Update(context.Background(), "1", model.Patch{Title: strptr("B")}); err != nil {
		t.Fatalf("Update B: %v", err)
	}
	gateA <- errBoom
	if err := <-doneA; !errors.Is(err, errBoom) {
		t.Fatalf("expected A's failure, got %v", err)
	}
	if it, _ := r.Get("1"); it.Title != "B" {
		t.Fatalf("stale failure rolled back newer edit: %+v", it)
	}
}

func TestRemove(t *testing.T) {
	repo := &fakeRepo{}
	r := loaded(t, model.KindTask, repo, board())

	if err := r.Remove(context.Background(), "3"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if model.IndexOf(r.Items(), "3") >= 0 || len(r.Items()) != 4 {
		t.Fatalf("item not removed: %+v", r.Items())
	}
}

func TestRemoveUnknownWithFailingRepoLeavesCollection(t *testing.T) {
	repo := &fakeRepo{deleteErr: errBoom}
	r := loaded(t, model.KindTask, repo, board())
	v := r.Version()

	if err := r.Remove(context.Background(), "404"); !errors.Is(err, errBoom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if !reflect.DeepEqual(r.Items(), board()) || r.Version() != v {
		t.Fatal("collection changed")
	}
}

func TestReorderMovesWithinCategory(t *testing.T) {
	r := loaded(t, model.KindTask, &fakeRepo{}, board())

	moved, err := r.Reorder(context.Background(), model.CategoryToDo, "5", "1")
	if err != nil || !moved {
		t.Fatalf("Reorder = %v, %v", moved, err)
	}
	got := ids(r.Items())
	want := []string{"2", "4", "5", "1", "3"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

func TestReorderNoOps(t *testing.T) {
	r := loaded(t, model.KindTask, &fakeRepo{}, board())
	cases := []struct {
		cat  model.Category
		a, b string
	}{
		{model.CategoryToDo, "1", "1"},
		{model.CategoryToDo, "1", "2"},
		{model.CategoryToDo, "missing", "1"},
		{model.CategoryDone, "1", "3"},
	}
	for _, c := range cases {
		moved, err := r.Reorder(context.Background(), c.cat, c.a, c.b)
		if moved || err != nil {
			t.Fatalf("Reorder(%s, %s, %s) = %v, %v", c.cat, c.a, c.b, moved, err)
		}
	}
	if !reflect.DeepEqual(r.Items(), board()) {
		t.Fatal("no-op reorder changed the collection")
	}
}

func TestReorderPersistsOrder(t *testing.T) {
	repo := &orderingRepo{}
	r := loaded(t, model.KindTask, repo, board())

	if _, err := r.Reorder(context.Background(), model.CategoryToDo, "1", "3"); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	if len(repo.saved) != 1 || !reflect.DeepEqual(ids(repo.saved[0]), ids(r.Items())) {
		t.Fatalf("saved %v, have %v", repo.saved, ids(r.Items()))
	}
}

func TestReorderRestoresOnSaveFailure(t *testing.T) {
	repo := &orderingRepo{saveErr: errBoom}
	r := loaded(t, model.KindTask, repo, board())

	moved, err := r.Reorder(context.Background(), model.CategoryToDo, "1", "3")
	if moved || !errors.Is(err, errBoom) {
		t.Fatalf("Reorder = %v, %v", moved, err)
	}
	if !reflect.DeepEqual(r.Items(), board()) {
		t.Fatalf("order not restored: %v", ids(r.Items()))
	}
}

func TestVersionAdvancesOnChange(t *testing.T) {
	repo := &fakeRepo{createResp: model.Item{ID: "new"}}
	r := New(model.KindTask, repo, quietLogger())
	v0 := r.Version()
	if _, err := r.Create(context.Background(), model.Draft{Title: "x", Category: model.CategoryToDo}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if r.Version() <= v0 {
		t.Fatal("version did not advance")
	}
}

func TestGoalUpdateIgnoresDescription(t *testing.T) {
	repo := &fakeRepo{}
	r := loaded(t, model.KindGoal, repo, []model.Item{{ID: "g", Title: "run", Category: model.CategoryDailyGoal}})

	got, err := r.Update(context.Background(), "g", model.Patch{Description: strptr("nope"), Category: catptr(model.CategoryWeeklyGoal)})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Description != "" || got.Category != model.CategoryWeeklyGoal {
		t.Fatalf("got %+v", got)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func ids(items []model.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestLoadKeepsLocalOrderWithoutOrderer(t *testing.T) {
	repo := &fakeRepo{}
	r := loaded(t, model.KindTask, repo, board())
	if moved, err := r.Reorder(context.Background(), model.CategoryToDo, "5", "1"); err != nil || !moved {
		t.Fatalf("Reorder = %v, %v", moved, err)
	}

	repo.listItems = append(board(), model.Item{ID: "6", Title: "f", Category: model.CategoryToDo})
	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{"2", "4", "5", "1", "3", "6"}
	if got := ids(r.Items()); !reflect.DeepEqual(got, want) {
		t.Fatalf("order after reload = %v, want %v", got, want)
	}
}

func TestLoadUsesStoredOrder(t *testing.T) {
	repo := &orderingRepo{fakeRepo: fakeRepo{listItems: board()}}
	items := board()
	items[0], items[4] = items[4], items[0]
	r := loaded(t, model.KindGoal, repo, items)

	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got, want := ids(r.Items()), ids(board()); !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

func TestLoadDuringUpdateKeepsEdit(t *testing.T) {
	gate := make(chan error)
	repo := &fakeRepo{listItems: board(), updateGates: map[string]chan error{"changed": gate}}
	r := loaded(t, model.KindTask, repo, board())

	done := make(chan error)
	go func() {
		_, err := r.Update(context.Background(), "1", model.Patch{Title: strptr("changed")})
		done <- err
	}()
	waitFor(t, func() bool { it, _ := r.Get("1"); return it.Title == "changed" })

	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if it, _ := r.Get("1"); it.Title != "changed" {
		t.Fatalf("reload discarded the pending edit: %+v", it)
	}

	gate <- nil
	if err := <-done; err != nil {
		t.Fatalf("Update after reload: %v", err)
	}
	if it, _ := r.Get("1"); it.Title != "changed" {
		t.Fatalf("confirmed edit lost: %+v", it)
	}
	if r.Busy() {
		t.Fatal("still Busy after the update completed")
	}
}

func TestFailedUpdateAfterLoadRestoresReloadedValue(t *testing.T) {
	gate := make(chan error)
	server := board()
	server[0].Description = "from server"
	repo := &fakeRepo{listItems: server, updateGates: map[string]chan error{"changed": gate}}
	r := loaded(t, model.KindTask, repo, board())

	done := make(chan error)
	go func() {
		_, err := r.Update(context.Background(), "1", model.Patch{Title: strptr("changed")})
		done <- err
	}()
	waitFor(t, func() bool { it, _ := r.Get("1"); return it.Title == "changed" })
	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	gate <- errBoom
	if err := <-done; !errors.Is(err, errBoom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if it, _ := r.Get("1"); it != server[0] {
		t.Fatalf("rolled back to %+v, want %+v", it, server[0])
	}
}
