package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/nhle/nailedit/internal/model"
	"github.com/nhle/nailedit/internal/store"
	"github.com/nhle/nailedit/tests/testutil"
)

func TestKVRoundTrip(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	if _, found, err := s.Get(ctx, "missing"); err != nil || found {
		t.Fatalf("Get missing: found=%v err=%v", found, err)
	}
	if err := s.Set(ctx, "k", "v1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, "k", "v2"); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	v, found, err := s.Get(ctx, "k")
	if err != nil || !found || v != "v2" {
		t.Fatalf("Get = %q, %v, %v", v, found, err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, found, _ := s.Get(ctx, "k"); found {
		t.Fatal("key still present after Delete")
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nailedit.db")
	s, err := store.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Set(context.Background(), "k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	s.Close()

	s, err = store.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if v, _, _ := s.Get(context.Background(), "k"); v != "v" {
		t.Fatalf("value lost across reopen: %q", v)
	}
}

func TestLocalItemsSaveLoadRoundTrip(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	goals := store.NewLocalItems(s, store.KeyGoals, model.KindGoal, testutil.QuietLogger())

	want := []model.Item{
		{ID: "1", Title: "Stretch", Category: model.CategoryDailyGoal},
		{ID: "2", Title: "Ship v1", Category: model.CategoryMonthlyGoal},
		{ID: "3", Title: "Read a book", Category: model.CategoryWeeklyGoal},
	}
	if err := goals.SaveItems(ctx, want); err != nil {
		t.Fatalf("SaveItems: %v", err)
	}
	got, err := goals.LoadItems(ctx)
	if err != nil {
		t.Fatalf("LoadItems: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestLocalItemsEmpty(t *testing.T) {
	s := testutil.NewTestStore(t)
	goals := store.NewLocalItems(s, store.KeyGoals, model.KindGoal, testutil.QuietLogger())

	items, err := goals.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", items)
	}
}

func TestLocalItemsMalformedDataRecovers(t *testing.T) {
	cases := map[string]string{
		"not json":         `{{{`,
		"unknown category": `[{"id":"1","title":"x","category":"Yearly Goal"}]`,
		"missing id":       `[{"title":"x","category":"Daily Goal"}]`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			s := testutil.NewTestStore(t)
			ctx := context.Background()
			if err := s.Set(ctx, store.KeyGoals, raw); err != nil {
				t.Fatalf("Set: %v", err)
			}
			goals := store.NewLocalItems(s, store.KeyGoals, model.KindGoal, testutil.QuietLogger())

			items, err := goals.LoadItems(ctx)
			var md *model.MalformedDataError
			if !errors.As(err, &md) || md.Key != store.KeyGoals {
				t.Fatalf("expected MalformedDataError, got %v", err)
			}
			if len(items) != 0 {
				t.Fatalf("expected empty collection, got %+v", items)
			}

			items, err = goals.LoadItems(ctx)
			if err != nil || len(items) != 0 {
				t.Fatalf("second load should be clean: %+v, %v", items, err)
			}
		})
	}
}

func TestLocalItemsCRUD(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	goals := store.NewLocalItems(s, store.KeyGoals, model.KindGoal, testutil.QuietLogger())

	a, err := goals.Create(ctx, model.Draft{Title: "A", Description: "dropped", Category: model.CategoryDailyGoal})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	b, err := goals.Create(ctx, model.Draft{Title: "B", Category: model.CategoryDailyGoal})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("ids must be unique and non-empty: %q %q", a.ID, b.ID)
	}
	if a.Description != "" {
		t.Fatalf("goal kept description %q", a.Description)
	}

	a.Category = model.CategoryWeeklyGoal
	if _, err := goals.Update(ctx, a); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := goals.Update(ctx, model.Item{ID: "nope", Title: "x", Category: model.CategoryDailyGoal}); !model.IsNotFound(err) {
		t.Fatalf("Update unknown: expected NotFound, got %v", err)
	}

	if err := goals.SaveOrder(ctx, []model.Item{b, a}); err != nil {
		t.Fatalf("SaveOrder: %v", err)
	}
	if err := goals.Delete(ctx, b.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	items, err := goals.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 || items[0].ID != a.ID || items[0].Category != model.CategoryWeeklyGoal {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestPreferences(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	prefs := store.NewPreferences(s, testutil.QuietLogger())

	if got := prefs.SelectedCategory(ctx, model.KindGoal); got != model.CategoryDailyGoal {
		t.Fatalf("default selected = %q", got)
	}
	if err := prefs.SetSelectedCategory(ctx, model.CategoryMonthlyGoal); err != nil {
		t.Fatalf("SetSelectedCategory: %v", err)
	}
	if got := prefs.SelectedCategory(ctx, model.KindGoal); got != model.CategoryMonthlyGoal {
		t.Fatalf("selected = %q", got)
	}
	if got := prefs.SelectedCategory(ctx, model.KindTask); got != model.CategoryToDo {
		t.Fatalf("goal category must not leak into tasks: %q", got)
	}

	if _, ok := prefs.DarkMode(ctx); ok {
		t.Fatal("dark mode should be unset")
	}
	if err := prefs.SetDarkMode(ctx, true); err != nil {
		t.Fatalf("SetDarkMode: %v", err)
	}
	if dark, ok := prefs.DarkMode(ctx); !ok || !dark {
		t.Fatalf("DarkMode = %v, %v", dark, ok)
	}
}
