package testutil

import (
	"io"
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/nhle/nailedit/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// QuietLogger returns a logrus logger that discards output.
func QuietLogger() *log.Logger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}
