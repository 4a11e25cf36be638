package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nhle/nailedit/internal/gateway"
	"github.com/nhle/nailedit/internal/model"
	"github.com/nhle/nailedit/internal/reconcile"
	"github.com/nhle/nailedit/internal/session"
	"github.com/nhle/nailedit/internal/store"
)

// runtime is everything a command needs once configuration is loaded.
type runtime struct {
	store    *store.SQLiteStore
	sessions *session.Manager
	prefs    *store.Preferences
	tasks    *reconcile.Reconciler
	goals    *reconcile.Reconciler
}

// open builds the collaborators from a.cfg. The saved session is restored
// before any request is made.
func (a *App) open() (*runtime, error) {
	cfg := a.cfg

	if dir := filepath.Dir(cfg.Storage.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}
	st, err := store.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}

	secrets, err := a.openSecrets()
	if err != nil {
		st.Close()
		return nil, err
	}

	// Login requests go out without a token; everything else reads it from
	// the session at request time.
	authClient := gateway.NewClient(gateway.Options{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout(),
		Logger:  a.log,
	})
	sessions := session.NewManager(secrets, gateway.NewAuth(authClient, cfg.API.LoginPath), a.log)
	if _, err := sessions.Load(); err != nil {
		a.log.WithError(err).Warn("could not restore session")
	}

	api := gateway.NewClient(gateway.Options{
		BaseURL:    cfg.API.BaseURL,
		Timeout:    cfg.API.Timeout(),
		MaxRetries: cfg.API.MaxRetries,
		Tokens:     sessions,
		Logger:     a.log,
	})

	var goalsRepo reconcile.Repository = gateway.NewItems(api, model.KindGoal, cfg.API.GoalsPath)
	if cfg.Goals.Mode == model.GoalsModeLocal {
		goalsRepo = store.NewLocalItems(st, store.KeyGoals, model.KindGoal, a.log)
	}

	return &runtime{
		store:    st,
		sessions: sessions,
		prefs:    store.NewPreferences(st, a.log),
		tasks:    reconcile.New(model.KindTask, gateway.NewItems(api, model.KindTask, cfg.API.TasksPath), a.log),
		goals:    reconcile.New(model.KindGoal, goalsRepo, a.log),
	}, nil
}

// reconciler returns the collection of kind.
func (rt *runtime) reconciler(kind model.Kind) *reconcile.Reconciler {
	if kind == model.KindGoal {
		return rt.goals
	}
	return rt.tasks
}

// Close releases the database.
func (rt *runtime) Close() error {
	return rt.store.Close()
}
