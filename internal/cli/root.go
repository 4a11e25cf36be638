// Package cli defines the nailedit command tree. Running nailedit without a
// subcommand starts the dashboard.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nhle/nailedit/internal/app"
	"github.com/nhle/nailedit/internal/credential"
	"github.com/nhle/nailedit/internal/logging"
	"github.com/nhle/nailedit/internal/model"
	"github.com/nhle/nailedit/internal/session"
	appsync "github.com/nhle/nailedit/internal/sync"
)

// App carries state shared by all commands.
type App struct {
	ConfigPath string

	cfg    *model.AppConfig
	log    *log.Logger
	closer io.Closer

	// openSecrets opens the credential store.
	openSecrets func() (session.Secrets, error)
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &App{
		openSecrets: func() (session.Secrets, error) {
			return credential.Open(model.ConfigDir())
		},
	}
	return newRootCmd(a)
}

func newRootCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "nailedit",
		Short:        "Terminal board for tasks and goals",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		Example: strings.TrimSpace(`
  # Start the dashboard
  nailedit

  # Scriptable commands
  nailedit list goals
  nailedit add task "Write release notes" --category "In Progress"

  # Local development backend
  nailedit serve --addr :5000
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(a)
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := model.LoadConfig(a.ConfigPath)
		if err != nil {
			return err
		}
		a.cfg = cfg

		// The dashboard owns the terminal; everything else logs to stderr.
		if cmd == cmd.Root() {
			logger, closer, err := logging.Setup(cfg.Log)
			if err != nil {
				return err
			}
			a.log, a.closer = logger, closer
			return nil
		}
		a.log = logging.Console(cfg.Log.Level)
		return nil
	}

	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if a.closer != nil {
			return a.closer.Close()
		}
		return nil
	}

	cmd.PersistentFlags().StringVar(&a.ConfigPath, "config", envOr("NAILEDIT_CONFIG", model.DefaultConfigPath()), "Path to the config file")

	cmd.AddCommand(newLoginCmd(a))
	cmd.AddCommand(newLogoutCmd(a))
	cmd.AddCommand(newWhoamiCmd(a))
	cmd.AddCommand(newListCmd(a))
	cmd.AddCommand(newAddCmd(a))
	cmd.AddCommand(newEditCmd(a))
	cmd.AddCommand(newRemoveCmd(a))
	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newConfigCmd(a))

	return cmd
}

func runTUI(a *App) error {
	rt, err := a.open()
	if err != nil {
		return err
	}
	defer rt.Close()

	// Local goals never change behind our back.
	targets := []appsync.Target{rt.tasks}
	if a.cfg.Goals.Mode != model.GoalsModeLocal {
		targets = append(targets, rt.goals)
	}
	poller := appsync.New(time.Duration(a.cfg.API.PollSec)*time.Second, a.log, targets...)
	defer poller.Stop()

	m := app.New(app.Options{
		Tasks:    rt.tasks,
		Goals:    rt.goals,
		Sessions: rt.sessions,
		Prefs:    rt.prefs,
		Display:  a.cfg.Display,
		Logger:   a.log,
		Poller:   poller,
	})
	a.log.Info("starting dashboard")
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("running dashboard: %w", err)
	}
	return nil
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
