package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nhle/nailedit/internal/mockapi"
)

type serveOptions struct {
	addr        string
	requireAuth bool
	partial     bool
	secret      string
	users       []string
	redisURL    string
	dedupeTTL   time.Duration
}

func newServeCmd(a *App) *cobra.Command {
	var o serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run an in-memory task service for local development",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, err := newDevServer(o, a.log)
			if err != nil {
				return writeErr(cmd, err)
			}

			e := echo.New()
			e.HideBanner = true
			e.HidePort = true
			e.Use(middleware.Recover())
			e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
				AllowOrigins: []string{"*"},
				AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "Idempotency-Key"},
			}))
			e.Use(requestLogger(a.log))
			srv.Register(e)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				a.log.WithField("addr", o.addr).Info("dev server listening")
				errCh <- e.Start(o.addr)
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			a.log.Info("shutting down dev server")
			return e.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&o.addr, "addr", ":5000", "Listen address")
	cmd.Flags().BoolVar(&o.requireAuth, "require-auth", false, "Reject unauthenticated requests")
	cmd.Flags().BoolVar(&o.partial, "partial-updates", false, "Answer updates with only id and title")
	cmd.Flags().StringVar(&o.secret, "secret", envOr("NAILEDIT_DEV_SECRET", ""), "HMAC secret for issued tokens")
	cmd.Flags().StringArrayVar(&o.users, "user", nil, "Accepted login as email:password (repeatable; any login when omitted)")
	cmd.Flags().StringVar(&o.redisURL, "redis-url", envOr("NAILEDIT_REDIS_URL", ""), "Keep idempotency keys in Redis instead of memory")
	cmd.Flags().DurationVar(&o.dedupeTTL, "dedupe-ttl", 24*time.Hour, "Lifetime of idempotency keys in Redis")

	return cmd
}

func newDevServer(o serveOptions, logger *log.Logger) (*mockapi.Server, error) {
	users := make(map[string]string, len(o.users))
	for _, u := range o.users {
		email, pw, ok := strings.Cut(u, ":")
		if !ok || email == "" || pw == "" {
			return nil, fmt.Errorf("invalid --user %q, want email:password", u)
		}
		users[email] = pw
	}

	opts := mockapi.Options{
		Secret:           []byte(o.secret),
		Users:            users,
		RequireAuthTasks: o.requireAuth,
		RequireAuthGoals: o.requireAuth,
		PartialUpdates:   o.partial,
		Logger:           logger,
	}
	if o.redisURL != "" {
		redisOpts, err := redis.ParseURL(o.redisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing --redis-url: %w", err)
		}
		opts.Deduper = mockapi.NewRedisDeduper(redis.NewClient(redisOpts), o.dedupeTTL)
	}
	return mockapi.New(opts), nil
}

// requestLogger logs one line per request through logrus.
func requestLogger(logger *log.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.WithFields(log.Fields{
				"method":  v.Method,
				"uri":     v.URI,
				"status":  v.Status,
				"latency": v.Latency,
			}).Info("request")
			return nil
		},
	})
}
