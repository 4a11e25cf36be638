// Package mockapi is an in-memory implementation of the task service REST
// API. It backs `nailedit serve` for offline development and the gateway
// tests.
package mockapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/nhle/nailedit/internal/model"
)

// Options configures the server.
type Options struct {
	// Secret signs issued tokens (HS256).
	Secret []byte

	// Users maps email to password. Empty means any non-empty password
	// is accepted.
	Users map[string]string

	// RequireAuthTasks and RequireAuthGoals reject unauthenticated requests
	// on the respective collection.
	RequireAuthTasks bool
	RequireAuthGoals bool

	// PartialUpdates makes PUT answer with only {_id, title}, like backends
	// that echo incomplete payloads.
	PartialUpdates bool

	// TokenTTL is the lifetime of issued tokens.
	TokenTTL time.Duration

	// Deduper remembers Idempotency-Key headers of creates. Defaults to an
	// in-memory map.
	Deduper Deduper

	Logger *log.Logger
}

type record struct {
	ID          string `json:"_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category"`
}

type payload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// Server holds the collections. All handlers are safe for concurrent use.
type Server struct {
	opts Options
	log  *log.Logger

	mu          sync.Mutex
	collections map[model.Kind][]record
	// deleted holds ids removed by this process.
	deleted map[string]bool
}

var errMissingAuthorization = errors.New("missing authorization header")

// New creates an empty server.
func New(opts Options) *Server {
	if len(opts.Secret) == 0 {
		opts.Secret = []byte("nailedit-dev-secret")
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if opts.Deduper == nil {
		opts.Deduper = NewMemoryDeduper()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Server{
		opts: opts,
		log:  logger,
		collections: map[model.Kind][]record{
			model.KindTask: {},
			model.KindGoal: {},
		},
		deleted: make(map[string]bool),
	}
}

// Handler returns an Echo instance with all routes registered.
func (s *Server) Handler() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	s.Register(e)
	return e
}

// Register wires up all API routes on the provided Echo instance.
func (s *Server) Register(e *echo.Echo) {
	e.POST("/api/auth/login", s.login)
	for _, kind := range []model.Kind{model.KindTask, model.KindGoal} {
		base := "/api/" + kind.Plural()
		e.GET(base, s.list(kind))
		e.POST(base, s.create(kind))
		e.PUT(base+"/:id", s.update(kind))
		e.DELETE(base+"/:id", s.remove(kind))
	}
	e.GET("/healthz", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
}

// Seed appends items to a collection, assigning ids where missing.
func (s *Server) Seed(kind model.Kind, items ...model.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range items {
		id := it.ID
		if id == "" {
			id = uuid.NewString()
		}
		s.collections[kind] = append(s.collections[kind], record{
			ID: id, Title: it.Title, Description: it.Description, Category: string(it.Category),
		})
	}
}

// Snapshot returns the current contents of a collection.
func (s *Server) Snapshot(kind model.Kind) []model.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Item, 0, len(s.collections[kind]))
	for _, r := range s.collections[kind] {
		out = append(out, model.Item{
			ID: r.ID, Title: r.Title, Description: r.Description, Category: model.Category(r.Category),
		})
	}
	return out
}

// IssueToken signs a token for email.
func (s *Server) IssueToken(email string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      email,
		"username": usernameOf(email),
		"exp":      time.Now().Add(s.opts.TokenTTL).Unix(),
	})
	return token.SignedString(s.opts.Secret)
}

func (s *Server) login(c echo.Context) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&body); err != nil {
		return c.String(http.StatusBadRequest, "invalid body")
	}
	if body.Email == "" || body.Password == "" {
		return c.String(http.StatusBadRequest, "email and password are required")
	}
	if len(s.opts.Users) > 0 {
		if pw, ok := s.opts.Users[body.Email]; !ok || pw != body.Password {
			return c.String(http.StatusUnauthorized, "invalid credentials")
		}
	}
	token, err := s.IssueToken(body.Email)
	if err != nil {
		return c.String(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  map[string]string{"username": usernameOf(body.Email), "email": body.Email},
	})
}

// usernameOf returns the local part of an email address.
func usernameOf(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}

// authorize checks the bearer token when the collection requires it.
// A present but invalid token is always rejected.
func (s *Server) authorize(c echo.Context, kind model.Kind) error {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	required := (kind == model.KindTask && s.opts.RequireAuthTasks) ||
		(kind == model.KindGoal && s.opts.RequireAuthGoals)
	if header == "" {
		if required {
			return errMissingAuthorization
		}
		return nil
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return errors.New("bad auth header")
	}
	_, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.opts.Secret, nil
	})
	return err
}

func (s *Server) list(kind model.Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := s.authorize(c, kind); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		s.mu.Lock()
		out := make([]record, len(s.collections[kind]))
		copy(out, s.collections[kind])
		s.mu.Unlock()
		return c.JSON(http.StatusOK, out)
	}
}

func (s *Server) create(kind model.Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := s.authorize(c, kind); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		rec, err := s.bindRecord(c, kind)
		if err != nil {
			return c.String(http.StatusBadRequest, err.Error())
		}

		rec.ID = uuid.NewString()
		owner, claimed := rec.ID, true
		if key := c.Request().Header.Get("Idempotency-Key"); key != "" {
			owner, claimed, err = s.opts.Deduper.Claim(c.Request().Context(), kind.Plural()+":"+key, rec.ID)
			if err != nil {
				s.log.WithError(err).Error("idempotency lookup")
				return c.String(http.StatusInternalServerError, "idempotency store unavailable")
			}
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if !claimed {
			for _, prev := range s.collections[kind] {
				if prev.ID == owner {
					return c.JSON(http.StatusCreated, prev)
				}
			}
			if s.deleted[owner] {
				return c.String(http.StatusGone, "the record created with this idempotency key was deleted")
			}
			// Still being created by another request, or by another server
			// sharing the key store.
			return c.String(http.StatusConflict, "idempotency key is in use by another request")
		}
		s.collections[kind] = append(s.collections[kind], rec)
		s.log.WithFields(log.Fields{"kind": kind, "id": rec.ID}).Info("created")
		return c.JSON(http.StatusCreated, rec)
	}
}

func (s *Server) update(kind model.Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := s.authorize(c, kind); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		rec, err := s.bindRecord(c, kind)
		if err != nil {
			return c.String(http.StatusBadRequest, err.Error())
		}
		id := c.Param("id")

		s.mu.Lock()
		defer s.mu.Unlock()
		items := s.collections[kind]
		for i := range items {
			if items[i].ID != id {
				continue
			}
			rec.ID = id
			items[i] = rec
			if s.opts.PartialUpdates {
				return c.JSON(http.StatusOK, map[string]string{"_id": id, "title": rec.Title})
			}
			return c.JSON(http.StatusOK, rec)
		}
		return c.String(http.StatusNotFound, fmt.Sprintf("%s %s not found", kind, id))
	}
}

func (s *Server) remove(kind model.Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := s.authorize(c, kind); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		id := c.Param("id")

		s.mu.Lock()
		defer s.mu.Unlock()
		items := s.collections[kind]
		for i := range items {
			if items[i].ID == id {
				s.collections[kind] = append(items[:i:i], items[i+1:]...)
				s.deleted[id] = true
				return c.NoContent(http.StatusNoContent)
			}
		}
		return c.String(http.StatusNotFound, fmt.Sprintf("%s %s not found", kind, id))
	}
}

func (s *Server) bindRecord(c echo.Context, kind model.Kind) (record, error) {
	var p payload
	if err := c.Bind(&p); err != nil {
		return record{}, errors.New("invalid body")
	}
	d := model.Draft{Title: p.Title, Description: p.Description, Category: model.Category(p.Category)}
	if err := d.Validate(kind); err != nil {
		return record{}, err
	}
	if !kind.HasDescription() {
		d.Description = ""
	}
	return record{Title: d.Title, Description: d.Description, Category: string(d.Category)}, nil
}
