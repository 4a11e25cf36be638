// Package session owns the authenticated user context. A Manager is created
// once at start-up and handed to everything that needs the token; there is
// no package-level state.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	log "github.com/sirupsen/logrus"

	"github.com/nhle/nailedit/internal/credential"
	"github.com/nhle/nailedit/internal/gateway"
)

const (
	tokenKey    = "token"
	usernameKey = "username"
)

// Session is an immutable snapshot of the logged-in user.
type Session struct {
	Token     string
	Username  string
	ExpiresAt time.Time
}

// Valid reports whether the session carries a token that has not expired.
func (s Session) Valid(now time.Time) bool {
	if s.Token == "" {
		return false
	}
	return s.ExpiresAt.IsZero() || now.Before(s.ExpiresAt)
}

// Secrets is the subset of credential.Store used by the Manager.
type Secrets interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// Authenticator exchanges credentials for a token.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (gateway.LoginResult, error)
}

// Manager tracks the current session. It is safe for concurrent use and
// implements gateway.TokenSource.
type Manager struct {
	secrets Secrets
	auth    Authenticator
	log     *log.Logger
	now     func() time.Time

	mu      sync.RWMutex
	current Session
}

// NewManager creates a logged-out manager. Call Load to restore a saved
// session.
func NewManager(secrets Secrets, auth Authenticator, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Manager{secrets: secrets, auth: auth, log: logger, now: time.Now}
}

// Load restores the saved session, if any. An expired token is removed and
// the manager stays logged out.
func (m *Manager) Load() (Session, error) {
	token, err := m.secrets.Get(tokenKey)
	if errors.Is(err, credential.ErrNotFound) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("loading session: %w", err)
	}
	username, err := m.secrets.Get(usernameKey)
	if err != nil && !errors.Is(err, credential.ErrNotFound) {
		return Session{}, fmt.Errorf("loading session: %w", err)
	}

	s := Session{Token: token, Username: username, ExpiresAt: expiry(token)}
	if !s.Valid(m.now()) {
		m.log.WithField("username", username).Info("saved session expired")
		if err := m.clear(); err != nil {
			return Session{}, err
		}
		return Session{}, nil
	}

	m.mu.Lock()
	m.current = s
	m.mu.Unlock()
	return s, nil
}

// Login authenticates and persists the resulting session.
func (m *Manager) Login(ctx context.Context, email, password string) (Session, error) {
	if m.auth == nil {
		return Session{}, errors.New("login is not configured")
	}
	res, err := m.auth.Login(ctx, email, password)
	if err != nil {
		return Session{}, err
	}

	s := Session{
		Token:     res.Token,
		Username:  res.User.DisplayName(),
		ExpiresAt: expiry(res.Token),
	}
	if err := m.secrets.Set(tokenKey, s.Token); err != nil {
		return Session{}, fmt.Errorf("saving session: %w", err)
	}
	if err := m.secrets.Set(usernameKey, s.Username); err != nil {
		return Session{}, fmt.Errorf("saving session: %w", err)
	}

	m.mu.Lock()
	m.current = s
	m.mu.Unlock()
	m.log.WithField("username", s.Username).Info("logged in")
	return s, nil
}

// Logout clears the in-memory session and the saved credentials.
func (m *Manager) Logout() error {
	m.mu.Lock()
	username := m.current.Username
	m.current = Session{}
	m.mu.Unlock()

	if err := m.clear(); err != nil {
		return err
	}
	m.log.WithField("username", username).Info("logged out")
	return nil
}

// Current returns the active session. An expired session is reported as
// the zero Session.
func (m *Manager) Current() Session {
	m.mu.RLock()
	s := m.current
	m.mu.RUnlock()
	if !s.Valid(m.now()) {
		return Session{}
	}
	return s
}

// LoggedIn reports whether a valid session is active.
func (m *Manager) LoggedIn() bool {
	return m.Current().Token != ""
}

// Token implements gateway.TokenSource.
func (m *Manager) Token() string {
	return m.Current().Token
}

func (m *Manager) clear() error {
	if err := m.secrets.Delete(tokenKey); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	if err := m.secrets.Delete(usernameKey); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}

// expiry reads the exp claim without verifying the signature; the server
// remains the authority on validity. Tokens that are not JWTs never expire
// locally.
func expiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	switch exp := claims["exp"].(type) {
	case float64:
		return time.Unix(int64(exp), 0)
	case int64:
		return time.Unix(exp, 0)
	}
	return time.Time{}
}
