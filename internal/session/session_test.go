package session

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/golang-jwt/jwt/v4"
	log "github.com/sirupsen/logrus"

	"github.com/nhle/nailedit/internal/credential"
	"github.com/nhle/nailedit/internal/gateway"
	"github.com/nhle/nailedit/internal/mockapi"
)

func quietLogger() *log.Logger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "ana@example.com",
		"exp": exp.Unix(),
	}).SignedString([]byte("test"))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return tok
}

func newManager(t *testing.T) (*Manager, *credential.Store) {
	t.Helper()
	api := mockapi.New(mockapi.Options{
		Users:  map[string]string{"ana@example.com": "secret"},
		Logger: quietLogger(),
	})
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	client := gateway.NewClient(gateway.Options{BaseURL: srv.URL, Logger: quietLogger()})
	secrets := credential.New(keyring.NewArrayKeyring(nil))
	return NewManager(secrets, gateway.NewAuth(client, "/api/auth/login"), quietLogger()), secrets
}

func TestLoginLogoutLifecycle(t *testing.T) {
	m, secrets := newManager(t)

	if m.LoggedIn() || m.Token() != "" {
		t.Fatal("new manager should be logged out")
	}

	s, err := m.Login(context.Background(), "ana@example.com", "secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if s.Username != "ana" || s.Token == "" || s.ExpiresAt.IsZero() {
		t.Fatalf("unexpected session: %+v", s)
	}
	if m.Token() != s.Token {
		t.Fatal("Token() should return the session token")
	}
	if saved, _ := secrets.Get(tokenKey); saved != s.Token {
		t.Fatalf("token not persisted: %q", saved)
	}

	if err := m.Logout(); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if m.LoggedIn() {
		t.Fatal("still logged in after Logout")
	}
	if _, err := secrets.Get(tokenKey); err != credential.ErrNotFound {
		t.Fatalf("token still stored after Logout: %v", err)
	}
}

func TestLoginFailureKeepsLoggedOut(t *testing.T) {
	m, _ := newManager(t)
	if _, err := m.Login(context.Background(), "ana@example.com", "nope"); !gateway.IsUnauthorized(err) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if m.LoggedIn() {
		t.Fatal("failed login must not create a session")
	}
}

func TestLoadRestoresSavedSession(t *testing.T) {
	secrets := credential.New(keyring.NewArrayKeyring(nil))
	token := signed(t, time.Now().Add(time.Hour))
	_ = secrets.Set(tokenKey, token)
	_ = secrets.Set(usernameKey, "ana")

	m := NewManager(secrets, nil, quietLogger())
	s, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Username != "ana" || m.Token() != token {
		t.Fatalf("unexpected session: %+v", s)
	}
}

func TestLoadDropsExpiredSession(t *testing.T) {
	secrets := credential.New(keyring.NewArrayKeyring(nil))
	_ = secrets.Set(tokenKey, signed(t, time.Now().Add(-time.Minute)))
	_ = secrets.Set(usernameKey, "ana")

	m := NewManager(secrets, nil, quietLogger())
	s, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Token != "" || m.LoggedIn() {
		t.Fatalf("expired session should be dropped, got %+v", s)
	}
	if _, err := secrets.Get(tokenKey); err != credential.ErrNotFound {
		t.Fatal("expired token should be removed from the keyring")
	}
}

func TestCurrentExpiresInPlace(t *testing.T) {
	secrets := credential.New(keyring.NewArrayKeyring(nil))
	_ = secrets.Set(tokenKey, signed(t, time.Now().Add(time.Hour)))

	m := NewManager(secrets, nil, quietLogger())
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if m.Token() != "" {
		t.Fatal("token past exp should not be handed out")
	}
}

func TestOpaqueTokenNeverExpires(t *testing.T) {
	s := Session{Token: "opaque", ExpiresAt: expiry("opaque")}
	if !s.ExpiresAt.IsZero() || !s.Valid(time.Now().Add(24*365*time.Hour)) {
		t.Fatalf("opaque token should be valid indefinitely: %+v", s)
	}
}
