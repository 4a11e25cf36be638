package gateway

import (
	"context"
	"fmt"
	"strings"
)

// User is the account object returned by the login endpoint.
type User struct {
	ID       string `json:"_id,omitempty"`
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
}

// DisplayName picks the most specific name the service provided.
func (u User) DisplayName() string {
	switch {
	case u.Username != "":
		return u.Username
	case u.Name != "":
		return u.Name
	default:
		return u.Email
	}
}

// LoginResult is the body of a successful login.
type LoginResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Auth talks to the authentication endpoint.
type Auth struct {
	client *Client
	path   string
}

// NewAuth returns an Auth that posts credentials to path.
func NewAuth(c *Client, path string) *Auth {
	return &Auth{client: c, path: path}
}

// Login exchanges email and password for a bearer token.
func (a *Auth) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return LoginResult{}, fmt.Errorf("email and password are required")
	}

	body := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{Email: email, Password: password}

	var res LoginResult
	if err := a.client.Post(ctx, a.path, body, &res); err != nil {
		return LoginResult{}, fmt.Errorf("logging in: %w", err)
	}
	if res.Token == "" {
		return LoginResult{}, fmt.Errorf("logging in: service returned no token")
	}
	if res.User.Email == "" {
		res.User.Email = email
	}
	return res, nil
}
