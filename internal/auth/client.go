package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"hostel-sync-backend/config"
	"hostel-sync-backend/internal/model"
)

// Identity is the authenticated caller on whose behalf an operation runs.
type Identity struct {
	ID   string
	Name string
	Role model.Role
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool { return i.Role == model.RoleAdmin }

// SessionUser is the identity provider's view of the signed-in user.
type SessionUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Metadata struct {
		Name string     `json:"name"`
		Role model.Role `json:"role"`
	} `json:"user_metadata"`
}

// Session is an authenticated session with the identity provider. The token
// is treated as an opaque bearer string; refresh handling is the provider's
// concern.
type Session struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int         `json:"expires_in"`
	User         SessionUser `json:"user"`
}

// Identity extracts the caller identity a session carries.
func (s *Session) Identity() Identity {
	return Identity{ID: s.User.ID, Name: s.User.Metadata.Name, Role: s.User.Metadata.Role}
}

// APIError is a non-2xx response from the identity provider.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("identity provider returned %d: %s", e.Status, e.Message)
}

// Client talks to a GoTrue-shaped identity provider.
type Client struct {
	base   string
	apiKey string
	client *http.Client

	mu        sync.Mutex
	session   *Session
	listeners []func(*Session)
}

// NewClient creates an identity provider client.
func NewClient(cfg *config.AuthConfig) *Client {
	return &Client{
		base:   strings.TrimRight(cfg.URL, "/"),
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// OnSessionChange registers a callback invoked with the new session after
// every sign-in and with nil after sign-out.
func (c *Client) OnSessionChange(fn func(*Session)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Session returns the current session, or nil when signed out.
func (c *Client) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// SignIn performs a password-grant sign-in.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var session Session
	payload := map[string]string{"email": email, "password": password}
	if err := c.post(ctx, "/token?grant_type=password", "", payload, &session); err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	c.setSession(&session)
	return &session, nil
}

// SignUp registers a new account with role metadata and signs it in.
func (c *Client) SignUp(ctx context.Context, email, password, name string, role model.Role) (*Session, error) {
	payload := map[string]any{
		"email":    email,
		"password": password,
		"data":     map[string]any{"name": name, "role": role},
	}
	var session Session
	if err := c.post(ctx, "/signup", "", payload, &session); err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}
	c.setSession(&session)
	return &session, nil
}

// SignOut invalidates the current session. Listeners observe a nil session
// even when the remote revocation fails, so scoped resources are torn down.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()
	if session == nil {
		return nil
	}

	err := c.post(ctx, "/logout", session.AccessToken, nil, nil)
	c.setSession(nil)
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

func (c *Client) setSession(s *Session) {
	c.mu.Lock()
	c.session = s
	listeners := make([]func(*Session), len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(s)
	}
}

func (c *Client) post(ctx context.Context, path, bearer string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}
	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
