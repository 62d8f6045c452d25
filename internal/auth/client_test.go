package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostel-sync-backend/config"
	"hostel-sync-backend/internal/model"
)

func newAuthServer(t *testing.T) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/token" && r.URL.Query().Get("grant_type") == "password":
			var creds map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
			if creds["password"] != "correct" {
				http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "token-123",
				"refresh_token": "refresh-123",
				"expires_in":    3600,
				"user": map[string]any{
					"id":    "A1",
					"email": creds["email"],
					"user_metadata": map[string]any{
						"name": "Warden",
						"role": "admin",
					},
				},
			})
		case r.URL.Path == "/logout":
			assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusNoContent)
		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)

	return NewClient(&config.AuthConfig{URL: server.URL, APIKey: "anon-key"}), server
}

func TestSignIn_EstablishesSession(t *testing.T) {
	client, _ := newAuthServer(t)

	var observed []*Session
	client.OnSessionChange(func(s *Session) { observed = append(observed, s) })

	session, err := client.SignIn(context.Background(), "warden@example.com", "correct")
	require.NoError(t, err)
	assert.Equal(t, "token-123", session.AccessToken)
	assert.Equal(t, "Warden", session.User.Metadata.Name)

	identity := session.Identity()
	assert.Equal(t, "A1", identity.ID)
	assert.True(t, identity.IsAdmin())

	require.Len(t, observed, 1)
	assert.Same(t, session, observed[0])
	assert.Same(t, session, client.Session())
}

func TestSignIn_BadCredentials(t *testing.T) {
	client, _ := newAuthServer(t)

	_, err := client.SignIn(context.Background(), "warden@example.com", "wrong")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Nil(t, client.Session())
}

func TestSignOut_NotifiesListenersWithNil(t *testing.T) {
	client, _ := newAuthServer(t)

	_, err := client.SignIn(context.Background(), "warden@example.com", "correct")
	require.NoError(t, err)

	var observed []*Session
	client.OnSessionChange(func(s *Session) { observed = append(observed, s) })

	require.NoError(t, client.SignOut(context.Background()))
	require.Len(t, observed, 1)
	assert.Nil(t, observed[0])
	assert.Nil(t, client.Session())
}

func TestSignOut_WithoutSessionIsNoop(t *testing.T) {
	client, _ := newAuthServer(t)

	fired := false
	client.OnSessionChange(func(*Session) { fired = true })

	require.NoError(t, client.SignOut(context.Background()))
	assert.False(t, fired)
}

func TestIdentityIsAdmin(t *testing.T) {
	assert.True(t, Identity{Role: model.RoleAdmin}.IsAdmin())
	assert.False(t, Identity{Role: model.RoleStudent}.IsAdmin())
	assert.False(t, Identity{}.IsAdmin())
}
