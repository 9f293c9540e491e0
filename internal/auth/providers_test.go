package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"atomvideo/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// fakeProvider serves a token endpoint plus the given JSON routes.
func fakeProvider(t *testing.T, routes map[string]any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access","token_type":"bearer"}`))
	})
	for path, body := range routes {
		body := body
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer access" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(body)
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func endpoint(srv *httptest.Server) oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:   srv.URL + "/authorize",
		TokenURL:  srv.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
}

func TestGoogleStrategy_Exchange(t *testing.T) {
	srv := fakeProvider(t, map[string]any{
		"/userinfo": map[string]any{
			"sub": "g-123", "email": "jane@example.com", "email_verified": true,
			"name": "Jane Doe", "picture": "https://img/jane.png",
		},
	})
	g := NewGoogleStrategy("id", "secret", "http://api/auth/google/callback")
	g.Config.Endpoint = endpoint(srv)
	g.UserInfoURL = srv.URL + "/userinfo"

	p, err := g.Exchange(context.Background(), "good-code")
	require.NoError(t, err)
	assert.Equal(t, &Profile{
		Provider: ProviderGoogle, ID: "g-123", Email: "jane@example.com",
		Name: "Jane Doe", AvatarURL: "https://img/jane.png",
	}, p)

	_, err = g.Exchange(context.Background(), "bad-code")
	assert.Error(t, err)
}

func TestGoogleStrategy_UnverifiedEmailDropped(t *testing.T) {
	srv := fakeProvider(t, map[string]any{
		"/userinfo": map[string]any{"sub": "g-1", "email": "x@example.com", "email_verified": false},
	})
	g := NewGoogleStrategy("id", "secret", "")
	g.Config.Endpoint = endpoint(srv)
	g.UserInfoURL = srv.URL + "/userinfo"

	p, err := g.Exchange(context.Background(), "good-code")
	require.NoError(t, err)
	assert.Empty(t, p.Email)
}

func TestGitHubStrategy_Exchange(t *testing.T) {
	tests := []struct {
		name      string
		user      map[string]any
		emails    []map[string]any
		wantEmail string
	}{
		{
			name:      "public email",
			user:      map[string]any{"id": 99, "login": "octo", "name": "Octo Cat", "email": "octo@example.com", "avatar_url": "a"},
			wantEmail: "octo@example.com",
		},
		{
			name: "private email falls back to primary verified",
			user: map[string]any{"id": 99, "login": "octo"},
			emails: []map[string]any{
				{"email": "old@example.com", "primary": false, "verified": true},
				{"email": "main@example.com", "primary": true, "verified": true},
			},
			wantEmail: "main@example.com",
		},
		{
			name:      "no usable email",
			user:      map[string]any{"id": 99, "login": "octo"},
			emails:    []map[string]any{{"email": "x@example.com", "primary": true, "verified": false}},
			wantEmail: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			routes := map[string]any{"/user": tt.user}
			if tt.emails != nil {
				routes["/user/emails"] = tt.emails
			}
			srv := fakeProvider(t, routes)
			g := NewGitHubStrategy("id", "secret", "")
			g.Config.Endpoint = endpoint(srv)
			g.APIBase = srv.URL

			p, err := g.Exchange(context.Background(), "good-code")
			require.NoError(t, err)
			assert.Equal(t, ProviderGitHub, p.Provider)
			assert.Equal(t, "99", p.ID)
			assert.Equal(t, "octo", p.Login)
			assert.Equal(t, tt.wantEmail, p.Email)
		})
	}
}

func TestStrategies_AuthCodeURL(t *testing.T) {
	g := NewGoogleStrategy("gid", "s", "http://api/auth/google/callback")
	u, err := url.Parse(g.AuthCodeURL("st4te"))
	require.NoError(t, err)
	assert.Equal(t, "st4te", u.Query().Get("state"))
	assert.Equal(t, "gid", u.Query().Get("client_id"))
	assert.Equal(t, "http://api/auth/google/callback", u.Query().Get("redirect_uri"))

	gh := NewGitHubStrategy("hid", "s", "")
	u, err = url.Parse(gh.AuthCodeURL("abc"))
	require.NoError(t, err)
	assert.Equal(t, "github.com", u.Host)
	assert.Equal(t, "abc", u.Query().Get("state"))
}

func TestRegistry(t *testing.T) {
	cfg := &config.Config{
		APIURL:             "https://api.atom.example/",
		GitHubClientID:     "gh",
		GitHubClientSecret: "secret",
	}
	r := NewRegistryFromConfig(cfg)
	assert.Equal(t, []string{"github"}, r.Names())

	s, err := r.Get("GitHub")
	require.NoError(t, err)
	assert.Equal(t, "https://api.atom.example/auth/github/callback", s.(*GitHubStrategy).Config.RedirectURL)

	_, err = r.Get("google")
	assert.ErrorIs(t, err, ErrUnknownProvider)

	var nilRegistry *Registry
	_, err = nilRegistry.Get("github")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestNewState(t *testing.T) {
	a, err := NewState()
	require.NoError(t, err)
	b, err := NewState()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 32)
}
