package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"atomvideo/internal/cache"
	"atomvideo/internal/config"
	"atomvideo/internal/models"
	"atomvideo/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:         "test",
		APIURL:      "http://localhost:8375",
		FrontendURL: "http://localhost:5173",
		JWTSecret:   "test-secret-key-12345678901234567890123456789012",
		JWTTTLHours: 1,
		UploadMaxMB: 8,
	}
}

func newTestServer(t *testing.T, cfg *config.Config, rdb *redis.Client) (*Server, *gorm.DB) {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	db := testutil.NewTestDB(t)
	s, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)
	return s, db
}

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func tokenFor(t *testing.T, s *Server, u *models.User) string {
	t.Helper()
	token, _, err := s.tokens.Issue(u)
	require.NoError(t, err)
	return token
}

func doJSON(t *testing.T, s *Server, method, path, token string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func TestHealthEndpoints(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)

	resp := doJSON(t, s, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, s, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	decode(t, resp, &body)
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "healthy", body.Checks["database"])
	assert.Equal(t, "disabled", body.Checks["redis"])
}

func TestReadiness_WithRedis(t *testing.T) {
	_, rdb := newMiniRedis(t)
	s, _ := newTestServer(t, nil, rdb)

	resp := doJSON(t, s, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Checks map[string]string `json:"checks"`
	}
	decode(t, resp, &body)
	assert.Equal(t, "healthy", body.Checks["redis"])
}

func TestCreateVideo_WithoutSession(t *testing.T) {
	s, db := newTestServer(t, nil, nil)
	owner := testutil.CreateUser(t, db)

	resp := doJSON(t, s, http.MethodPost, "/api/videos", "", map[string]any{
		"title":    "t",
		"url":      "u",
		"duration": 10,
		"userId":   owner.ID,
		"tags":     []string{"#Go", "go", "music"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var video models.Video
	decode(t, resp, &video)
	assert.NotZero(t, video.ID)
	assert.Equal(t, owner.ID, video.UserID)
	assert.Equal(t, models.VisibilityPublic, video.Visibility)
	assert.Len(t, video.Tags, 2)
}

func TestCreateVideo_Validation(t *testing.T) {
	s, db := newTestServer(t, nil, nil)
	owner := testutil.CreateUser(t, db)

	tests := []struct {
		name   string
		body   map[string]any
		status int
	}{
		{"missing title", map[string]any{"url": "u", "duration": 10, "userId": owner.ID}, http.StatusBadRequest},
		{"zero duration", map[string]any{"title": "t", "url": "u", "duration": 0, "userId": owner.ID}, http.StatusBadRequest},
		{"unknown owner", map[string]any{"title": "t", "url": "u", "duration": 10, "userId": 9999}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, s, http.MethodPost, "/api/videos", "", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestGetVideo_NotFound(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)

	resp := doJSON(t, s, http.MethodGet, "/api/videos/9999", "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body models.ErrorResponse
	decode(t, resp, &body)
	assert.Equal(t, "Video not found", body.Error)
}

func TestGetVideo_InvalidID(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)

	resp := doJSON(t, s, http.MethodGet, "/api/videos/abc", "", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body models.ErrorResponse
	decode(t, resp, &body)
	assert.Equal(t, "Invalid ID", body.Error)
}

func TestGetVideo_PrivateHiddenFromOthers(t *testing.T) {
	s, db := newTestServer(t, nil, nil)
	owner := testutil.CreateUser(t, db)
	other := testutil.CreateUser(t, db)
	video := testutil.CreateVideo(t, db, owner.ID, func(v *models.Video) {
		v.Visibility = models.VisibilityPrivate
	})
	path := "/api/videos/" + itoa(video.ID)

	assert.Equal(t, http.StatusNotFound, doJSON(t, s, http.MethodGet, path, "", nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, doJSON(t, s, http.MethodGet, path, tokenFor(t, s, other), nil).StatusCode)
	assert.Equal(t, http.StatusOK, doJSON(t, s, http.MethodGet, path, tokenFor(t, s, owner), nil).StatusCode)
}

func TestDeleteVideo(t *testing.T) {
	s, db := newTestServer(t, nil, nil)
	owner := testutil.CreateUser(t, db)
	other := testutil.CreateUser(t, db)
	video := testutil.CreateVideo(t, db, owner.ID)
	path := "/api/videos/" + itoa(video.ID)

	t.Run("requires session", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, doJSON(t, s, http.MethodDelete, path, "", nil).StatusCode)
	})
	t.Run("missing video", func(t *testing.T) {
		resp := doJSON(t, s, http.MethodDelete, "/api/videos/9999", tokenFor(t, s, owner), nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
	t.Run("not owner", func(t *testing.T) {
		resp := doJSON(t, s, http.MethodDelete, path, tokenFor(t, s, other), nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
	t.Run("owner", func(t *testing.T) {
		resp := doJSON(t, s, http.MethodDelete, path, tokenFor(t, s, owner), nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, http.StatusNotFound, doJSON(t, s, http.MethodGet, path, "", nil).StatusCode)
	})
}

func TestRecordView(t *testing.T) {
	s, db := newTestServer(t, nil, nil)
	owner := testutil.CreateUser(t, db)
	video := testutil.CreateVideo(t, db, owner.ID)

	resp := doJSON(t, s, http.MethodPost, "/api/videos/"+itoa(video.ID)+"/view", "", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	var views int64
	require.NoError(t, db.Model(&models.Video{}).Where("id = ?", video.ID).Pluck("views", &views).Error)
	assert.Equal(t, int64(1), views)
}

func TestAuthRequired_Tokens(t *testing.T) {
	s, db := newTestServer(t, nil, nil)
	user := testutil.CreateUser(t, db)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"valid token", "Bearer " + tokenFor(t, s, user), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := s.App().Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestLogout_RevokesToken(t *testing.T) {
	_, rdb := newMiniRedis(t)
	s, db := newTestServer(t, nil, rdb)
	user := testutil.CreateUser(t, db)
	token := tokenFor(t, s, user)

	require.Equal(t, http.StatusOK, doJSON(t, s, http.MethodGet, "/api/auth/me", token, nil).StatusCode)
	require.Equal(t, http.StatusOK, doJSON(t, s, http.MethodPost, "/api/auth/logout", token, nil).StatusCode)

	resp := doJSON(t, s, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var body models.ErrorResponse
	decode(t, resp, &body)
	assert.Equal(t, "Token has been revoked", body.Error)
}

func TestSubscriptions(t *testing.T) {
	s, db := newTestServer(t, nil, nil)
	fan := testutil.CreateUser(t, db)
	creator := testutil.CreateUser(t, db)
	fanToken := tokenFor(t, s, fan)

	resp := doJSON(t, s, http.MethodPost, "/api/subscriptions", fanToken, map[string]any{"creatorId": fan.ID})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, s, http.MethodPost, "/api/subscriptions", fanToken, map[string]any{"creatorId": creator.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var sub models.Subscription
	decode(t, resp, &sub)
	assert.True(t, sub.Notify)

	resp = doJSON(t, s, http.MethodPost, "/api/subscriptions", fanToken, map[string]any{"creatorId": creator.ID})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = doJSON(t, s, http.MethodGet, "/api/notifications/unread-count", tokenFor(t, s, creator), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var count struct {
		Count int64 `json:"count"`
	}
	decode(t, resp, &count)
	assert.Equal(t, int64(1), count.Count)

	resp = doJSON(t, s, http.MethodDelete, "/api/subscriptions/"+itoa(creator.ID), fanToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = doJSON(t, s, http.MethodDelete, "/api/subscriptions/"+itoa(creator.ID), fanToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, s, http.MethodGet, "/api/subscriptions/status/abc", fanToken, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body models.ErrorResponse
	decode(t, resp, &body)
	assert.Equal(t, "Invalid creator ID", body.Error)
}

func TestAdminRoutes(t *testing.T) {
	s, db := newTestServer(t, nil, nil)
	user := testutil.CreateUser(t, db)
	admin := testutil.CreateUser(t, db, func(u *models.User) { u.Role = models.RoleAdmin })

	resp := doJSON(t, s, http.MethodGet, "/api/admin/feature-flags", tokenFor(t, s, user), nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	var body models.ErrorResponse
	decode(t, resp, &body)
	assert.Equal(t, "Admin access required", body.Error)

	adminToken := tokenFor(t, s, admin)
	resp = doJSON(t, s, http.MethodPut, "/api/admin/feature-flags/email_notifications", adminToken,
		map[string]string{"value": "sometimes"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, s, http.MethodPut, "/api/admin/feature-flags/email_notifications", adminToken,
		map[string]string{"value": "off"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, s, http.MethodGet, "/api/admin/feature-flags", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var flags struct {
		Raw       map[string]string `json:"raw"`
		Evaluated map[string]bool   `json:"evaluated"`
	}
	decode(t, resp, &flags)
	assert.Equal(t, "off", flags.Raw["email_notifications"])
	assert.False(t, flags.Evaluated["email_notifications"])
}

func TestSetUserRole(t *testing.T) {
	s, db := newTestServer(t, nil, nil)
	user := testutil.CreateUser(t, db)
	admin := testutil.CreateUser(t, db, func(u *models.User) { u.Role = models.RoleAdmin })
	adminToken := tokenFor(t, s, admin)

	resp := doJSON(t, s, http.MethodPut, "/api/users/"+itoa(user.ID)+"/role", tokenFor(t, s, user),
		map[string]string{"role": "admin"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, s, http.MethodPut, "/api/users/"+itoa(user.ID)+"/role", adminToken,
		map[string]string{"role": "superuser"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, s, http.MethodPut, "/api/users/"+itoa(user.ID)+"/role", adminToken,
		map[string]string{"role": "admin"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stored models.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.Equal(t, models.RoleAdmin, stored.Role)
}

func TestUpload_WithoutStorage(t *testing.T) {
	s, db := newTestServer(t, nil, nil)
	user := testutil.CreateUser(t, db)

	resp := doJSON(t, s, http.MethodPost, "/api/videos/upload", tokenFor(t, s, user), nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestOAuthRedirect(t *testing.T) {
	cfg := testConfig()
	cfg.GitHubClientID = "client-id"
	cfg.GitHubClientSecret = "client-secret"
	s, _ := newTestServer(t, cfg, nil)

	resp := doJSON(t, s, http.MethodGet, "/auth/gitlab", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, s, http.MethodGet, "/auth/github", "", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Location"), "github.com")

	var state string
	for _, c := range resp.Cookies() {
		if c.Name == oauthStateCookie {
			state = c.Value
		}
	}
	require.NotEmpty(t, state)
	assert.Contains(t, resp.Header.Get("Location"), "state="+state)
}

func TestOAuthCallback_StateMismatch(t *testing.T) {
	cfg := testConfig()
	cfg.GitHubClientID = "client-id"
	cfg.GitHubClientSecret = "client-secret"
	s, _ := newTestServer(t, cfg, nil)

	req := httptest.NewRequest(http.MethodGet, "/auth/github/callback?code=abc&state=forged", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "issued"})
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173/auth/oauth-error", resp.Header.Get("Location"))
}

func TestWSTicket(t *testing.T) {
	t.Run("unavailable without redis", func(t *testing.T) {
		s, db := newTestServer(t, nil, nil)
		user := testutil.CreateUser(t, db)
		resp := doJSON(t, s, http.MethodPost, "/api/ws/ticket", tokenFor(t, s, user), nil)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("single use", func(t *testing.T) {
		mr, rdb := newMiniRedis(t)
		s, db := newTestServer(t, nil, rdb)
		user := testutil.CreateUser(t, db)

		resp := doJSON(t, s, http.MethodPost, "/api/ws/ticket", tokenFor(t, s, user), nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body struct {
			Ticket    string `json:"ticket"`
			ExpiresIn int    `json:"expires_in"`
		}
		decode(t, resp, &body)
		require.NotEmpty(t, body.Ticket)
		assert.Equal(t, 30, body.ExpiresIn)
		assert.True(t, mr.Exists(wsTicketKey(body.Ticket)))

		// A plain GET passes authentication but is not an upgrade.
		resp = doJSON(t, s, http.MethodGet, "/api/ws?ticket="+body.Ticket, "", nil)
		assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
		assert.False(t, mr.Exists(wsTicketKey(body.Ticket)))

		resp = doJSON(t, s, http.MethodGet, "/api/ws?ticket="+body.Ticket, "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/videos", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.True(t, strings.Contains(resp.Header.Get("Access-Control-Allow-Methods"), "POST"))
}

func TestListOAuthProviders(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)
	resp := doJSON(t, s, http.MethodGet, "/api/auth/providers", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Providers []string `json:"providers"`
	}
	decode(t, resp, &body)
	assert.Empty(t, body.Providers)

	cfg := testConfig()
	cfg.GoogleClientID = "gid"
	cfg.GitHubClientID = "hid"
	s, _ = newTestServer(t, cfg, nil)
	resp = doJSON(t, s, http.MethodGet, "/api/auth/providers", "", nil)
	decode(t, resp, &body)
	assert.Equal(t, []string{"github", "google"}, body.Providers)
}

func TestGetMe_SignInMethods(t *testing.T) {
	s, db := newTestServer(t, nil, nil)
	gid := "google-123"
	user := testutil.CreateUser(t, db, func(u *models.User) { u.GoogleID = &gid })

	resp := doJSON(t, s, http.MethodGet, "/api/auth/me", tokenFor(t, s, user), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		ID          uint     `json:"id"`
		Email       string   `json:"email"`
		Providers   []string `json:"providers"`
		HasPassword bool     `json:"has_password"`
	}
	decode(t, resp, &body)
	assert.Equal(t, user.ID, body.ID)
	assert.Equal(t, user.Email, body.Email)
	assert.Equal(t, []string{"google"}, body.Providers)
	assert.False(t, body.HasPassword)
}

func TestGetMe_SignInMethodsSurviveUserCache(t *testing.T) {
	_, rdb := newMiniRedis(t)
	cache.SetClient(rdb)
	t.Cleanup(func() { cache.SetClient(nil) })

	s, db := newTestServer(t, nil, rdb)
	gid := "google-123"
	user := testutil.CreateUser(t, db, func(u *models.User) {
		u.Password = "hash"
		u.GoogleID = &gid
	})
	token := tokenFor(t, s, user)

	// Warm the user cache the way other endpoints do.
	_, err := s.userRepo.GetByID(context.Background(), user.ID)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		resp := doJSON(t, s, http.MethodGet, "/api/auth/me", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body struct {
			Providers   []string `json:"providers"`
			HasPassword bool     `json:"has_password"`
		}
		decode(t, resp, &body)
		assert.Equal(t, []string{"google"}, body.Providers, "call %d", i+1)
		assert.True(t, body.HasPassword, "call %d", i+1)
	}
}

func TestUnknownAPIRoute(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)

	resp := doJSON(t, s, http.MethodGet, "/api/nonexistent", "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	var body models.ErrorResponse
	decode(t, resp, &body)
	assert.Equal(t, "Route not found", body.Error)

	assert.Equal(t, http.StatusUnauthorized, doJSON(t, s, http.MethodGet, "/api/subscriptions", "", nil).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, doJSON(t, s, http.MethodGet, "/api/admin/feature-flags", "", nil).StatusCode)
}

func TestPublicResponsesHideOwnerEmail(t *testing.T) {
	s, db := newTestServer(t, nil, nil)
	owner := testutil.CreateUser(t, db)
	video := testutil.CreateVideo(t, db, owner.ID)

	for _, path := range []string{
		"/api/videos",
		"/api/videos/" + itoa(video.ID),
		"/api/users/" + itoa(owner.ID),
	} {
		resp := doJSON(t, s, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.NotContains(t, string(raw), owner.Email, path)
		assert.Contains(t, string(raw), owner.Username, path)
	}

	resp := doJSON(t, s, http.MethodGet, "/api/users/me", tokenFor(t, s, owner), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me struct {
		Email string `json:"email"`
	}
	decode(t, resp, &me)
	assert.Equal(t, owner.Email, me.Email)
}
