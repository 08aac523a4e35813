package web

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BetterCallFirewall/scanportal/internal/config"
)

func TestAuthMe(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/me", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"Invalid token"}`))
			return
		}
		w.Write([]byte(`{"user":{"id":1,"email":"a@b.c"}}`))
	})

	t.Run("missing cookie", func(t *testing.T) {
		rec := env.do(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"Authentication required"}`, rec.Body.String())
	})

	t.Run("valid token", func(t *testing.T) {
		rec := env.do(withToken(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil), "good"))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"user":{"id":1,"email":"a@b.c"}}`, rec.Body.String())
	})

	t.Run("backend rejects token", func(t *testing.T) {
		rec := env.do(withToken(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil), "bad"))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"Failed to get user info"}`, rec.Body.String())
	})
}

func TestAuthMeBackendDown(t *testing.T) {
	env := newTestEnvWithConfig(t, testConfig("http://127.0.0.1:1"))

	rec := env.do(withToken(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil), "tok"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to fetch user info"}`, rec.Body.String())
}

func TestOAuthStart(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/github":
			w.Write([]byte(`{"success":true,"auth_url":"https://github.com/login/oauth/authorize?client_id=x"}`))
		case "/api/auth/google":
			w.Write([]byte(`{"success":false,"error":"Google OAuth not configured"}`))
		}
	})

	rec := env.do(httptest.NewRequest(http.MethodGet, "/auth/github", nil))
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "https://github.com/login/oauth/authorize?client_id=x", rec.Header().Get("Location"))

	rec = env.do(httptest.NewRequest(http.MethodGet, "/auth/google", nil))
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "http://portal.test/landing?error=google_auth_failed", rec.Header().Get("Location"))
}

func TestOAuthStartBackendError(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	rec := env.do(httptest.NewRequest(http.MethodGet, "/auth/github", nil))
	assert.Equal(t, "http://portal.test/landing?error=github_auth_failed", rec.Header().Get("Location"))
}

func TestAuthSuccessSetsCookie(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {})

	rec := env.do(httptest.NewRequest(http.MethodGet, "/auth/success?token=jwt.value.here", nil))
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "http://portal.test/dashboard", rec.Header().Get("Location"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, config.AuthCookieName, c.Name)
	assert.Equal(t, "jwt.value.here", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, int((7 * 24 * time.Hour).Seconds()), c.MaxAge)
	assert.False(t, c.HttpOnly)
	assert.False(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
}

func TestAuthSuccessSecureInProduction(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Auth.SecureCookie = true
	env := newTestEnvWithConfig(t, cfg)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/auth/success?token=t", nil))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].Secure)
}

func TestAuthSuccessRedirects(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {})

	rec := env.do(httptest.NewRequest(http.MethodGet, "/auth/success?error=access_denied&token=ignored", nil))
	assert.Equal(t, "http://portal.test/auth/error?error=access_denied", rec.Header().Get("Location"))
	assert.Empty(t, rec.Result().Cookies())

	rec = env.do(httptest.NewRequest(http.MethodGet, "/auth/success", nil))
	assert.Equal(t, "http://portal.test/landing", rec.Header().Get("Location"))
}

func TestAuthError(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {})

	rec := env.do(httptest.NewRequest(http.MethodGet, "/auth/error?error=state_mismatch", nil))
	assert.Equal(t, "http://portal.test/landing?error=state_mismatch", rec.Header().Get("Location"))

	rec = env.do(httptest.NewRequest(http.MethodGet, "/auth/error", nil))
	assert.Equal(t, "http://portal.test/landing?error=authentication_failed", rec.Header().Get("Location"))
}

func TestLogout(t *testing.T) {
	var called atomic.Bool
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		called.Store(true)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/logout", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte(`{"success":true}`))
	})

	rec := env.do(withToken(httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil), "tok"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called.Load())

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, config.AuthCookieName, cookies[0].Name)
	assert.Equal(t, -1, cookies[0].MaxAge)
}
