package web

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>portal</html>"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets", "app.js"), []byte("console.log(1)"), 0o644))

	cfg := testConfig("http://127.0.0.1:1")
	cfg.Web.StaticDir = dir
	return newTestEnvWithConfig(t, cfg)
}

func TestPages(t *testing.T) {
	env := staticEnv(t)

	t.Run("protected page without cookie", func(t *testing.T) {
		rec := env.do(httptest.NewRequest(http.MethodGet, "/dashboard", nil))
		assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
		assert.Equal(t, "/login?redirect=%2Fdashboard", rec.Header().Get("Location"))
	})

	t.Run("protected page with cookie", func(t *testing.T) {
		rec := env.do(withToken(httptest.NewRequest(http.MethodGet, "/dashboard", nil), "tok"))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "portal")
		assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	})

	t.Run("asset", func(t *testing.T) {
		rec := env.do(httptest.NewRequest(http.MethodGet, "/assets/app.js", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "console.log(1)", rec.Body.String())
	})

	t.Run("missing asset falls back to index", func(t *testing.T) {
		rec := env.do(httptest.NewRequest(http.MethodGet, "/landing/missing.css", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "portal")
	})

	t.Run("root redirects", func(t *testing.T) {
		rec := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, "/landing", rec.Header().Get("Location"))
	})

	t.Run("unknown api route", func(t *testing.T) {
		rec := env.do(httptest.NewRequest(http.MethodGet, "/api/nope", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), `"error":"Not found"`)
	})

	t.Run("post to page", func(t *testing.T) {
		rec := env.do(httptest.NewRequest(http.MethodPost, "/landing", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestPagesWithoutStaticDir(t *testing.T) {
	env := newTestEnvWithConfig(t, testConfig("http://127.0.0.1:1"))

	rec := env.do(httptest.NewRequest(http.MethodGet, "/landing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndRequestID(t *testing.T) {
	env := newTestEnvWithConfig(t, testConfig("http://127.0.0.1:1"))

	rec := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Contains(t, rec.Body.String(), `"reportCache"`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnvWithConfig(t, testConfig("http://127.0.0.1:1"))

	req := httptest.NewRequest(http.MethodOptions, "/api/results", nil)
	req.Header.Set("Origin", "http://portal.test")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := env.do(req)

	assert.Equal(t, "http://portal.test", rec.Header().Get("Access-Control-Allow-Origin"))
}
