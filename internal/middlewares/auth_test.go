package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/BetterCallFirewall/scanportal/internal/config"
)

func TestAuthRedirect(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := AuthRedirect(config.DefaultRoutes())(ok)

	tests := []struct {
		name     string
		path     string
		token    string
		status   int
		location string
	}{
		{"protected without cookie", "/dashboard", "", http.StatusTemporaryRedirect, "/login?redirect=%2Fdashboard"},
		{"nested protected without cookie", "/my-scans/12", "", http.StatusTemporaryRedirect, "/login?redirect=%2Fmy-scans%2F12"},
		{"protected with cookie", "/dashboard", "tok", http.StatusOK, ""},
		{"login with cookie", "/login", "tok", http.StatusTemporaryRedirect, "/dashboard"},
		{"login without cookie", "/login", "", http.StatusOK, ""},
		{"landing with cookie", "/landing", "tok", http.StatusTemporaryRedirect, "/dashboard"},
		{"landing without cookie", "/landing", "", http.StatusOK, ""},
		{"root with cookie", "/", "tok", http.StatusTemporaryRedirect, "/dashboard"},
		{"root without cookie", "/", "", http.StatusTemporaryRedirect, "/landing"},
		{"api untouched", "/api/history", "", http.StatusOK, ""},
		{"static untouched", "/_next/static/chunk.js", "", http.StatusOK, ""},
		{"favicon untouched", "/favicon.ico", "", http.StatusOK, ""},
		{"unlisted page", "/about", "", http.StatusOK, ""},
		{"auth callback public", "/auth/success", "", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.token != "" {
				req.AddCookie(&http.Cookie{Name: config.AuthCookieName, Value: tt.token})
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.location, rec.Header().Get("Location"))
		})
	}
}

func TestAuthRedirectEmptyCookieCountsAsMissing(t *testing.T) {
	handler := AuthRedirect(config.DefaultRoutes())(http.NotFoundHandler())

	req := httptest.NewRequest(http.MethodGet, "/scan-file", nil)
	req.AddCookie(&http.Cookie{Name: config.AuthCookieName, Value: ""})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/login?redirect=%2Fscan-file", rec.Header().Get("Location"))
}

func TestAuthRedirectPublicSubtree(t *testing.T) {
	routes := config.Routes{
		Protected: []string{"/my-scans"},
		Public:    []string{"/my-scans/shared"},
	}
	handler := AuthRedirect(routes)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/my-scans/shared/7", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/my-scans/7", nil))
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/login?redirect=%2Fmy-scans%2F7", rec.Header().Get("Location"))
}

func TestAuthRedirectCustomRoutes(t *testing.T) {
	routes := config.Routes{Protected: []string{"/admin"}}
	handler := AuthRedirect(routes)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/users", nil))
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
}
