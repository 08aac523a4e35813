package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/BetterCallFirewall/scanportal/internal/backend"
	"github.com/BetterCallFirewall/scanportal/internal/config"
	"github.com/BetterCallFirewall/scanportal/internal/models"
)

func (s *Server) handleAuthMe(w http.ResponseWriter, r *http.Request) {
	token := authToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "Authentication required", "")
		return
	}

	resp, err := s.backend.Do(r.Context(), backend.Request{
		Method:      http.MethodGet,
		Path:        "/api/auth/me",
		Token:       token,
		ContentType: "application/json",
		Timeout:     s.config.Backend.Timeout,
	})
	if se, ok := backend.AsStatusError(err); ok {
		writeError(w, se.StatusCode, "Failed to get user info", "")
		return
	}
	if err == nil && !json.Valid(resp.Body) {
		err = backend.ErrInvalidJSON
	}
	if err != nil {
		s.logger.Error("[API/AUTH/ME] fetch error", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch user info", "")
		return
	}

	writeRaw(w, http.StatusOK, resp.Body)
}

// handleLogout expires the auth cookie. The backend is told as well, but its
// answer does not change the outcome.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := authToken(r); token != "" {
		_, err := s.backend.Do(r.Context(), backend.Request{
			Method:  http.MethodPost,
			Path:    "/api/auth/logout",
			Token:   token,
			Timeout: s.config.Backend.Timeout,
		})
		if err != nil {
			s.logger.Warn("[API/AUTH/LOGOUT] backend logout failed", "err", err)
		}
	}

	http.SetCookie(w, s.authCookie("", -1))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Logged out successfully",
	})
}

// handleOAuthStart asks the backend for the provider's authorization URL and
// sends the browser there.
func (s *Server) handleOAuthStart(provider string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authURL, err := s.oauthURL(r.Context(), provider)
		if err != nil {
			s.logger.Error("oauth start failed", "provider", provider, "err", err)
			http.Redirect(w, r, s.frontendURL("/landing", url.Values{"error": {provider + "_auth_failed"}}), http.StatusTemporaryRedirect)
			return
		}
		http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
	}
}

func (s *Server) oauthURL(ctx context.Context, provider string) (string, error) {
	var out models.OAuthStartResponse
	if err := s.backend.GetJSON(ctx, "/api/auth/"+provider, "", s.config.Backend.Timeout, &out); err != nil {
		return "", err
	}
	if !out.Success || out.AuthURL == "" {
		if out.Error != "" {
			return "", errors.New(out.Error)
		}
		return "", fmt.Errorf("failed to get %s auth URL", provider)
	}
	return out.AuthURL, nil
}

// handleAuthSuccess is the landing point of the OAuth flow. The backend
// redirects here with either a token or an error.
func (s *Server) handleAuthSuccess(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if errParam := q.Get("error"); errParam != "" {
		http.Redirect(w, r, s.frontendURL("/auth/error", url.Values{"error": {errParam}}), http.StatusTemporaryRedirect)
		return
	}

	if token := q.Get("token"); token != "" {
		http.SetCookie(w, s.authCookie(token, int(s.config.Auth.CookieMaxAge.Seconds())))
		http.Redirect(w, r, s.frontendURL("/dashboard", nil), http.StatusTemporaryRedirect)
		return
	}

	http.Redirect(w, r, s.frontendURL("/landing", nil), http.StatusTemporaryRedirect)
}

func (s *Server) handleAuthError(w http.ResponseWriter, r *http.Request) {
	errParam := r.URL.Query().Get("error")
	if errParam == "" {
		errParam = "authentication_failed"
	}
	http.Redirect(w, r, s.frontendURL("/landing", url.Values{"error": {errParam}}), http.StatusTemporaryRedirect)
}

// authCookie is readable by client scripts, which attach it as a bearer token.
func (s *Server) authCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     config.AuthCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: false,
		Secure:   s.config.Auth.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *Server) frontendURL(path string, query url.Values) string {
	u := s.config.Auth.FrontendURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}
