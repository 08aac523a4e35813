package web

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/BetterCallFirewall/scanportal/internal/backend"
)

func (s *Server) handleN8nAuthURL(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = "1"
	}

	resp, err := s.backend.Do(r.Context(), backend.Request{
		Method:  http.MethodGet,
		Path:    "/api/n8n/auth-url",
		Query:   url.Values{"user_id": {userID}},
		Token:   authToken(r),
		Timeout: s.config.Backend.Timeout,
	})
	// The backend explains its own failures in the JSON body, which the
	// frontend reads from a 200.
	if _, ok := backend.AsStatusError(err); ok {
		err = nil
	}
	if err == nil && !json.Valid(resp.Body) {
		err = backend.ErrInvalidJSON
	}
	if err != nil {
		s.logger.Error("[API/N8N/AUTH-URL] error", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   "Failed to get auth URL",
		})
		return
	}
	writeRaw(w, http.StatusOK, resp.Body)
}

type n8nCallbackResponse struct {
	Success      bool            `json:"success"`
	ConnectionID json.RawMessage `json:"connection_id"`
	Error        string          `json:"error"`
}

// handleN8nCallback completes the n8n OAuth exchange and returns the browser
// to the frontend with the outcome in the query string.
func (s *Server) handleN8nCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fail := func(reason string) {
		http.Redirect(w, r, s.frontendURL("", url.Values{"error": {reason}}), http.StatusTemporaryRedirect)
	}

	if errParam := q.Get("error"); errParam != "" {
		fail(errParam)
		return
	}
	if q.Get("code") == "" {
		fail("no_code")
		return
	}

	resp, err := s.backend.Do(r.Context(), backend.Request{
		Method:  http.MethodGet,
		Path:    "/api/n8n/callback",
		Query:   q,
		Timeout: s.config.Backend.Timeout,
	})
	if _, ok := backend.AsStatusError(err); ok {
		err = nil
	}
	var data n8nCallbackResponse
	if err == nil {
		err = json.Unmarshal(resp.Body, &data)
	}
	if err != nil {
		s.logger.Error("[API/N8N/CALLBACK] error", "err", err)
		fail("callback_failed")
		return
	}

	if !data.Success {
		reason := data.Error
		if reason == "" {
			reason = "callback_failed"
		}
		fail(reason)
		return
	}
	connectionID := strings.Trim(string(data.ConnectionID), `"`)
	http.Redirect(w, r, s.frontendURL("", url.Values{
		"connected":     {"true"},
		"connection_id": {connectionID},
	}), http.StatusTemporaryRedirect)
}

// handleN8nForward relays every other n8n integration call (connections,
// workflows, analyze, disconnect, statistics) with the caller's method, query
// and body.
func (s *Server) handleN8nForward(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.Web.MaxUploadBytes)

	resp, err := s.backend.Do(r.Context(), backend.Request{
		Method:      r.Method,
		Path:        r.URL.EscapedPath(),
		Query:       r.URL.Query(),
		Token:       authToken(r),
		Body:        r.Body,
		ContentType: r.Header.Get("Content-Type"),
		// analyze runs the scanner synchronously
		Timeout: s.config.Backend.UploadTimeout,
	})
	if _, ok := backend.AsStatusError(err); ok {
		err = nil
	}
	if err != nil {
		s.logger.Error("[API/N8N] forward error", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to reach n8n integration", err.Error())
		return
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	w.Write(resp.Body)
}
