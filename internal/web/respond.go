package web

import (
	"encoding/json"
	"net/http"

	"github.com/BetterCallFirewall/scanportal/internal/config"
	"github.com/BetterCallFirewall/scanportal/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeRaw passes an already-validated backend JSON body through.
func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, models.ErrorResponse{Error: msg, Details: details})
}

func writeMessage(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, models.MessageResponse{Message: msg, Details: details})
}

// authToken returns the auth cookie value, or "" when it is missing.
func authToken(r *http.Request) string {
	c, err := r.Cookie(config.AuthCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
