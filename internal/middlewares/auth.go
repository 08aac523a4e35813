package middlewares

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/BetterCallFirewall/scanportal/internal/config"
)

// Paths the page guard never touches.
var skipPrefixes = []string{
	"/api",
	"/_next/static",
	"/_next/image",
	"/favicon.ico",
	"/ws",
	"/health",
}

// HasAuthCookie reports whether the request carries a non-empty auth cookie.
func HasAuthCookie(r *http.Request) bool {
	c, err := r.Cookie(config.AuthCookieName)
	return err == nil && c.Value != ""
}

// AuthRedirect guards page routes by the presence of the auth cookie. It only
// checks presence; the backend validates the token on API calls.
func AuthRedirect(routes config.Routes) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			for _, p := range skipPrefixes {
				if strings.HasPrefix(path, p) {
					next.ServeHTTP(w, r)
					return
				}
			}

			authed := HasAuthCookie(r)

			switch {
			case routes.RequiresAuth(path) && !authed:
				target := "/login?" + url.Values{"redirect": {path}}.Encode()
				http.Redirect(w, r, target, http.StatusTemporaryRedirect)
			case (path == "/login" || path == "/landing") && authed:
				http.Redirect(w, r, "/dashboard", http.StatusTemporaryRedirect)
			case path == "/" && authed:
				http.Redirect(w, r, "/dashboard", http.StatusTemporaryRedirect)
			case path == "/":
				http.Redirect(w, r, "/landing", http.StatusTemporaryRedirect)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// Chain applies middlewares so the first one listed runs first.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
