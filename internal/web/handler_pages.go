package web

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// pagesHandler serves the prebuilt frontend from the static dir. Asset paths
// (with an extension) are served directly; everything else falls back to
// index.html so client-side routing can take over.
func (s *Server) pagesHandler() http.Handler {
	dir := s.config.Web.StaticDir

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			writeError(w, http.StatusNotFound, "Not found", r.Method+" "+r.URL.Path)
			return
		}
		if dir == "" {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		clean := path.Clean("/" + r.URL.Path)
		if path.Ext(clean) != "" {
			file := filepath.Join(dir, filepath.FromSlash(clean))
			if info, err := os.Stat(file); err == nil && !info.IsDir() {
				http.ServeFile(w, r, file)
				return
			}
		}

		index := filepath.Join(dir, "index.html")
		if _, err := os.Stat(index); err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFile(w, r, index)
	})
}
