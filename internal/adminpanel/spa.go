// Package adminpanel serves the built admin single-page app.
package adminpanel

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Handler serves static files from dir under the /admin/ prefix, falling
// back to index.html so client-side routes deep-link correctly.
func Handler(dir string) http.Handler {
	fs := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rel := strings.TrimPrefix(r.URL.Path, "/admin")
		rel = strings.TrimPrefix(rel, "/")
		if rel == "" {
			rel = "index.html"
		}

		path := filepath.Join(dir, filepath.Clean("/"+rel))
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
			return
		}

		r.URL.Path = "/" + rel
		fs.ServeHTTP(w, r)
	})
}
