// Package web serves a built frontend directory as a single-page
// application (SPA).
//
// The frontend is copied next to the binary at deploy time. When the
// directory is missing (the usual case in development) the caller skips
// the mount and non-API routes fall through to the router's 404.
package web

import (
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"
)

// Mount returns an SPA handler over dir. ok is false when dir does not
// exist or is not a directory, in which case no root route should be
// registered.
func Mount(dir string) (handler http.Handler, ok bool) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, false
	}
	return SPAHandler(os.DirFS(dir)), true
}

// SPAHandler returns an http.Handler that serves static files from fsys and
// falls back to index.html for any path that doesn't match a file (SPA
// client-side routing).
func SPAHandler(fsys fs.FS) http.Handler {
	fileServer := http.FileServer(http.FS(fsys))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Try to serve the file directly.
		path := strings.TrimPrefix(r.URL.Path, "/")
		if path == "" {
			path = "index.html"
		}

		if f, err := fsys.Open(path); err == nil {
			if closeErr := f.Close(); closeErr != nil {
				slog.Debug("web: failed to close frontend file", "path", path, "error", closeErr)
			}
			fileServer.ServeHTTP(w, r)
			return
		}

		// Not found — serve index.html for SPA routing.
		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	})
}
