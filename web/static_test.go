package web

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFrontend(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()

	files := map[string]string{
		"index.html":    "<html>course builder</html>",
		"assets/app.js": "console.log('ready')",
	}
	for name, body := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	return dir
}

func TestMountServesFilesAndSPAFallback(t *testing.T) {
	t.Parallel()

	handler, ok := Mount(writeFrontend(t))
	if !ok {
		t.Fatal("expected mount to succeed")
	}

	cases := []struct {
		name string
		path string
		want string
	}{
		{name: "index", path: "/", want: "course builder"},
		{name: "asset", path: "/assets/app.js", want: "console.log"},
		{name: "spa fallback", path: "/courses/42", want: "course builder"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tc.want) {
				t.Errorf("expected body to contain %q, got %q", tc.want, rec.Body.String())
			}
		})
	}
}

func TestMountMissingDirectory(t *testing.T) {
	t.Parallel()

	if _, ok := Mount(filepath.Join(t.TempDir(), "missing")); ok {
		t.Error("expected mount to fail for a missing directory")
	}
}

func TestMountRejectsRegularFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "frontend")
	if err := os.WriteFile(path, []byte("not a dir"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, ok := Mount(path); ok {
		t.Error("expected mount to fail for a regular file")
	}
}
