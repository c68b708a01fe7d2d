package http

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// spaHandler serves the built front end and falls back to index.html so client-side routes
// resolve. Unknown /api/ paths stay 404.
type spaHandler struct {
	root  string
	files http.Handler
}

func newSPAHandler(root string) spaHandler {
	return spaHandler{root: root, files: http.FileServer(http.Dir(root))}
}

func (h spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.NotFound(w, r)
		return
	}

	name := filepath.Join(h.root, filepath.FromSlash(path.Clean("/"+r.URL.Path)))
	info, err := os.Stat(name)
	if err == nil && !info.IsDir() {
		h.files.ServeHTTP(w, r)
		return
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	http.ServeFile(w, r, filepath.Join(h.root, "index.html"))
}

// hasIndex reports whether the static root contains a built index.html.
func hasIndex(root string) bool {
	if root == "" {
		return false
	}
	info, err := os.Stat(filepath.Join(root, "index.html"))
	return err == nil && !info.IsDir()
}
