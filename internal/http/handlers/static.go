package handlers

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

const msgNotFound = "Not found"

// Index serves the frontend entry page.
func (a *App) Index(w http.ResponseWriter, r *http.Request) {
	a.serveStatic(w, r, "index.html")
}

// Static serves a regular file below StaticDir, or a JSON 404.
func (a *App) Static(w http.ResponseWriter, r *http.Request) {
	a.serveStatic(w, r, chi.URLParam(r, "*"))
}

func (a *App) serveStatic(w http.ResponseWriter, r *http.Request, name string) {
	// Clean against a rooted path so ".." can never climb above StaticDir.
	rel := strings.TrimPrefix(path.Clean("/"+name), "/")
	if rel == "" {
		a.fail(w, http.StatusNotFound, msgNotFound)
		return
	}
	full := filepath.Join(a.StaticDir, filepath.FromSlash(rel))

	f, err := os.Open(full)
	if err != nil {
		a.fail(w, http.StatusNotFound, msgNotFound)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		a.fail(w, http.StatusNotFound, msgNotFound)
		return
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// NotFound answers unknown paths with the JSON error body.
func (a *App) NotFound(w http.ResponseWriter, r *http.Request) {
	a.fail(w, http.StatusNotFound, msgNotFound)
}
