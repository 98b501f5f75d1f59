package api

import (
	"embed"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/yegors/wmo-decoder/pkg/logger"
)

//go:embed static
var embeddedStatic embed.FS

// StaticFileHandler serves the page assets from the embedded copy, or from a
// directory on disk without caching so edits show up on reload
type StaticFileHandler struct {
	files   fs.FS
	fromDir bool
	logger  *logger.Logger
}

// NewStaticFileHandler creates a new static file handler. An empty staticDir
// serves the embedded assets.
func NewStaticFileHandler(staticDir string, logger *logger.Logger) *StaticFileHandler {
	h := &StaticFileHandler{logger: logger.Named("static-handler")}
	if staticDir != "" {
		h.files = os.DirFS(staticDir)
		h.fromDir = true
		return h
	}
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		panic(err) // embedded directory is always present
	}
	h.files = sub
	return h
}

// ServeHTTP serves one file. Paths are resolved inside the file system, so
// ".." can never escape it.
func (h *StaticFileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if name == "" || !fs.ValidPath(name) {
		http.NotFound(w, r)
		return
	}

	info, err := fs.Stat(h.files, name)
	if err != nil {
		h.logger.Debug("File not found", logger.String("path", name))
		http.NotFound(w, r)
		return
	}
	if info.IsDir() {
		h.logger.Debug("Directory listing not allowed", logger.String("path", name))
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	if h.fromDir {
		// Set headers to prevent caching (for dynamic serving)
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")
	}

	h.logger.Debug("Serving static file",
		logger.String("requested_path", r.URL.Path),
		logger.String("file_path", name))

	http.ServeFileFS(w, r, h.files, name)
}
