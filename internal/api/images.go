package api

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// ImageHandler serves generated images out of the asset directory.
type ImageHandler struct {
	assetDir string
}

// NewImageHandler creates a new ImageHandler rooted at assetDir.
func NewImageHandler(assetDir string) *ImageHandler {
	abs, err := filepath.Abs(assetDir)
	if err != nil {
		slog.Warn("ImageHandler: could not resolve asset dir", "dir", assetDir, "error", err)
		abs = assetDir
	}
	return &ImageHandler{assetDir: abs}
}

// HandleGetImage serves the image at the requested path.
// GET /api/images/serve?path=...
//
// Only files under the asset directory are served; anything else is treated
// as traversal and rejected.
func (h *ImageHandler) HandleGetImage(w http.ResponseWriter, r *http.Request) {
	requestedPath := r.URL.Query().Get("path")
	if requestedPath == "" {
		http.Error(w, "missing path parameter", http.StatusBadRequest)
		return
	}

	abs, err := filepath.Abs(requestedPath)
	if err != nil {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}
	if !strings.HasPrefix(abs, h.assetDir+string(filepath.Separator)) {
		http.Error(w, "path outside asset directory", http.StatusForbidden)
		return
	}

	info, err := os.Stat(abs)
	if os.IsNotExist(err) {
		http.Error(w, "image not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("Failed to stat image", "path", abs, "error", err)
		http.Error(w, "internal processing error", http.StatusInternalServerError)
		return
	}
	if info.IsDir() {
		http.Error(w, "path is a directory", http.StatusBadRequest)
		return
	}

	http.ServeFile(w, r, abs)
}
