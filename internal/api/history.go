package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"tripkit/pkg/store"
)

// HistoryHandler serves the stored session index and per-session image
// records, straight from the durable store. Live pipeline state stays with
// the result and progress handlers; this is the audit-trail view.
type HistoryHandler struct {
	checkpoints store.CheckpointStore
	images      store.ImageStore
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(checkpoints store.CheckpointStore, images store.ImageStore) *HistoryHandler {
	return &HistoryHandler{checkpoints: checkpoints, images: images}
}

// HandleListSessions returns every known session id, most recently updated
// first.
// GET /api/sessions
func (h *HistoryHandler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := h.checkpoints.ListSessionIDs(r.Context())
	if err != nil {
		slog.Error("Failed to list sessions", "error", err)
		http.Error(w, "internal processing error", http.StatusInternalServerError)
		return
	}
	if ids == nil {
		ids = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string][]string{"sessions": ids}); err != nil {
		slog.Error("Failed to write sessions response", "error", err)
	}
}

// HandleSessionImages returns the generated image records of one session,
// including rejected attempts that a later retry replaced.
// GET /api/session/{session}/images
func (h *HistoryHandler) HandleSessionImages(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session")
	if sessionID == "" {
		http.Error(w, "missing session id", http.StatusBadRequest)
		return
	}

	imgs, err := h.images.GetSessionImages(r.Context(), sessionID)
	if err != nil {
		slog.Error("Failed to load session images", "session", sessionID, "error", err)
		http.Error(w, "internal processing error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(imgs); err != nil {
		slog.Error("Failed to write session images response", "error", err)
	}
}

// HandleImage returns one generated image record by id.
// GET /api/image/{image}
func (h *HistoryHandler) HandleImage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("image")
	if id == "" {
		http.Error(w, "missing image id", http.StatusBadRequest)
		return
	}

	img, err := h.images.GetImage(r.Context(), id)
	if err != nil {
		slog.Error("Failed to load image record", "image", id, "error", err)
		http.Error(w, "internal processing error", http.StatusInternalServerError)
		return
	}
	if img == nil {
		http.Error(w, "image not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(img); err != nil {
		slog.Error("Failed to write image response", "error", err)
	}
}
