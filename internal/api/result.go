package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"tripkit/pkg/catalog"
	"tripkit/pkg/pipeline"
)

// ResultHandler serves the assembled result bundle for a session.
type ResultHandler struct {
	sup     *pipeline.Supervisor
	catalog *catalog.Service
}

// NewResultHandler creates a new ResultHandler.
func NewResultHandler(sup *pipeline.Supervisor, cat *catalog.Service) *ResultHandler {
	return &ResultHandler{sup: sup, catalog: cat}
}

// HandleResult returns the session's current result bundle.
// GET /api/session/{session}/result
//
// A session that failed before producing any recommendations gets the built-in
// fallback destinations instead of an empty list, marked is_fallback so the
// client can say so.
func (h *ResultHandler) HandleResult(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session")
	if sessionID == "" {
		http.Error(w, "missing session id", http.StatusBadRequest)
		return
	}

	snap, err := h.sup.Snapshot(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, pipeline.ErrSessionNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to load session", "session", sessionID, "error", err)
		http.Error(w, "internal processing error", http.StatusInternalServerError)
		return
	}

	bundle := snap.Bundle()
	if bundle.Status == "failed" && len(bundle.Recommendations) == 0 && h.catalog != nil {
		if fallbacks := h.catalog.Fallbacks(r.Context()); len(fallbacks) > 0 {
			bundle.Recommendations = fallbacks
			bundle.IsFallback = true
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(bundle); err != nil {
		slog.Error("Failed to write result response", "error", err)
	}
}
