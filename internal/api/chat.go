package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"tripkit/pkg/pipeline"
	"tripkit/pkg/session"
)

// runTimeout bounds one background pipeline run. Generous because it spans
// several provider calls including image synthesis.
const runTimeout = 10 * time.Minute

// ChatHandler accepts user messages and drives the conversation stage.
type ChatHandler struct {
	sup *pipeline.Supervisor
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(sup *pipeline.Supervisor) *ChatHandler {
	return &ChatHandler{sup: sup}
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
	Reply     string `json:"reply,omitempty"`
	Complete  bool   `json:"profile_complete"`
}

// HandleChat records one user message and returns the assistant's reply.
// POST /api/chat/{session}
//
// When the exchange completes the preference profile, the rest of the
// pipeline runs in the background; clients follow progress on the websocket
// stream and fetch the final bundle from the result endpoint.
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session")
	if sessionID == "" {
		http.Error(w, "missing session id", http.StatusBadRequest)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, "empty message", http.StatusBadRequest)
		return
	}

	snap, err := h.sup.HandleMessage(r.Context(), sessionID, req.Message)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return // client went away
		}
		slog.Error("Chat exchange failed", "session", sessionID, "error", err)
		http.Error(w, "internal processing error", http.StatusInternalServerError)
		return
	}

	// Conversation done: kick off the remaining stages detached from the
	// request context so a closed connection does not abort the pipeline.
	if pipeline.State(snap.State) == pipeline.StateRecommendation {
		go h.runPipeline(sessionID)
	}

	resp := chatResponse{
		SessionID: sessionID,
		State:     snap.State,
		Reply:     lastAssistantMessage(snap),
		Complete:  snap.Profile != nil && snap.Profile.Complete(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to write chat response", "error", err)
	}
}

func (h *ChatHandler) runPipeline(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	snap, err := h.sup.Run(ctx, sessionID)
	if err != nil {
		slog.Error("Background pipeline run failed", "session", sessionID, "error", err)
		return
	}
	slog.Info("Pipeline run finished", "session", sessionID, "state", snap.State)
}

func lastAssistantMessage(snap *session.Snapshot) string {
	for i := len(snap.Messages) - 1; i >= 0; i-- {
		if snap.Messages[i].Role == "assistant" {
			return snap.Messages[i].Content
		}
	}
	return ""
}
