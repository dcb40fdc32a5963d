package api

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tripkit/pkg/pipeline"
)

const (
	writeWait      = 10 * time.Second
	pingInterval   = 30 * time.Second
	eventQueueSize = 16
)

// ProgressHandler streams stage-transition events to websocket clients.
// It fans Supervisor events out to all subscribers of the same session.
type ProgressHandler struct {
	sup      *pipeline.Supervisor
	upgrader websocket.Upgrader

	mu   sync.Mutex
	subs map[string]map[chan pipeline.Event]struct{}
}

// NewProgressHandler creates a ProgressHandler and hooks it into the
// supervisor's transition stream.
func NewProgressHandler(sup *pipeline.Supervisor) *ProgressHandler {
	h := &ProgressHandler{
		sup: sup,
		upgrader: websocket.Upgrader{
			// Local-first app: the UI and the API share an origin in
			// production, and tests dial without one.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		subs: make(map[string]map[chan pipeline.Event]struct{}),
	}
	sup.OnTransition(h.broadcast)
	return h
}

// broadcast runs on the advancing goroutine and must not block: slow
// subscribers lose events rather than stall the pipeline.
func (h *ProgressHandler) broadcast(evt pipeline.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[evt.SessionID] {
		select {
		case ch <- evt:
		default:
			slog.Warn("Progress subscriber too slow, dropping event", "session", evt.SessionID, "to", evt.To)
		}
	}
}

func (h *ProgressHandler) subscribe(sessionID string) chan pipeline.Event {
	ch := make(chan pipeline.Event, eventQueueSize)
	h.mu.Lock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[chan pipeline.Event]struct{})
	}
	h.subs[sessionID][ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *ProgressHandler) unsubscribe(sessionID string, ch chan pipeline.Event) {
	h.mu.Lock()
	delete(h.subs[sessionID], ch)
	if len(h.subs[sessionID]) == 0 {
		delete(h.subs, sessionID)
	}
	h.mu.Unlock()
}

// HandleStream upgrades the connection and streams events until the client
// disconnects or the session reaches a terminal state.
// GET /ws/session/{session}
func (h *ProgressHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session")
	if sessionID == "" {
		http.Error(w, "missing session id", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Websocket upgrade failed", "session", sessionID, "error", err)
		return
	}
	defer conn.Close()

	ch := h.subscribe(sessionID)
	defer h.unsubscribe(sessionID, ch)

	// Send the current state first so late subscribers see where they are.
	if snap, err := h.sup.Snapshot(r.Context(), sessionID); err == nil {
		current := pipeline.Event{
			SessionID: sessionID,
			To:        pipeline.State(snap.State),
			Seq:       snap.Seq,
			At:        snap.UpdatedAt,
		}
		if err := h.writeEvent(conn, current); err != nil {
			return
		}
		if pipeline.Terminal(pipeline.State(snap.State)) {
			return
		}
	}

	// Drain client reads so close frames are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case evt := <-ch:
			if err := h.writeEvent(conn, evt); err != nil {
				return
			}
			if pipeline.Terminal(evt.To) {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

func (h *ProgressHandler) writeEvent(conn *websocket.Conn, evt pipeline.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(evt)
}
