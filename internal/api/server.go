package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"tripkit/pkg/logging"
	"tripkit/pkg/version"
)

// NewServer creates and configures the HTTP server.
// It accepts handlers for all API endpoints and a shutdownFunc for graceful shutdown.
func NewServer(addr string, chat *ChatHandler, result *ResultHandler, progress *ProgressHandler, stats *StatsHandler, history *HistoryHandler, images *ImageHandler, shutdown func()) *http.Server {
	mux := http.NewServeMux()

	// 1. Health Endpoint
	mux.HandleFunc("GET /health", handleHealth)

	// 1b. Version Endpoint
	mux.HandleFunc("GET /api/version", handleVersion)

	// 2. Pipeline Endpoints
	mux.HandleFunc("POST /api/chat/{session}", chat.HandleChat)
	mux.HandleFunc("GET /api/session/{session}/result", result.HandleResult)
	mux.HandleFunc("GET /ws/session/{session}", progress.HandleStream)

	// 2b. History Endpoints
	if history != nil {
		mux.HandleFunc("GET /api/sessions", history.HandleListSessions)
		mux.HandleFunc("GET /api/session/{session}/images", history.HandleSessionImages)
		mux.HandleFunc("GET /api/image/{image}", history.HandleImage)
	}

	// 3. Stats Endpoint
	mux.Handle("GET /api/stats", stats)

	// 3b. Logs Endpoint
	mux.HandleFunc("GET /api/log/latest", handleLatestLog)

	// 4. Image Endpoint
	if images != nil {
		mux.HandleFunc("GET /api/images/serve", images.HandleGetImage)
	}

	// 5. Shutdown Endpoint
	mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
		slog.Info("Graceful shutdown initiated via API")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("Shutting down...")); err != nil {
			slog.Error("Failed to write shutdown response", "error", err)
		}
		// Call shutdown in a goroutine to allow response to flush
		go func() {
			time.Sleep(100 * time.Millisecond)
			shutdown()
		}()
	})

	return &http.Server{
		Addr:         addr,
		Handler:      logRequests(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // stages can run long on the chat path
		IdleTimeout:  60 * time.Second,
	}
}

// logRequests writes one line per request to the requests log.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		if logging.RequestLogger != nil {
			logging.RequestLogger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"duration_ms", time.Since(start).Milliseconds())
		}
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := fmt.Fprintf(w, `{"version": "%s"}`, version.Version); err != nil {
		slog.Error("Failed to write version response", "error", err)
	}
}
