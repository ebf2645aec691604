package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/SaumyaAdani05/coastwatchd/internal/anomaly"
	"github.com/SaumyaAdani05/coastwatchd/internal/chatbot"
	"github.com/SaumyaAdani05/coastwatchd/internal/ingest"
	"github.com/SaumyaAdani05/coastwatchd/internal/store"
)

// Server is the REST API server.
type Server struct {
	httpServer *http.Server
	handlers   *Handlers
	hub        *Hub
}

// NewServer creates a new API server with all routes registered.
func NewServer(s store.Store, m *anomaly.Manager, svc *ingest.Service, bot *chatbot.Responder, logger *slog.Logger) *Server {
	hub := NewHub(logger)
	h := &Handlers{
		Store:     s,
		Manager:   m,
		Ingest:    svc,
		Chatbot:   bot,
		Hub:       hub,
		Logger:    logger,
		StartTime: time.Now(),
	}

	// Each stored reading is pushed to stream subscribers.
	svc.OnStored(hub.Broadcast)

	mux := http.NewServeMux()

	// API routes.
	mux.HandleFunc("POST /api/v1/readings", h.SubmitReading)
	mux.HandleFunc("GET /api/v1/readings", h.ListReadings)
	mux.HandleFunc("GET /api/v1/readings/current", h.GetCurrentReading)
	mux.HandleFunc("POST /api/v1/retrain", h.Retrain)
	mux.HandleFunc("POST /api/v1/chat", h.Chat)
	mux.HandleFunc("GET /api/v1/stream", h.Stream)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Apply middleware (outermost runs first).
	var handler http.Handler = mux
	handler = ContentType(handler)
	handler = CORS("*")(handler) // Dashboard is served from a separate origin.
	handler = SecurityHeaders(handler)
	handler = Logger(handler)
	handler = RequestID(handler)
	handler = Recovery(handler)

	srv := &http.Server{
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{httpServer: srv, handlers: h, hub: hub}
}

// ListenAndServe starts the HTTP server. Blocks until context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.httpServer.Addr = addr
	slog.Info("api server starting", "addr", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("api server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the server and disconnects stream clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.CloseAll()
	return s.httpServer.Shutdown(ctx)
}

// SetVersion sets the version string for the health endpoint.
func (s *Server) SetVersion(v string) { s.handlers.Version = v }

// SetStorageInfo sets storage driver and path for the health endpoint.
func (s *Server) SetStorageInfo(driver, path string) {
	s.handlers.StorageDriver = driver
	s.handlers.StoragePath = path
}
