package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/akfire/dispatch-relay/pkg/config"
	"github.com/akfire/dispatch-relay/pkg/dispatch"
	"github.com/akfire/dispatch-relay/pkg/logger"
)

const maxCallBody = 64 * 1024

// Server is the relay's HTTP front: the call intake endpoint, the display
// websocket, and the operator status surface.
type Server struct {
	config config.WebConfig
	logger *logger.Logger
	router *dispatch.Router
	api    *API
	ws     *WebSocketHandler
	server *http.Server
	addr   string
	mu     sync.RWMutex
}

// NewServer creates a new web server instance
func NewServer(cfg config.WebConfig, router *dispatch.Router, api *API, log *logger.Logger) *Server {
	return &Server{
		config: cfg,
		logger: log.WithComponent("web"),
		router: router,
		api:    api,
		ws:     NewWebSocketHandler(router, log),
	}
}

// Start starts the HTTP server and blocks until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/incoming", s.handleIncoming)
	mux.HandleFunc("/api/status", s.api.HandleStatus)
	mux.HandleFunc("/api/archive", s.api.HandleArchive)
	mux.Handle("/ws", s.ws)

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start listener to get actual address (especially for port 0)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	s.mu.Lock()
	s.addr = listener.Addr().String()
	s.mu.Unlock()

	s.logger.Info("Starting web server", logger.String("address", s.addr))

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down web server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
		return ctx.Err()
	case err := <-errChan:
		return err
	}
}

// GetAddr returns the address the server is listening on
func (s *Server) GetAddr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// handleIncoming accepts a call posting from the upstream dispatch system.
// The websocket timeouts never apply here; the response is decided before
// any directions lookup starts.
func (s *Server) handleIncoming(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxCallBody))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	status, msg := s.router.HandleIncomingCall(body)
	w.WriteHeader(status)
	fmt.Fprint(w, msg)
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "dispatch-relay",
		"time":    time.Now().Unix(),
	}); err != nil {
		s.logger.Warn("Failed to encode health response", logger.Error(err))
	}
}
