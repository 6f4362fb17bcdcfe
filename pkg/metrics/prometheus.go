package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/akfire/dispatch-relay/pkg/logger"
)

// PrometheusConfig holds Prometheus server configuration
type PrometheusConfig struct {
	Enabled bool
	Port    int
	Path    string
}

// PrometheusHandler handles Prometheus metrics HTTP requests
type PrometheusHandler struct {
	collector *Collector
}

// NewPrometheusHandler creates a new Prometheus handler
func NewPrometheusHandler(collector *Collector) *PrometheusHandler {
	return &PrometheusHandler{
		collector: collector,
	}
}

// ServeHTTP handles HTTP requests for metrics
func (h *PrometheusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	var output strings.Builder

	// Display metrics
	output.WriteString("# HELP dispatch_displays_total Total number of display registrations\n")
	output.WriteString("# TYPE dispatch_displays_total counter\n")
	output.WriteString(fmt.Sprintf("dispatch_displays_total %d\n", h.collector.GetTotalDisplays()))

	output.WriteString("# HELP dispatch_displays_active Number of currently registered displays\n")
	output.WriteString("# TYPE dispatch_displays_active gauge\n")
	output.WriteString(fmt.Sprintf("dispatch_displays_active %d\n", h.collector.GetActiveDisplays()))

	// Call metrics
	output.WriteString("# HELP dispatch_calls_received_total Total call postings received\n")
	output.WriteString("# TYPE dispatch_calls_received_total counter\n")
	output.WriteString(fmt.Sprintf("dispatch_calls_received_total %d\n", h.collector.GetCallsReceived()))

	output.WriteString("# HELP dispatch_calls_invalid_total Total postings that failed validation\n")
	output.WriteString("# TYPE dispatch_calls_invalid_total counter\n")
	output.WriteString(fmt.Sprintf("dispatch_calls_invalid_total %d\n", h.collector.GetCallsInvalid()))

	output.WriteString("# HELP dispatch_calls_unrouted_total Total calls for areas with no stations\n")
	output.WriteString("# TYPE dispatch_calls_unrouted_total counter\n")
	output.WriteString(fmt.Sprintf("dispatch_calls_unrouted_total %d\n", h.collector.GetCallsUnrouted()))

	output.WriteString("# HELP dispatch_calls_broadcast_total Total calls fanned out to displays\n")
	output.WriteString("# TYPE dispatch_calls_broadcast_total counter\n")
	output.WriteString(fmt.Sprintf("dispatch_calls_broadcast_total %d\n", h.collector.GetCallsBroadcast()))

	// Post metrics
	output.WriteString("# HELP dispatch_posts_sent_total Total events emitted to displays\n")
	output.WriteString("# TYPE dispatch_posts_sent_total counter\n")
	output.WriteString(fmt.Sprintf("dispatch_posts_sent_total %d\n", h.collector.GetPostsSent()))

	output.WriteString("# HELP dispatch_posts_acked_total Total display acknowledgements\n")
	output.WriteString("# TYPE dispatch_posts_acked_total counter\n")
	output.WriteString(fmt.Sprintf("dispatch_posts_acked_total %d\n", h.collector.GetPostsAcked()))

	// Directions metrics
	output.WriteString("# HELP dispatch_directions_fetched_total Total successful directions lookups\n")
	output.WriteString("# TYPE dispatch_directions_fetched_total counter\n")
	output.WriteString(fmt.Sprintf("dispatch_directions_fetched_total %d\n", h.collector.GetDirectionsFetched()))

	output.WriteString("# HELP dispatch_directions_cached_total Total directions served from cache\n")
	output.WriteString("# TYPE dispatch_directions_cached_total counter\n")
	output.WriteString(fmt.Sprintf("dispatch_directions_cached_total %d\n", h.collector.GetDirectionsCached()))

	output.WriteString("# HELP dispatch_directions_rejected_total Total routes discarded by the distance ceiling\n")
	output.WriteString("# TYPE dispatch_directions_rejected_total counter\n")
	output.WriteString(fmt.Sprintf("dispatch_directions_rejected_total %d\n", h.collector.GetDirectionsRejected()))

	output.WriteString("# HELP dispatch_directions_errors_total Total directions provider failures\n")
	output.WriteString("# TYPE dispatch_directions_errors_total counter\n")
	output.WriteString(fmt.Sprintf("dispatch_directions_errors_total %d\n", h.collector.GetDirectionsErrors()))

	w.Write([]byte(output.String()))
}

// PrometheusServer is an HTTP server for Prometheus metrics
type PrometheusServer struct {
	config    PrometheusConfig
	collector *Collector
	log       *logger.Logger
	server    *http.Server
}

// NewPrometheusServer creates a new Prometheus metrics server
func NewPrometheusServer(config PrometheusConfig, collector *Collector, log *logger.Logger) *PrometheusServer {
	if log == nil {
		log = logger.New(logger.Config{Level: "info", Format: "text"})
	}

	return &PrometheusServer{
		config:    config,
		collector: collector,
		log:       log.WithComponent("metrics"),
	}
}

// Start starts the Prometheus metrics server
func (s *PrometheusServer) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.log.Info("Prometheus metrics server disabled")
		return nil
	}

	handler := NewPrometheusHandler(s.collector)
	mux := http.NewServeMux()
	mux.Handle(s.config.Path, handler)

	// Use a listener to get the actual port (useful for testing with port 0)
	addr := fmt.Sprintf(":%d", s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	actualPort := listener.Addr().(*net.TCPAddr).Port

	s.server = &http.Server{
		Handler: mux,
	}

	s.log.Info("Starting Prometheus metrics server",
		logger.Int("port", actualPort),
		logger.String("path", s.config.Path))

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.log.Info("Shutting down Prometheus metrics server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics server shutdown error: %w", err)
		}
		return ctx.Err()
	case err := <-errChan:
		return err
	}
}

// Stop stops the Prometheus metrics server
func (s *PrometheusServer) Stop() {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.server.Shutdown(ctx)
	}
}
