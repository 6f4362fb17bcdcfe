package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/akfire/dispatch-relay/pkg/config"
	"github.com/akfire/dispatch-relay/pkg/dispatch"
	"github.com/akfire/dispatch-relay/pkg/history"
	"github.com/akfire/dispatch-relay/pkg/logger"
	"github.com/akfire/dispatch-relay/pkg/metrics"
	"github.com/akfire/dispatch-relay/pkg/station"
)

type testStack struct {
	server   *Server
	router   *dispatch.Router
	registry *dispatch.Registry
	history  *history.History
}

func newTestStack(t *testing.T, stations []config.StationConfig) *testStack {
	t.Helper()

	log := logger.New(logger.Config{Level: "error", Format: "text"})
	directory, err := station.NewDirectory(stations)
	if err != nil {
		t.Fatalf("Failed to build directory: %v", err)
	}

	h := history.New(20)
	registry := dispatch.NewRegistry()
	router := dispatch.NewRouter(dispatch.RouterOptions{
		Directory:  directory,
		History:    h,
		Registry:   registry,
		Metrics:    metrics.NewCollector(),
		Logger:     log,
		DisplayTTL: 10 * time.Minute,
	})

	api := NewAPI("Dispatch-Relay", directory, registry, h, nil, 20, log)
	server := NewServer(config.WebConfig{Host: "127.0.0.1", Port: 0}, router, api, log)

	return &testStack{server: server, router: router, registry: registry, history: h}
}

func mesaStations() []config.StationConfig {
	return []config.StationConfig{
		{ID: "MESA0", Area: "MESA", Lat: 60.5344, Lng: -151.0823, IPMatch: `^192\.168\.1\.`},
	}
}

func TestServer_HandleIncoming(t *testing.T) {
	s := newTestStack(t, mesaStations()).server

	body := `{"callNumber":"100","area":"MESA","callType":"43-Structure Fire","dispatchCode":"25C01"}`
	req := httptest.NewRequest(http.MethodPost, "/incoming", strings.NewReader(body))
	w := httptest.NewRecorder()

	s.handleIncoming(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if got := w.Body.String(); got != "OK" {
		t.Errorf("Expected body OK, got %q", got)
	}
}

func TestServer_HandleIncoming_Invalid(t *testing.T) {
	s := newTestStack(t, mesaStations()).server

	req := httptest.NewRequest(http.MethodPost, "/incoming", strings.NewReader(`{"area":"MESA"}`))
	w := httptest.NewRecorder()

	s.handleIncoming(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", w.Code)
	}
}

func TestServer_HandleIncoming_UnconfiguredArea(t *testing.T) {
	s := newTestStack(t, mesaStations()).server

	body := `{"callNumber":"100","area":"KESA","callType":"43-Fire","dispatchCode":"25C01"}`
	req := httptest.NewRequest(http.MethodPost, "/incoming", strings.NewReader(body))
	w := httptest.NewRecorder()

	s.handleIncoming(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 for an unconfigured area, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "KESA") {
		t.Errorf("Expected body to name the area, got %q", w.Body.String())
	}
}

func TestServer_HandleIncoming_MethodNotAllowed(t *testing.T) {
	s := newTestStack(t, mesaStations()).server

	req := httptest.NewRequest(http.MethodGet, "/incoming", nil)
	w := httptest.NewRecorder()

	s.handleIncoming(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("Expected 405, got %d", w.Code)
	}
}

func TestServer_HandleHealth(t *testing.T) {
	s := newTestStack(t, mesaStations()).server

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	s.handleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode health response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("Expected status ok, got %v", resp["status"])
	}
	if resp["service"] != "dispatch-relay" {
		t.Errorf("Expected service dispatch-relay, got %v", resp["service"])
	}
}
