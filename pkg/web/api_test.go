package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/akfire/dispatch-relay/pkg/call"
	"github.com/akfire/dispatch-relay/pkg/database"
	"github.com/akfire/dispatch-relay/pkg/logger"
)

type apiSession struct {
	addr string
}

func (s *apiSession) RemoteAddress() string { return s.addr }
func (s *apiSession) Emit(event string, payload interface{}, ack func()) error {
	if ack != nil {
		ack()
	}
	return nil
}
func (s *apiSession) Disconnect() {}

func TestAPI_HandleStatus(t *testing.T) {
	stack := newTestStack(t, mesaStations())

	stack.router.HandleConnection(&apiSession{addr: "192.168.1.10:52100"})
	stack.router.HandleIncomingCall([]byte(`{"callNumber":"100","area":"MESA","callType":"43-Structure Fire","dispatchCode":"25C01","location":"144 N BINKLEY ST"}`))

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	stack.server.api.HandleStatus(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var resp statusResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode status response: %v", err)
	}

	if resp.Server != "Dispatch-Relay" {
		t.Errorf("Unexpected server name: %q", resp.Server)
	}
	if resp.Stations != 1 {
		t.Errorf("Expected 1 station, got %d", resp.Stations)
	}
	if len(resp.Areas) != 1 || resp.Areas[0] != "MESA" {
		t.Errorf("Unexpected areas: %v", resp.Areas)
	}

	if len(resp.Displays) != 1 {
		t.Fatalf("Expected 1 display, got %d", len(resp.Displays))
	}
	d := resp.Displays[0]
	if d.Address != "192.168.1.10:52100" {
		t.Errorf("Unexpected display address: %q", d.Address)
	}
	if len(d.Stations) != 1 || d.Stations[0] != "MESA0" {
		t.Errorf("Unexpected display stations: %v", d.Stations)
	}
	if len(d.Posts) != 1 || d.Posts[0].CallNumber != "100" {
		t.Errorf("Unexpected display posts: %+v", d.Posts)
	}
	// apiSession acks everything immediately
	if len(d.Posts[0].AckAt) == 0 {
		t.Error("Expected an ack stamp on the post record")
	}

	if len(resp.RecentCalls) != 1 {
		t.Fatalf("Expected 1 recent call, got %d", len(resp.RecentCalls))
	}
	c := resp.RecentCalls[0]
	if c.CallNumber != "100" || c.Area != "MESA" || c.CallType != "Structure Fire" {
		t.Errorf("Unexpected recent call: %+v", c)
	}
	if c.HasRoute {
		t.Error("Expected no route attached without a directions fetcher")
	}
}

func TestAPI_HandleStatus_MethodNotAllowed(t *testing.T) {
	stack := newTestStack(t, mesaStations())

	req := httptest.NewRequest(http.MethodPost, "/api/status", nil)
	w := httptest.NewRecorder()
	stack.server.api.HandleStatus(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("Expected 405, got %d", w.Code)
	}
}

func TestAPI_HandleStatus_Empty(t *testing.T) {
	stack := newTestStack(t, mesaStations())

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	stack.server.api.HandleStatus(w, req)

	var resp statusResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode status response: %v", err)
	}
	if len(resp.Displays) != 0 || len(resp.RecentCalls) != 0 {
		t.Errorf("Expected empty lists, got %d displays, %d calls",
			len(resp.Displays), len(resp.RecentCalls))
	}
}

func archiveAPI(t *testing.T) *API {
	t.Helper()

	log := logger.New(logger.Config{Level: "error", Format: "text"})
	db, err := database.NewDB(database.Config{Path: filepath.Join(t.TempDir(), "archive.db")}, log)
	if err != nil {
		t.Fatalf("Failed to open archive: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	repo := database.NewCallRepository(db.GetDB())

	for _, c := range []call.Call{
		{CallNumber: "100", Area: "MESA", CallType: "Structure Fire", DispatchCode: "C", Valid: true},
		{CallNumber: "100", Area: "MESA", CallType: "Structure Fire", DispatchCode: "D", Valid: true},
		{CallNumber: "200", Area: "NSA", CallType: "Medical", DispatchCode: "B", Valid: true},
	} {
		if err := repo.SaveCall(c); err != nil {
			t.Fatalf("Failed to archive call: %v", err)
		}
	}

	stack := newTestStack(t, mesaStations())
	api := stack.server.api
	api.archive = repo
	return api
}

func TestAPI_HandleArchive(t *testing.T) {
	api := archiveAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/archive", nil)
	w := httptest.NewRecorder()
	api.HandleArchive(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var records []database.CallRecord
	if err := json.NewDecoder(w.Body).Decode(&records); err != nil {
		t.Fatalf("Failed to decode archive response: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("Expected all 3 archived postings, got %d", len(records))
	}
}

func TestAPI_HandleArchive_ByCallNumber(t *testing.T) {
	api := archiveAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/archive?call=100", nil)
	w := httptest.NewRecorder()
	api.HandleArchive(w, req)

	var records []database.CallRecord
	if err := json.NewDecoder(w.Body).Decode(&records); err != nil {
		t.Fatalf("Failed to decode archive response: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected both postings for call 100, got %d", len(records))
	}
	// Oldest first, so the update sequence reads in order
	if records[0].DispatchCode != "C" || records[1].DispatchCode != "D" {
		t.Errorf("Unexpected posting order: %q then %q",
			records[0].DispatchCode, records[1].DispatchCode)
	}
}

func TestAPI_HandleArchive_ByArea(t *testing.T) {
	api := archiveAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/archive?area=NSA", nil)
	w := httptest.NewRecorder()
	api.HandleArchive(w, req)

	var records []database.CallRecord
	if err := json.NewDecoder(w.Body).Decode(&records); err != nil {
		t.Fatalf("Failed to decode archive response: %v", err)
	}
	if len(records) != 1 || records[0].CallNumber != "200" {
		t.Errorf("Unexpected area query result: %+v", records)
	}
}

func TestAPI_HandleArchive_BadLimit(t *testing.T) {
	api := archiveAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/archive?limit=zero", nil)
	w := httptest.NewRecorder()
	api.HandleArchive(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", w.Code)
	}
}

func TestAPI_HandleArchive_Disabled(t *testing.T) {
	stack := newTestStack(t, mesaStations())

	req := httptest.NewRequest(http.MethodGet, "/api/archive", nil)
	w := httptest.NewRecorder()
	stack.server.api.HandleArchive(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 with archiving disabled, got %d", w.Code)
	}
}
