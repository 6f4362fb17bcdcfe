package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/akfire/dispatch-relay/pkg/call"
	"github.com/akfire/dispatch-relay/pkg/logger"
)

func testDB(t *testing.T) *DB {
	t.Helper()

	log := logger.New(logger.Config{Level: "error"})
	cfg := Config{Path: filepath.Join(t.TempDir(), "archive.db")}
	db, err := NewDB(cfg, log)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func archivedCall(num, area, ccText string) call.Call {
	return call.Call{
		CallNumber:   num,
		Area:         area,
		CallType:     "Structure Fire",
		DispatchCode: "C",
		Location:     "144 N BINKLEY ST",
		CCText:       ccText,
		Valid:        true,
	}
}

func TestNewDB(t *testing.T) {
	db := testDB(t)

	if db.db == nil {
		t.Error("Expected non-nil database connection")
	}
}

func TestCallRecord_BeforeCreate(t *testing.T) {
	db := testDB(t)
	repo := NewCallRepository(db.GetDB())

	rec := RecordFromCall(archivedCall("100", "MESA", ""))
	if err := repo.Create(rec); err != nil {
		t.Fatalf("Failed to create record: %v", err)
	}

	if rec.ID == 0 {
		t.Error("Expected non-zero ID after creation")
	}
	if rec.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be set by hook")
	}
	if rec.ReceivedAt.IsZero() {
		t.Error("Expected ReceivedAt to be set by hook")
	}
}

func TestCallRepository_SaveAndGetRecent(t *testing.T) {
	db := testDB(t)
	repo := NewCallRepository(db.GetDB())

	for _, num := range []string{"100", "200", "300"} {
		if err := repo.SaveCall(archivedCall(num, "MESA", "")); err != nil {
			t.Fatalf("Failed to save call %s: %v", num, err)
		}
	}

	records, err := repo.GetRecent(2)
	if err != nil {
		t.Fatalf("Failed to query recent records: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
}

func TestCallRepository_UpdatesAppend(t *testing.T) {
	db := testDB(t)
	repo := NewCallRepository(db.GetDB())

	if err := repo.SaveCall(archivedCall("100", "MESA", "first")); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}
	if err := repo.SaveCall(archivedCall("100", "MESA", "second")); err != nil {
		t.Fatalf("Failed to save update: %v", err)
	}

	records, err := repo.GetByCallNumber("100")
	if err != nil {
		t.Fatalf("Failed to query by call number: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected both postings archived, got %d", len(records))
	}
	if records[0].CCText != "first" || records[1].CCText != "second" {
		t.Errorf("Expected update sequence in order, got %q then %q",
			records[0].CCText, records[1].CCText)
	}
}

func TestCallRepository_GetByArea(t *testing.T) {
	db := testDB(t)
	repo := NewCallRepository(db.GetDB())

	_ = repo.SaveCall(archivedCall("100", "MESA", ""))
	_ = repo.SaveCall(archivedCall("200", "NSA", ""))

	records, err := repo.GetByArea("MESA", 10)
	if err != nil {
		t.Fatalf("Failed to query by area: %v", err)
	}
	if len(records) != 1 || records[0].CallNumber != "100" {
		t.Errorf("Unexpected area query result: %+v", records)
	}
}

func TestCallRepository_DeleteOlderThan(t *testing.T) {
	db := testDB(t)
	repo := NewCallRepository(db.GetDB())

	old := RecordFromCall(archivedCall("100", "MESA", ""))
	old.ReceivedAt = time.Now().Add(-48 * time.Hour)
	if err := repo.Create(old); err != nil {
		t.Fatalf("Failed to create old record: %v", err)
	}
	if err := repo.SaveCall(archivedCall("200", "MESA", "")); err != nil {
		t.Fatalf("Failed to save fresh record: %v", err)
	}

	deleted, err := repo.DeleteOlderThan(time.Now().Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 deleted row, got %d", deleted)
	}

	remaining, _ := repo.GetRecent(10)
	if len(remaining) != 1 || remaining[0].CallNumber != "200" {
		t.Errorf("Unexpected remaining records: %+v", remaining)
	}
}
