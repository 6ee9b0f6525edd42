// audit_backend_test.go: tests for the SQLite and JSONL audit backends
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package fastcli

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver for tests
)

// createTestSQLiteBackend creates a SQLite backend in a temporary directory
func createTestSQLiteBackend(t *testing.T) (*sqliteAuditBackend, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test_audit.db")
	backend, err := newSQLiteBackend(AuditConfig{Enabled: true, OutputFile: dbPath})
	if err != nil {
		t.Fatalf("Failed to create SQLite backend: %v", err)
	}
	t.Cleanup(func() { _ = backend.Close() })
	return backend, dbPath
}

// createTestJSONLBackend creates a JSONL backend in a temporary directory
func createTestJSONLBackend(t *testing.T) (*jsonlAuditBackend, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	backend, err := newJSONLBackend(AuditConfig{Enabled: true, OutputFile: path, MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("Failed to create JSONL backend: %v", err)
	}
	t.Cleanup(func() { _ = backend.Close() })
	return backend, path
}

// testEvents returns events spread over the last days, oldest first
func testEvents(now time.Time) []AuditEvent {
	mk := func(i int, age time.Duration, event, command string) AuditEvent {
		e := AuditEvent{
			ID:        fmt.Sprintf("event-%02d", i),
			Timestamp: now.Add(-age),
			Event:     event,
			Program:   "prog",
			Command:   command,
			Arguments: map[string]any{"n": i},
			Duration:  time.Millisecond,
			ProcessID: 42,
		}
		if event != EventCommandInvoked {
			e.ErrorCode = ErrCodeArgumentCast
			e.Error = "bad value"
		}
		e.Checksum = generateChecksum(e)
		return e
	}
	return []AuditEvent{
		mk(1, 72*time.Hour, EventCommandInvoked, "serve"),
		mk(2, 48*time.Hour, EventUsageError, "serve"),
		mk(3, 2*time.Hour, EventCommandInvoked, "db migrate"),
		mk(4, time.Hour, EventCommandFailed, "serve"),
		mk(5, time.Minute, EventCommandInvoked, "serve"),
	}
}

// backendCase runs the same behavior checks against every backend
type backendCase struct {
	name string
	open func(t *testing.T) auditBackend
}

func backendCases() []backendCase {
	return []backendCase{
		{"sqlite", func(t *testing.T) auditBackend { b, _ := createTestSQLiteBackend(t); return b }},
		{"jsonl", func(t *testing.T) auditBackend { b, _ := createTestJSONLBackend(t); return b }},
	}
}

func TestBackend_WriteAndQuery(t *testing.T) {
	for _, bc := range backendCases() {
		t.Run(bc.name, func(t *testing.T) {
			backend := bc.open(t)
			now := time.Now()
			if err := backend.Write(testEvents(now)); err != nil {
				t.Fatalf("Write failed: %v", err)
			}

			all, err := backend.Query(AuditFilter{})
			if err != nil {
				t.Fatalf("Query failed: %v", err)
			}
			if len(all) != 5 {
				t.Fatalf("Expected 5 events, got %d", len(all))
			}
			if all[0].ID != "event-05" || all[4].ID != "event-01" {
				t.Errorf("Events must be newest first, got %s ... %s", all[0].ID, all[4].ID)
			}
			for _, e := range all {
				if !VerifyChecksum(e) {
					t.Errorf("Checksum mismatch after round trip for %s", e.ID)
				}
			}

			serve, _ := backend.Query(AuditFilter{Command: "serve"})
			if len(serve) != 4 {
				t.Errorf("Expected 4 serve events, got %d", len(serve))
			}
			failed, _ := backend.Query(AuditFilter{Event: EventCommandFailed})
			if len(failed) != 1 || failed[0].ErrorCode != ErrCodeArgumentCast {
				t.Errorf("Expected one failed event with its code, got %+v", failed)
			}
			recent, _ := backend.Query(AuditFilter{Since: now.Add(-3 * time.Hour)})
			if len(recent) != 3 {
				t.Errorf("Expected 3 recent events, got %d", len(recent))
			}
			limited, _ := backend.Query(AuditFilter{Limit: 2})
			if len(limited) != 2 || limited[0].ID != "event-05" {
				t.Errorf("Expected the 2 newest events, got %+v", limited)
			}
		})
	}
}

func TestBackend_Stats(t *testing.T) {
	for _, bc := range backendCases() {
		t.Run(bc.name, func(t *testing.T) {
			backend := bc.open(t)
			now := time.Now()
			if err := backend.Write(testEvents(now)); err != nil {
				t.Fatalf("Write failed: %v", err)
			}

			stats, err := backend.GetStats()
			if err != nil {
				t.Fatalf("GetStats failed: %v", err)
			}
			if stats.Backend != bc.name {
				t.Errorf("Expected backend %s, got %s", bc.name, stats.Backend)
			}
			if stats.TotalEvents != 5 {
				t.Errorf("Expected 5 events, got %d", stats.TotalEvents)
			}
			if stats.EventsByType[EventCommandInvoked] != 3 || stats.EventsByCommand["serve"] != 4 {
				t.Errorf("Unexpected grouping: %v %v", stats.EventsByType, stats.EventsByCommand)
			}
			if stats.OldestEvent == nil || stats.NewestEvent == nil || !stats.OldestEvent.Before(*stats.NewestEvent) {
				t.Errorf("Unexpected time range: %v - %v", stats.OldestEvent, stats.NewestEvent)
			}
			if stats.SizeBytes <= 0 {
				t.Error("Expected a non-empty store")
			}
		})
	}
}

func TestBackend_Cleanup(t *testing.T) {
	for _, bc := range backendCases() {
		t.Run(bc.name, func(t *testing.T) {
			backend := bc.open(t)
			now := time.Now()
			if err := backend.Write(testEvents(now)); err != nil {
				t.Fatalf("Write failed: %v", err)
			}

			cutoff := now.Add(-24 * time.Hour)
			n, err := backend.Cleanup(cutoff, true)
			if err != nil || n != 2 {
				t.Fatalf("Dry run: expected 2, got %d, %v", n, err)
			}
			if all, _ := backend.Query(AuditFilter{}); len(all) != 5 {
				t.Errorf("Dry run must not delete, %d events left", len(all))
			}

			n, err = backend.Cleanup(cutoff, false)
			if err != nil || n != 2 {
				t.Fatalf("Cleanup: expected 2, got %d, %v", n, err)
			}
			all, _ := backend.Query(AuditFilter{})
			if len(all) != 3 {
				t.Errorf("Expected 3 events left, got %d", len(all))
			}

			// The store stays writable after a cleanup.
			extra := testEvents(now)[4]
			extra.ID = "event-06"
			if err := backend.Write([]AuditEvent{extra}); err != nil {
				t.Fatalf("Write after cleanup failed: %v", err)
			}
			if all, _ := backend.Query(AuditFilter{}); len(all) != 4 {
				t.Errorf("Expected 4 events, got %d", len(all))
			}
		})
	}
}

func TestBackend_WriteAfterClose(t *testing.T) {
	for _, bc := range backendCases() {
		t.Run(bc.name, func(t *testing.T) {
			backend := bc.open(t)
			if err := backend.Close(); err != nil {
				t.Fatalf("Close failed: %v", err)
			}
			if err := backend.Write(testEvents(time.Now())); err == nil {
				t.Error("Write on a closed backend must fail")
			}
			if err := backend.Close(); err != nil {
				t.Errorf("Second Close must be a no-op, got %v", err)
			}
		})
	}
}

func TestSQLiteBackend_SchemaVersioning(t *testing.T) {
	backend, dbPath := createTestSQLiteBackend(t)

	stats, err := backend.GetStats()
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.SchemaVersion != auditSchemaVersion {
		t.Errorf("Expected schema version %d, got %d", auditSchemaVersion, stats.SchemaVersion)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	for _, index := range []string{"idx_invocation_timestamp", "idx_invocation_command_time", "idx_invocation_event_time"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='index' AND name=?", index).Scan(&name)
		if err != nil {
			t.Errorf("Index %s not found: %v", index, err)
		}
	}

	// Reopening an up-to-date database must not migrate again.
	again, err := newSQLiteBackend(AuditConfig{Enabled: true, OutputFile: dbPath})
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	_ = again.Close()
}

func TestSQLiteBackend_ConcurrentWrites(t *testing.T) {
	backend, _ := createTestSQLiteBackend(t)

	const writers, perWriter = 4, 10
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				e := AuditEvent{
					ID:        fmt.Sprintf("w%d-%d", w, i),
					Timestamp: time.Now(),
					Event:     EventCommandInvoked,
					Program:   "prog",
					Command:   "serve",
				}
				e.Checksum = generateChecksum(e)
				if err := backend.Write([]AuditEvent{e}); err != nil {
					errs <- err
					return
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Concurrent write failed: %v", err)
	}

	stats, err := backend.GetStats()
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.TotalEvents != writers*perWriter {
		t.Errorf("Expected %d events, got %d", writers*perWriter, stats.TotalEvents)
	}
}

func TestJSONLBackend_CorruptLine(t *testing.T) {
	backend, path := createTestJSONLBackend(t)
	if err := os.WriteFile(path, []byte("{not json}\n"), 0600); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if _, err := backend.Query(AuditFilter{}); err == nil {
		t.Error("Query must report a corrupt line")
	}
}

func TestJSONLBackend_RequiresOutputFile(t *testing.T) {
	if _, err := newJSONLBackend(AuditConfig{}); err == nil {
		t.Error("JSONL backend without OutputFile must fail")
	}
}

func TestCreateAuditBackend_Selection(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		file string
		want string
	}{
		{filepath.Join(dir, "audit.db"), "sqlite"},
		{filepath.Join(dir, "audit.jsonl"), "jsonl"},
	}
	for _, tt := range tests {
		backend, err := createAuditBackend(AuditConfig{Enabled: true, OutputFile: tt.file})
		if err != nil {
			t.Fatalf("createAuditBackend(%s) failed: %v", tt.file, err)
		}
		stats, err := backend.GetStats()
		if err != nil {
			t.Fatalf("GetStats failed: %v", err)
		}
		if stats.Backend != tt.want || stats.Path != tt.file {
			t.Errorf("Expected %s at %s, got %s at %s", tt.want, tt.file, stats.Backend, stats.Path)
		}
		_ = backend.Close()
	}
}
