// audit_backend.go: storage backends of the invocation audit trail
//
// SQLite is the default backend; an OutputFile with a .jsonl extension selects
// the JSONL backend, which writes through lumberjack for size-based rotation.
// When SQLite cannot be opened the logger falls back to JSONL next to the
// requested database.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package fastcli

import (
	"bufio"
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver registration
	"gopkg.in/natefinch/lumberjack.v2"
)

// auditBackend persists and queries audit events.
type auditBackend interface {
	Write(events []AuditEvent) error
	Query(filter AuditFilter) ([]AuditEvent, error)
	Cleanup(before time.Time, dryRun bool) (int64, error)
	GetStats() (*AuditStats, error)
	Maintenance() error
	Close() error
}

// AuditFilter selects events. Zero fields match everything.
type AuditFilter struct {
	Since   time.Time
	Command string // exact command path, space separated
	Event   string
	Limit   int
}

func (f AuditFilter) matches(e AuditEvent) bool {
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	if f.Command != "" && e.Command != f.Command {
		return false
	}
	if f.Event != "" && e.Event != f.Event {
		return false
	}
	return true
}

// AuditStats summarizes an audit store.
type AuditStats struct {
	Backend         string           `json:"backend"`
	Path            string           `json:"path"`
	TotalEvents     int64            `json:"total_events"`
	EventsByType    map[string]int64 `json:"events_by_type"`
	EventsByCommand map[string]int64 `json:"events_by_command"`
	OldestEvent     *time.Time       `json:"oldest_event,omitempty"`
	NewestEvent     *time.Time       `json:"newest_event,omitempty"`
	SizeBytes       int64            `json:"size_bytes"`
	SchemaVersion   int              `json:"schema_version"`
}

func newAuditStats(backend, path string) *AuditStats {
	return &AuditStats{
		Backend:         backend,
		Path:            path,
		EventsByType:    make(map[string]int64),
		EventsByCommand: make(map[string]int64),
	}
}

func createAuditBackend(config AuditConfig) (auditBackend, error) {
	if filepath.Ext(config.OutputFile) == ".jsonl" {
		return newJSONLBackend(config)
	}

	backend, err := newSQLiteBackend(config)
	if err == nil {
		return backend, nil
	}

	fallback := config
	fallback.OutputFile = strings.TrimSuffix(sqlitePath(config), ".db") + ".jsonl"
	jsonl, jsonlErr := newJSONLBackend(fallback)
	if jsonlErr != nil {
		return nil, fmt.Errorf("all audit backends failed - SQLite: %w, JSONL: %v", err, jsonlErr)
	}
	return jsonl, nil
}

func sqlitePath(config AuditConfig) string {
	if filepath.Ext(config.OutputFile) == ".db" {
		return config.OutputFile
	}
	return defaultAuditPath()
}

// sqliteAuditBackend stores events in the invocation_events table.
type sqliteAuditBackend struct {
	db            *sql.DB
	dbPath        string
	retentionDays int
	insertStmt    *sql.Stmt
	mu            sync.RWMutex
	closed        bool
}

const auditSchemaVersion = 2

func newSQLiteBackend(config AuditConfig) (*sqliteAuditBackend, error) {
	dbPath := sqlitePath(config)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, fmt.Errorf("failed to create audit database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping audit database: %w", err)
	}

	s := &sqliteAuditBackend{db: db, dbPath: dbPath, retentionDays: config.RetentionDays}
	if err := s.ensureSchemaVersion(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize audit database schema: %w", err)
	}

	stmt, err := db.Prepare(`
	INSERT INTO invocation_events (
		id, timestamp, event, program, command, arguments,
		error_code, error, duration_ns, process_id, checksum
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	s.insertStmt = stmt

	_ = s.Maintenance() // retention is best effort at startup
	return s, nil
}

// ensureSchemaVersion creates or migrates the schema:
//   - v1: invocation_events table
//   - v2: query indexes
func (s *sqliteAuditBackend) ensureSchemaVersion() error {
	if _, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS schema_info (
		version INTEGER PRIMARY KEY,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("failed to create schema_info table: %w", err)
	}

	var version int
	err := s.db.QueryRow("SELECT version FROM schema_info ORDER BY version DESC LIMIT 1").Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to check schema version: %w", err)
	}
	if version >= auditSchemaVersion {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin migration transaction: %w", err)
	}
	for v := version; v < auditSchemaVersion; v++ {
		var stmts []string
		switch v {
		case 0:
			stmts = []string{`
			CREATE TABLE IF NOT EXISTS invocation_events (
				id TEXT PRIMARY KEY,
				timestamp INTEGER NOT NULL,
				event TEXT NOT NULL,
				program TEXT NOT NULL,
				command TEXT NOT NULL,
				arguments TEXT,
				error_code TEXT,
				error TEXT,
				duration_ns INTEGER NOT NULL,
				process_id INTEGER NOT NULL,
				checksum TEXT NOT NULL
			);`}
		case 1:
			stmts = []string{
				"CREATE INDEX IF NOT EXISTS idx_invocation_timestamp ON invocation_events(timestamp)",
				"CREATE INDEX IF NOT EXISTS idx_invocation_command_time ON invocation_events(command, timestamp)",
				"CREATE INDEX IF NOT EXISTS idx_invocation_event_time ON invocation_events(event, timestamp)",
			}
		}
		for _, stmt := range stmts {
			if _, err := tx.Exec(stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration to v%d failed: %w", v+1, err)
			}
		}
	}
	if _, err := tx.Exec("INSERT OR REPLACE INTO schema_info (version, updated_at) VALUES (?, CURRENT_TIMESTAMP)",
		auditSchemaVersion); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to update schema version: %w", err)
	}
	return tx.Commit()
}

func (s *sqliteAuditBackend) Write(events []AuditEvent) (err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("cannot write to closed SQLite audit backend")
	}
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin audit transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt := tx.Stmt(s.insertStmt)
	defer func() { _ = stmt.Close() }()

	for _, e := range events {
		var args []byte
		if e.Arguments != nil {
			if args, err = json.Marshal(e.Arguments); err != nil {
				return fmt.Errorf("failed to serialize arguments: %w", err)
			}
		}
		if _, err = stmt.Exec(e.ID, e.Timestamp.UnixNano(), e.Event, e.Program, e.Command,
			string(args), e.ErrorCode, e.Error, int64(e.Duration), e.ProcessID, e.Checksum); err != nil {
			return fmt.Errorf("failed to insert audit event: %w", err)
		}
	}
	return tx.Commit()
}

func (s *sqliteAuditBackend) Query(filter AuditFilter) ([]AuditEvent, error) {
	var where []string
	var params []any
	if !filter.Since.IsZero() {
		where = append(where, "timestamp >= ?")
		params = append(params, filter.Since.UnixNano())
	}
	if filter.Command != "" {
		where = append(where, "command = ?")
		params = append(params, filter.Command)
	}
	if filter.Event != "" {
		where = append(where, "event = ?")
		params = append(params, filter.Event)
	}

	query := `SELECT id, timestamp, event, program, command, arguments,
		error_code, error, duration_ns, process_id, checksum FROM invocation_events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY timestamp DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		params = append(params, filter.Limit)
	}

	rows, err := s.db.Query(query, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []AuditEvent
	for rows.Next() {
		var (
			e         AuditEvent
			ts, dur   int64
			args      sql.NullString
			code, msg sql.NullString
		)
		if err := rows.Scan(&e.ID, &ts, &e.Event, &e.Program, &e.Command, &args,
			&code, &msg, &dur, &e.ProcessID, &e.Checksum); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		e.Timestamp = time.Unix(0, ts)
		e.Duration = time.Duration(dur)
		e.ErrorCode, e.Error = code.String, msg.String
		if args.Valid && args.String != "" {
			if err := decodeJSON([]byte(args.String), &e.Arguments); err != nil {
				return nil, fmt.Errorf("failed to decode arguments of %s: %w", e.ID, err)
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *sqliteAuditBackend) Cleanup(before time.Time, dryRun bool) (int64, error) {
	if dryRun {
		var n int64
		err := s.db.QueryRow("SELECT COUNT(*) FROM invocation_events WHERE timestamp < ?", before.UnixNano()).Scan(&n)
		if err != nil {
			return 0, fmt.Errorf("failed to count old audit events: %w", err)
		}
		return n, nil
	}
	res, err := s.db.Exec("DELETE FROM invocation_events WHERE timestamp < ?", before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old audit events: %w", err)
	}
	return res.RowsAffected()
}

func (s *sqliteAuditBackend) GetStats() (*AuditStats, error) {
	stats := newAuditStats("sqlite", s.dbPath)

	if err := s.db.QueryRow("SELECT COUNT(*) FROM invocation_events").Scan(&stats.TotalEvents); err != nil {
		return nil, fmt.Errorf("failed to get total events count: %w", err)
	}
	if err := s.groupCount("event", stats.EventsByType); err != nil {
		return nil, err
	}
	if err := s.groupCount("command", stats.EventsByCommand); err != nil {
		return nil, err
	}

	var oldest, newest sql.NullInt64
	if err := s.db.QueryRow("SELECT MIN(timestamp), MAX(timestamp) FROM invocation_events").
		Scan(&oldest, &newest); err != nil {
		return nil, fmt.Errorf("failed to get event time range: %w", err)
	}
	if oldest.Valid {
		t := time.Unix(0, oldest.Int64)
		stats.OldestEvent = &t
	}
	if newest.Valid {
		t := time.Unix(0, newest.Int64)
		stats.NewestEvent = &t
	}

	if err := s.db.QueryRow("SELECT version FROM schema_info ORDER BY version DESC LIMIT 1").
		Scan(&stats.SchemaVersion); err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get schema version: %w", err)
	}
	if info, err := os.Stat(s.dbPath); err == nil {
		stats.SizeBytes = info.Size()
	}
	return stats, nil
}

// groupCount fills counts with COUNT(*) grouped by column. column is one of
// the fixed names used by GetStats.
func (s *sqliteAuditBackend) groupCount(column string, counts map[string]int64) error {
	// #nosec G202 -- column is a constant chosen by the caller
	rows, err := s.db.Query("SELECT " + column + ", COUNT(*) FROM invocation_events GROUP BY " + column)
	if err != nil {
		return fmt.Errorf("failed to get events by %s: %w", column, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var key string
		var n int64
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("failed to scan %s stats: %w", column, err)
		}
		counts[key] = n
	}
	return rows.Err()
}

// Maintenance removes events beyond the retention period and checkpoints
// the WAL.
func (s *sqliteAuditBackend) Maintenance() error {
	if s.retentionDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -s.retentionDays)
		if _, err := s.Cleanup(cutoff, false); err != nil {
			return err
		}
	}
	for _, task := range []string{"PRAGMA optimize", "PRAGMA wal_checkpoint(FULL)"} {
		_, _ = s.db.Exec(task) // optimizations only
	}
	return nil
}

func (s *sqliteAuditBackend) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []string
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		errs = append(errs, err.Error())
	}
	if err := s.insertStmt.Close(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing SQLite audit backend: %s", strings.Join(errs, "; "))
	}
	return nil
}

// jsonlAuditBackend appends one JSON object per line through a rotating
// lumberjack writer. Queries read the current file only.
type jsonlAuditBackend struct {
	path          string
	writer        *lumberjack.Logger
	retentionDays int
	mu            sync.Mutex
	closed        bool
}

func newJSONLBackend(config AuditConfig) (*jsonlAuditBackend, error) {
	if config.OutputFile == "" {
		return nil, fmt.Errorf("JSONL backend requires OutputFile to be specified")
	}
	if err := os.MkdirAll(filepath.Dir(config.OutputFile), 0750); err != nil {
		return nil, fmt.Errorf("failed to create JSONL audit log directory: %w", err)
	}

	return &jsonlAuditBackend{
		path: config.OutputFile,
		writer: &lumberjack.Logger{
			Filename:   config.OutputFile,
			MaxSize:    config.MaxSizeMB,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAgeDays,
			Compress:   config.Compress,
		},
		retentionDays: config.RetentionDays,
	}, nil
}

func (j *jsonlAuditBackend) Write(events []AuditEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return fmt.Errorf("cannot write to closed JSONL audit backend")
	}

	for _, e := range events {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to serialize audit event: %w", err)
		}
		if _, err := j.writer.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("failed to write audit event to JSONL: %w", err)
		}
	}
	return nil
}

// readAll loads every event of the current file; caller holds mu.
func (j *jsonlAuditBackend) readAll() ([]AuditEvent, error) {
	f, err := os.Open(j.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open JSONL audit file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var events []AuditEvent
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var e AuditEvent
		if err := decodeJSON(line, &e); err != nil {
			return nil, fmt.Errorf("corrupt JSONL audit line: %w", err)
		}
		events = append(events, e)
	}
	return events, sc.Err()
}

// decodeJSON keeps numbers as json.Number so integers beyond 2^53 survive
// and checksums still verify.
func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after JSON value")
	}
	return nil
}

func (j *jsonlAuditBackend) Query(filter AuditFilter) ([]AuditEvent, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	all, err := j.readAll()
	if err != nil {
		return nil, err
	}
	var out []AuditEvent
	for i := len(all) - 1; i >= 0; i-- {
		if filter.matches(all[i]) {
			out = append(out, all[i])
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Timestamp.After(out[b].Timestamp) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Cleanup rewrites the current file without the old events.
func (j *jsonlAuditBackend) Cleanup(before time.Time, dryRun bool) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	all, err := j.readAll()
	if err != nil {
		return 0, err
	}
	var keep []AuditEvent
	for _, e := range all {
		if !e.Timestamp.Before(before) {
			keep = append(keep, e)
		}
	}
	removed := int64(len(all) - len(keep))
	if dryRun || removed == 0 {
		return removed, nil
	}

	// lumberjack reopens the file lazily on the next write.
	if err := j.writer.Close(); err != nil {
		return 0, fmt.Errorf("failed to close JSONL writer: %w", err)
	}
	tmp := j.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return 0, fmt.Errorf("failed to create JSONL cleanup file: %w", err)
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, e := range keep {
		if err := enc.Encode(e); err != nil {
			_ = f.Close()
			return 0, fmt.Errorf("failed to rewrite audit event: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return 0, fmt.Errorf("failed to flush JSONL cleanup file: %w", err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("failed to close JSONL cleanup file: %w", err)
	}
	if err := os.Rename(tmp, j.path); err != nil {
		return 0, fmt.Errorf("failed to replace JSONL audit file: %w", err)
	}
	return removed, nil
}

func (j *jsonlAuditBackend) GetStats() (*AuditStats, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	stats := newAuditStats("jsonl", j.path)
	stats.SchemaVersion = 1
	all, err := j.readAll()
	if err != nil {
		return nil, err
	}
	for i := range all {
		e := &all[i]
		stats.TotalEvents++
		stats.EventsByType[e.Event]++
		stats.EventsByCommand[e.Command]++
		if stats.OldestEvent == nil || e.Timestamp.Before(*stats.OldestEvent) {
			stats.OldestEvent = &e.Timestamp
		}
		if stats.NewestEvent == nil || e.Timestamp.After(*stats.NewestEvent) {
			stats.NewestEvent = &e.Timestamp
		}
	}
	if info, err := os.Stat(j.path); err == nil {
		stats.SizeBytes = info.Size()
	}
	return stats, nil
}

// Maintenance applies retention to the current file; lumberjack already
// ages out rotated backups.
func (j *jsonlAuditBackend) Maintenance() error {
	if j.retentionDays <= 0 {
		return nil
	}
	_, err := j.Cleanup(time.Now().AddDate(0, 0, -j.retentionDays), false)
	return err
}

func (j *jsonlAuditBackend) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	return j.writer.Close()
}
