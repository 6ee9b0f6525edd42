// audit.go: invocation audit trail
//
// Every dispatched invocation can be recorded as an event with its command
// path, bound arguments, outcome and duration. Events are buffered and
// written in batches to a pluggable backend (SQLite or JSONL).
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package fastcli

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/agilira/go-errors"
	"github.com/agilira/go-timecache"
	"github.com/google/uuid"
)

// Audit event names.
const (
	EventCommandInvoked = "command_invoked"
	EventCommandFailed  = "command_failed"
	EventUsageError     = "usage_error"
)

// Invocation describes one dispatched command line.
type Invocation struct {
	Program   string
	Command   []string
	Arguments map[string]any
	Err       error
	Duration  time.Duration
}

// AuditEvent is a single persisted invocation record.
type AuditEvent struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Event     string         `json:"event"`
	Program   string         `json:"program"`
	Command   string         `json:"command"`
	Arguments map[string]any `json:"arguments,omitempty"`
	ErrorCode string         `json:"error_code,omitempty"`
	Error     string         `json:"error,omitempty"`
	Duration  time.Duration  `json:"duration_ns"`
	ProcessID int            `json:"process_id"`
	Checksum  string         `json:"checksum"`
}

// AuditConfig configures the audit trail.
type AuditConfig struct {
	Enabled       bool          `json:"enabled"`
	OutputFile    string        `json:"output_file"` // .jsonl selects JSONL, .db or empty selects SQLite
	BufferSize    int           `json:"buffer_size"`
	FlushInterval time.Duration `json:"flush_interval"`
	RetentionDays int           `json:"retention_days"`

	// JSONL rotation
	MaxSizeMB  int  `json:"max_size_mb"`
	MaxBackups int  `json:"max_backups"`
	MaxAgeDays int  `json:"max_age_days"`
	Compress   bool `json:"compress"`
}

// DefaultAuditConfig returns the default configuration: SQLite in the shared
// audit database, 90 days of retention.
func DefaultAuditConfig() AuditConfig {
	return AuditConfig{
		Enabled:       true,
		BufferSize:    100,
		FlushInterval: 5 * time.Second,
		RetentionDays: 90,
		MaxSizeMB:     10,
		MaxBackups:    5,
		MaxAgeDays:    30,
	}
}

// AuditConfigFromEnv overlays PREFIX_AUDIT_* variables on the default
// configuration: ENABLED, OUTPUT_FILE, BUFFER_SIZE, FLUSH_INTERVAL,
// RETENTION_DAYS.
func AuditConfigFromEnv(prefix string) (AuditConfig, error) {
	cfg := DefaultAuditConfig()
	key := func(name string) string { return strings.ToUpper(prefix) + "_AUDIT_" + name }

	if v := os.Getenv(key("ENABLED")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, errors.New(ErrCodeAuditError, "invalid "+key("ENABLED")+" value")
		}
		cfg.Enabled = b
	}
	if v := os.Getenv(key("OUTPUT_FILE")); v != "" {
		cfg.OutputFile = v
	}
	if v := os.Getenv(key("BUFFER_SIZE")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return cfg, errors.New(ErrCodeAuditError, "invalid "+key("BUFFER_SIZE")+" value")
		}
		cfg.BufferSize = n
	}
	if v := os.Getenv(key("FLUSH_INTERVAL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, errors.New(ErrCodeAuditError, "invalid "+key("FLUSH_INTERVAL")+" format")
		}
		cfg.FlushInterval = d
	}
	if v := os.Getenv(key("RETENTION_DAYS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return cfg, errors.New(ErrCodeAuditError, "invalid "+key("RETENTION_DAYS")+" value")
		}
		cfg.RetentionDays = n
	}
	return cfg, nil
}

// AuditLogger buffers invocation events and writes them to its backend.
// It is safe for concurrent use.
type AuditLogger struct {
	config      AuditConfig
	backend     auditBackend
	buffer      []AuditEvent
	bufferMu    sync.Mutex
	flushTicker *time.Ticker
	stopCh      chan struct{}
	closeOnce   sync.Once
	processID   int
}

// NewAuditLogger opens the backend selected by config.OutputFile and starts
// the background flusher when FlushInterval is positive.
func NewAuditLogger(config AuditConfig) (*AuditLogger, error) {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultAuditConfig().BufferSize
	}

	backend, err := createAuditBackend(config)
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeAuditError, "failed to initialize audit backend")
	}

	logger := &AuditLogger{
		config:    config,
		backend:   backend,
		buffer:    make([]AuditEvent, 0, config.BufferSize),
		stopCh:    make(chan struct{}),
		processID: os.Getpid(),
	}

	if config.FlushInterval > 0 {
		logger.flushTicker = time.NewTicker(config.FlushInterval)
		go logger.flushLoop()
	}
	return logger, nil
}

// LogInvocation records inv. A nil or disabled logger ignores it.
func (al *AuditLogger) LogInvocation(inv Invocation) {
	if al == nil || al.backend == nil || !al.config.Enabled {
		return
	}

	event := AuditEvent{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Timestamp: timecache.CachedTime(),
		Event:     eventName(inv.Err),
		Program:   inv.Program,
		Command:   strings.Join(inv.Command, " "),
		Arguments: auditArguments(inv.Arguments),
		Duration:  inv.Duration,
		ProcessID: al.processID,
	}
	if inv.Err != nil {
		event.ErrorCode = ErrorCode(inv.Err)
		event.Error = inv.Err.Error()
	}
	event.Checksum = generateChecksum(event)

	al.bufferMu.Lock()
	al.buffer = append(al.buffer, event)
	if len(al.buffer) >= al.config.BufferSize {
		_ = al.flushBufferUnsafe() // retried on the next flush
	}
	al.bufferMu.Unlock()
}

func eventName(err error) string {
	switch {
	case err == nil:
		return EventCommandInvoked
	case IsUsageError(err):
		return EventUsageError
	default:
		return EventCommandFailed
	}
}

// auditArguments converts argument values into JSON-friendly ones. Fixed
// arrays become slices and enumeration members their names.
func auditArguments(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		switch x := v.(type) {
		case EnumMember:
			out[k] = x.Name
		case nil, string, int, float64, bool, []string, []int, []float64, []bool:
			out[k] = x
		default:
			out[k] = fmt.Sprint(x)
		}
	}
	return out
}

// Flush writes all buffered events.
func (al *AuditLogger) Flush() error {
	if al == nil {
		return nil
	}
	al.bufferMu.Lock()
	defer al.bufferMu.Unlock()
	return al.flushBufferUnsafe()
}

// Query returns stored events matching filter, newest first.
func (al *AuditLogger) Query(filter AuditFilter) ([]AuditEvent, error) {
	if err := al.Flush(); err != nil {
		return nil, err
	}
	return al.backend.Query(filter)
}

// Stats summarizes the stored events.
func (al *AuditLogger) Stats() (*AuditStats, error) {
	if err := al.Flush(); err != nil {
		return nil, err
	}
	return al.backend.GetStats()
}

// Cleanup deletes events older than olderThan and returns how many were, or
// with dryRun would be, removed.
func (al *AuditLogger) Cleanup(olderThan time.Duration, dryRun bool) (int64, error) {
	if err := al.Flush(); err != nil {
		return 0, err
	}
	cutoff := timecache.CachedTime().Add(-olderThan)
	return al.backend.Cleanup(cutoff, dryRun)
}

// Maintenance applies the retention policy and optimizes the backend.
func (al *AuditLogger) Maintenance() error {
	return al.backend.Maintenance()
}

// Close stops the background flusher, flushes and releases the backend.
// Calling Close more than once is safe.
func (al *AuditLogger) Close() error {
	var err error
	al.closeOnce.Do(func() {
		close(al.stopCh)
		if al.flushTicker != nil {
			al.flushTicker.Stop()
		}
		if ferr := al.Flush(); ferr != nil {
			err = errors.Wrap(ferr, ErrCodeAuditError, "failed to flush audit logger during close")
			return
		}
		if cerr := al.backend.Close(); cerr != nil {
			err = errors.Wrap(cerr, ErrCodeAuditError, "failed to close audit backend")
		}
	})
	return err
}

func (al *AuditLogger) flushLoop() {
	for {
		select {
		case <-al.flushTicker.C:
			_ = al.Flush() // next tick retries
		case <-al.stopCh:
			return
		}
	}
}

// flushBufferUnsafe writes the buffer to the backend; caller holds bufferMu.
func (al *AuditLogger) flushBufferUnsafe() error {
	if len(al.buffer) == 0 {
		return nil
	}
	if err := al.backend.Write(al.buffer); err != nil {
		return errors.Wrap(err, ErrCodeAuditError, "failed to write audit events")
	}
	al.buffer = al.buffer[:0]
	return nil
}

// generateChecksum is a SHA-256 over the identifying fields, for tamper
// detection.
func generateChecksum(event AuditEvent) string {
	args, _ := json.Marshal(event.Arguments) // #nosec G104 -- map of plain values
	data := fmt.Sprintf("%s:%s:%s:%s:%s:%s:%s",
		event.ID,
		event.Timestamp.UTC().Format(time.RFC3339Nano),
		event.Event, event.Program, event.Command, args, event.ErrorCode)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// VerifyChecksum reports whether event still matches its checksum.
func VerifyChecksum(event AuditEvent) bool {
	return generateChecksum(event) == event.Checksum
}

// defaultAuditPath is the shared SQLite audit database.
func defaultAuditPath() string {
	return filepath.Join(os.TempDir(), "fastcli", "audit.db")
}
