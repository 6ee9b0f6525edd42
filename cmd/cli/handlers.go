// Command handlers for the fastcli inspection tool
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/agilira/fastcli"
	"github.com/agilira/go-errors"
	"github.com/agilira/orpheus/pkg/orpheus"
)

func (m *Manager) requireAudit() error {
	if m.auditLogger == nil {
		return errors.New(fastcli.ErrCodeAuditError, "audit logging not enabled")
	}
	return nil
}

// handleAuditQuery prints recorded invocations, newest first.
func (m *Manager) handleAuditQuery(ctx *orpheus.Context) error {
	if err := m.requireAudit(); err != nil {
		return err
	}

	since, err := parseExtendedDuration(ctx.GetFlagString("since"))
	if err != nil {
		return errors.Wrap(err, fastcli.ErrCodeAuditError, "invalid --since value")
	}
	event := ctx.GetFlagString("event")
	if event != "" && !validEvent(event) {
		return errors.New(fastcli.ErrCodeAuditError, fmt.Sprintf("unknown event: %s", event))
	}

	events, err := m.auditLogger.Query(fastcli.AuditFilter{
		Since:   time.Now().Add(-since),
		Command: ctx.GetFlagString("command"),
		Event:   event,
		Limit:   ctx.GetFlagInt("limit"),
	})
	if err != nil {
		return errors.Wrap(err, fastcli.ErrCodeAuditError, "audit query failed")
	}

	if len(events) == 0 {
		_, _ = fmt.Fprintln(m.out, "No audit events found")
		return nil
	}

	tw := tabwriter.NewWriter(m.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TIME\tEVENT\tCOMMAND\tCODE\tDURATION\tID")
	for _, e := range events {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Format(time.RFC3339),
			e.Event,
			strings.TrimSpace(e.Program+" "+e.Command),
			dash(e.ErrorCode),
			e.Duration.Round(time.Microsecond),
			e.ID)
	}
	return tw.Flush()
}

// handleAuditStats prints totals by event and by command.
func (m *Manager) handleAuditStats(ctx *orpheus.Context) error {
	if err := m.requireAudit(); err != nil {
		return err
	}

	stats, err := m.auditLogger.Stats()
	if err != nil {
		return errors.Wrap(err, fastcli.ErrCodeAuditError, "failed to read audit statistics")
	}

	_, _ = fmt.Fprintf(m.out, "Backend: %s (%s)\n", stats.Backend, stats.Path)
	_, _ = fmt.Fprintf(m.out, "Schema version: %d\n", stats.SchemaVersion)
	_, _ = fmt.Fprintf(m.out, "Size: %d bytes\n", stats.SizeBytes)
	_, _ = fmt.Fprintf(m.out, "Total events: %d\n", stats.TotalEvents)
	if stats.OldestEvent != nil && stats.NewestEvent != nil {
		_, _ = fmt.Fprintf(m.out, "Range: %s .. %s\n",
			stats.OldestEvent.Format(time.RFC3339), stats.NewestEvent.Format(time.RFC3339))
	}

	writeCounts(m, "By event", stats.EventsByType)
	writeCounts(m, "By command", stats.EventsByCommand)
	return nil
}

// handleAuditCleanup deletes events older than --older-than.
func (m *Manager) handleAuditCleanup(ctx *orpheus.Context) error {
	if err := m.requireAudit(); err != nil {
		return err
	}

	olderThan, err := parseExtendedDuration(ctx.GetFlagString("older-than"))
	if err != nil {
		return errors.Wrap(err, fastcli.ErrCodeAuditError, "invalid --older-than value")
	}
	dryRun := ctx.GetFlagBool("dry-run")

	n, err := m.auditLogger.Cleanup(olderThan, dryRun)
	if err != nil {
		return errors.Wrap(err, fastcli.ErrCodeAuditError, "audit cleanup failed")
	}

	if dryRun {
		_, _ = fmt.Fprintf(m.out, "Would delete %d events older than %s\n", n, olderThan)
	} else {
		_, _ = fmt.Fprintf(m.out, "Deleted %d events older than %s\n", n, olderThan)
	}
	return nil
}

// handleInfo displays tool information.
func (m *Manager) handleInfo(ctx *orpheus.Context) error {
	_, _ = fmt.Fprintf(m.out, "fastcli audit inspection tool\n")
	_, _ = fmt.Fprintf(m.out, "Version: %s\n", Version)

	if ctx.GetFlagBool("verbose") {
		_, _ = fmt.Fprintf(m.out, "Audit logging: %v\n", m.auditLogger != nil)
		_, _ = fmt.Fprintf(m.out, "Events: %s, %s, %s\n",
			fastcli.EventCommandInvoked, fastcli.EventCommandFailed, fastcli.EventUsageError)
		_, _ = fmt.Fprintf(m.out, "Environment: %s_AUDIT_OUTPUT_FILE selects the trail\n", EnvPrefix)
	}
	return nil
}

// handleCompletion generates shell completion scripts.
func (m *Manager) handleCompletion(ctx *orpheus.Context) error {
	const words = "audit info completion"
	switch shell := ctx.GetArg(0); shell {
	case "bash":
		_, _ = fmt.Fprintf(m.out, "# Bash completion for fastcli\n")
		_, _ = fmt.Fprintf(m.out, "_fastcli_completion() {\n")
		_, _ = fmt.Fprintf(m.out, "  COMPREPLY=($(compgen -W '%s' -- \"${COMP_WORDS[COMP_CWORD]}\"))\n", words)
		_, _ = fmt.Fprintf(m.out, "}\n")
		_, _ = fmt.Fprintf(m.out, "complete -F _fastcli_completion fastcli\n")
	case "zsh":
		_, _ = fmt.Fprintf(m.out, "#compdef fastcli\n")
		_, _ = fmt.Fprintf(m.out, "_fastcli() {\n")
		_, _ = fmt.Fprintf(m.out, "  _arguments '1: :(%s)'\n", words)
		_, _ = fmt.Fprintf(m.out, "}\n")
	case "fish":
		_, _ = fmt.Fprintf(m.out, "complete -c fastcli -f -a '%s'\n", words)
	default:
		return errors.New(fastcli.ErrCodeAuditError, fmt.Sprintf("unsupported shell: %s", shell))
	}
	return nil
}

func writeCounts(m *Manager, title string, counts map[string]int64) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	_, _ = fmt.Fprintf(m.out, "%s:\n", title)
	for _, k := range keys {
		_, _ = fmt.Fprintf(m.out, "  %-24s %d\n", dash(k), counts[k])
	}
}
