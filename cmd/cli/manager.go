// Package cli provides the fastcli audit inspection tool.
//
// The tool reads the invocation audit trail written by programs built with
// fastcli: it queries events, prints statistics and applies retention.
// Commands are routed by Orpheus.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"io"
	"os"

	"github.com/agilira/fastcli"
	"github.com/agilira/orpheus/pkg/orpheus"
)

// Version of the inspection tool.
const Version = "1.0.0"

// Manager routes inspection commands over one audit trail. A Manager serves
// a single Run: flag values parsed by one run persist into the next.
type Manager struct {
	app         *orpheus.App
	auditLogger *fastcli.AuditLogger
	out         io.Writer
}

// NewManager creates the inspection CLI. Audit commands fail until an audit
// logger is attached with WithAudit.
func NewManager() *Manager {
	app := orpheus.New("fastcli").
		SetDescription("Inspect the invocation audit trail of fastcli programs").
		SetVersion(Version)

	manager := &Manager{
		app: app,
		out: os.Stdout,
	}

	manager.setupAuditCommands()
	manager.setupUtilityCommands()

	return manager
}

// WithAudit attaches the audit trail to inspect.
func (m *Manager) WithAudit(auditLogger *fastcli.AuditLogger) *Manager {
	m.auditLogger = auditLogger
	return m
}

// WithOutput redirects command output, stdout by default.
func (m *Manager) WithOutput(w io.Writer) *Manager {
	if w != nil {
		m.out = w
	}
	return m
}

// Run executes the CLI with args, excluding the program name.
func (m *Manager) Run(args []string) error {
	return m.app.Run(args)
}

// setupAuditCommands configures the 'audit' command group.
func (m *Manager) setupAuditCommands() {
	auditCmd := orpheus.NewCommand("audit", "Invocation audit trail")

	// audit query [--since=24h] [--command=] [--event=] [--limit=100]
	queryCmd := auditCmd.Subcommand("query", "Query recorded invocations", m.handleAuditQuery)
	queryCmd.AddFlag("since", "s", "24h", "Time range (e.g., 24h, 7d, 2w)")
	queryCmd.AddFlag("command", "c", "", "Command path filter (e.g., \"db migrate\")")
	queryCmd.AddFlag("event", "e", "", "Event filter (command_invoked|command_failed|usage_error)")
	queryCmd.AddIntFlag("limit", "l", 100, "Maximum results")

	// audit stats
	auditCmd.Subcommand("stats", "Show audit trail statistics", m.handleAuditStats)

	// audit cleanup [--older-than=30d] [--dry-run]
	cleanupCmd := auditCmd.Subcommand("cleanup", "Delete old audit events", m.handleAuditCleanup)
	cleanupCmd.AddFlag("older-than", "o", "30d", "Delete entries older than")
	cleanupCmd.AddBoolFlag("dry-run", "d", false, "Show what would be deleted")

	m.app.AddCommand(auditCmd)
}

// setupUtilityCommands configures info and completion.
func (m *Manager) setupUtilityCommands() {
	infoCmd := orpheus.NewCommand("info", "Tool information and diagnostics")
	infoCmd.SetHandler(m.handleInfo)
	infoCmd.AddBoolFlag("verbose", "v", false, "Verbose information")
	m.app.AddCommand(infoCmd)

	completionCmd := orpheus.NewCommand("completion", "Generate shell completion scripts")
	completionCmd.SetHandler(m.handleCompletion)
	m.app.AddCommand(completionCmd)
}
