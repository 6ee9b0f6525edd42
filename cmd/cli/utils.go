// Utility functions for the fastcli inspection tool
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/agilira/fastcli"
)

// EnvPrefix is the prefix of the environment variables read by the tool.
const EnvPrefix = "FASTCLI"

var extendedDuration = regexp.MustCompile(`^(\d+)(d|w)$`)

// parseExtendedDuration parses Go durations plus days (d) and weeks (w).
//
// Examples: "30d", "2w", "24h", "5m"
func parseExtendedDuration(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		if d < 0 {
			return 0, fmt.Errorf("negative duration: %s", s)
		}
		return d, nil
	}

	matches := extendedDuration.FindStringSubmatch(s)
	if len(matches) != 3 {
		_, err := time.ParseDuration(s)
		return 0, err
	}

	value, err := strconv.ParseInt(matches[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration value: %s", matches[1])
	}

	switch matches[2] {
	case "d":
		return time.Duration(value) * 24 * time.Hour, nil
	default:
		return time.Duration(value) * 7 * 24 * time.Hour, nil
	}
}

func validEvent(event string) bool {
	switch event {
	case fastcli.EventCommandInvoked, fastcli.EventCommandFailed, fastcli.EventUsageError:
		return true
	}
	return false
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// OpenAudit opens the audit trail selected by the FASTCLI_AUDIT_* variables.
func OpenAudit() (*fastcli.AuditLogger, error) {
	cfg, err := auditConfig()
	if err != nil {
		return nil, err
	}
	return fastcli.NewAuditLogger(cfg)
}

// auditConfig reads the environment for a read-mostly session: the
// background flusher is off and retention only runs through audit cleanup.
func auditConfig() (fastcli.AuditConfig, error) {
	cfg, err := fastcli.AuditConfigFromEnv(EnvPrefix)
	if err != nil {
		return cfg, err
	}
	cfg.FlushInterval = 0
	cfg.RetentionDays = 0
	return cfg, nil
}
