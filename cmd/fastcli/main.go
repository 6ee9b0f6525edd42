// main.go: entry point of the fastcli audit inspection tool
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"os"

	"github.com/agilira/fastcli/cmd/cli"
)

func main() {
	manager := cli.NewManager()

	auditLogger, err := cli.OpenAudit()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: audit trail unavailable: %v\n", err)
	} else {
		manager.WithAudit(auditLogger)
	}

	runErr := manager.Run(os.Args[1:])
	if auditLogger != nil {
		if err := auditLogger.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		os.Exit(1)
	}
}
