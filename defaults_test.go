// defaults_test.go: tests for environment and file defaults
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package fastcli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeDefaults(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "defaults.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write defaults file: %v", err)
	}
	return path
}

func serveCLI(t *testing.T, opts ...Option) *CLI {
	t.Helper()
	app, _, _ := newTestCLI(t, opts...)
	db, err := app.AddGroup("db")
	if err != nil {
		t.Fatalf("AddGroup failed: %v", err)
	}
	db.MustAddCommand(Func(echoArgs,
		Param("dry-run", Bool()).Default(false),
		Param("steps", Int()).Default(1),
	).Named("migrate"))
	app.MustAddCommand(Func(echoArgs,
		Param("name", String()),
		Param("port", Int()).Default(8080),
		Param("tags", List(String())).Default([]string{}),
		Param("level", EnumOf("Level", "low", "high")).Default("low"),
	).Named("serve"))
	return app
}

func TestEnvKey(t *testing.T) {
	tests := []struct {
		path  []string
		param string
		want  string
	}{
		{[]string{"serve"}, "port", "APP_SERVE_PORT"},
		{[]string{"db", "migrate"}, "dry-run", "APP_DB_MIGRATE_DRY_RUN"},
		{nil, "verbose", "APP_VERBOSE"},
	}
	for _, tt := range tests {
		if got := envKey("app", tt.path, tt.param); got != tt.want {
			t.Errorf("envKey(%v, %s) = %q, want %q", tt.path, tt.param, got, tt.want)
		}
	}
}

func TestAmbient_Environment(t *testing.T) {
	t.Setenv("APP_SERVE_PORT", "9000")
	t.Setenv("APP_SERVE_TAGS", "a,b")
	t.Setenv("APP_SERVE_LEVEL", "high")
	t.Setenv("APP_SERVE_NAME", "ignored")
	t.Setenv("APP_DB_MIGRATE_DRY_RUN", "true")

	app := serveCLI(t, WithEnvPrefix("app"))

	got, err := app.Execute([]string{"serve", "bob"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	want := map[string]any{
		"name":  "bob",
		"port":  9000,
		"tags":  []string{"a", "b"},
		"level": EnumMember{Name: "high", Value: "high"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	got, err = app.Execute([]string{"db", "migrate"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got.(map[string]any)["dry-run"] != true {
		t.Errorf("Expected dry-run from environment, got %v", got)
	}
}

func TestAmbient_CommandLineWins(t *testing.T) {
	t.Setenv("APP_SERVE_PORT", "9000")
	app := serveCLI(t, WithEnvPrefix("app"))

	got, err := app.Execute([]string{"serve", "bob", "--port", "7000"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got.(map[string]any)["port"] != 7000 {
		t.Errorf("Expected command-line port 7000, got %v", got)
	}
}

func TestAmbient_InvalidEnvironmentValue(t *testing.T) {
	t.Setenv("APP_SERVE_PORT", "high")
	app := serveCLI(t, WithEnvPrefix("app"))

	_, err := app.Execute([]string{"serve", "bob"})
	assertCode(t, err, ErrCodeArgumentCast)
}

func TestAmbient_DefaultsFile(t *testing.T) {
	path := writeDefaults(t, `
serve:
  port: 9100
  tags: [x, y]
db:
  migrate:
    steps: 3
`)
	app := serveCLI(t, WithDefaultsFile(path))

	got, err := app.Execute([]string{"serve", "bob"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	m := got.(map[string]any)
	if m["port"] != 9100 {
		t.Errorf("Expected port 9100 from file, got %v", m["port"])
	}
	if diff := cmp.Diff([]string{"x", "y"}, m["tags"]); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
	if m["level"].(EnumMember).Name != "low" {
		t.Errorf("Expected declared default level, got %v", m["level"])
	}

	got, err = app.Execute([]string{"db", "migrate"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got.(map[string]any)["steps"] != 3 {
		t.Errorf("Expected steps 3 from file, got %v", got)
	}
}

func TestAmbient_EnvironmentBeforeFile(t *testing.T) {
	path := writeDefaults(t, "serve:\n  port: 9100\n")
	t.Setenv("APP_SERVE_PORT", "9200")

	app := serveCLI(t, WithEnvPrefix("app"), WithDefaultsFile(path))
	got, err := app.Execute([]string{"serve", "bob"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got.(map[string]any)["port"] != 9200 {
		t.Errorf("Expected environment port 9200, got %v", got)
	}
}

func TestDefaultsFile_Errors(t *testing.T) {
	_, err := New("prog", WithDefaultsFile(filepath.Join(t.TempDir(), "missing.yaml")))
	assertCode(t, err, ErrCodeDefaultsFile)

	_, err = New("prog", WithDefaultsFile(writeDefaults(t, "serve: [unclosed")))
	assertCode(t, err, ErrCodeDefaultsFile)

	app := serveCLI(t, WithDefaultsFile(writeDefaults(t, "serve:\n  port:\n    nested: 1\n")))
	_, err = app.Execute([]string{"serve", "bob"})
	assertCode(t, err, ErrCodeDefaultsFile)
}

func TestDefaultsTemplate(t *testing.T) {
	app := serveCLI(t)

	want := map[string]any{
		"serve": map[string]any{
			"port":  8080,
			"tags":  []string{},
			"level": "low",
		},
		"db": map[string]any{
			"migrate": map[string]any{
				"dry-run": false,
				"steps":   1,
			},
		},
	}
	if diff := cmp.Diff(want, app.DefaultsTemplate()); diff != "" {
		t.Errorf("template mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteDefaultsFile_RoundTrip(t *testing.T) {
	app := serveCLI(t)
	path := filepath.Join(t.TempDir(), "defaults.yaml")
	if err := app.WriteDefaultsFile(path); err != nil {
		t.Fatalf("WriteDefaultsFile failed: %v", err)
	}

	reloaded := serveCLI(t, WithDefaultsFile(path))
	got, err := reloaded.Execute([]string{"serve", "bob"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	m := got.(map[string]any)
	if m["port"] != 8080 || m["level"].(EnumMember).Name != "low" {
		t.Errorf("Unexpected values from written file: %v", m)
	}

	if err := app.WriteDefaultsFile(filepath.Join(t.TempDir(), "missing", "defaults.yaml")); err == nil {
		t.Error("Writing into a missing directory must fail")
	}
}
