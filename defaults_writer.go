// defaults_writer.go: generation of a defaults file from the command tree
//
// The generated file has the layout read by WithDefaultsFile, so a program
// can ship its declared defaults for users to edit.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package fastcli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/agilira/go-errors"
	"go.yaml.in/yaml/v3"
)

// DefaultsTemplate returns the declared defaults of every optional parameter,
// nested by command path. Parameters defaulting to nothing are left out.
func (c *CLI) DefaultsTemplate() map[string]any {
	root := make(map[string]any)
	collectDefaults(c.root, root)
	return root
}

func collectDefaults(node *Command, level map[string]any) {
	for _, a := range node.args {
		if a.Positional || a.Default.Value == nil {
			continue
		}
		level[a.Name] = yamlDefault(a)
	}
	for _, child := range node.children {
		sub := make(map[string]any)
		collectDefaults(child, sub)
		if len(sub) > 0 {
			level[child.name] = sub
		}
	}
}

// yamlDefault converts a declared default into a plain YAML value that the
// cast rule reads back unchanged.
func yamlDefault(a ArgumentSpec) any {
	switch v := a.Default.Value.(type) {
	case EnumMember:
		return v.Name
	case int, float64, string, bool:
		return v
	}
	tokens := Render(a.Descriptor, a.Default.Value)
	if a.IsSequence() {
		return append([]string{}, tokens...)
	}
	if len(tokens) == 1 {
		return tokens[0]
	}
	return tokens
}

// WriteDefaultsFile writes DefaultsTemplate as YAML to path. The file is
// replaced atomically.
func (c *CLI) WriteDefaultsFile(path string) error {
	data, err := yaml.Marshal(c.DefaultsTemplate())
	if err != nil {
		return errors.Wrap(err, ErrCodeDefaultsFile, "failed to serialize defaults").
			WithContext("path", path)
	}
	if err := atomicWrite(path, data); err != nil {
		return errors.Wrap(err, ErrCodeDefaultsFile, "failed to write defaults file").
			WithContext("path", path)
	}
	c.logger.Debug("defaults file written", "path", path, "bytes", len(data))
	return nil
}

// atomicWrite writes data to a temporary file in the target directory and
// renames it over path.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tempPath := filepath.Join(dir, fmt.Sprintf(".%s.tmp.%d", filepath.Base(path), time.Now().UnixNano()))

	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
