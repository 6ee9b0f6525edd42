// defaults.go: ambient defaults from the environment and a YAML defaults file
//
// An optional parameter not given on the command line resolves, in order:
//  1. environment variable PREFIX_<COMMAND PATH>_<PARAM>
//  2. defaults file entry at <command path>.<param>
//  3. the declared default
//
// Ambient values go through the same cast rule as command-line tokens.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package fastcli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agilira/go-errors"
	"go.yaml.in/yaml/v3"
)

// defaultsTree is a parsed defaults file. Nested maps follow the command
// path; leaves are keyed by parameter name.
//
//	serve:
//	  port: 9000
//	  tags: [a, b]
//	db:
//	  migrate:
//	    dry-run: true
type defaultsTree struct {
	path string
	root map[string]any
}

func loadDefaultsFile(path string) (*defaultsTree, error) {
	// #nosec G304 -- path is chosen by the program author, not by end users
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeDefaultsFile, "failed to read defaults file").
			WithContext("path", path)
	}

	root := make(map[string]any)
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, errors.Wrap(err, ErrCodeDefaultsFile, "failed to parse defaults file").
			WithContext("path", path)
	}
	return &defaultsTree{path: path, root: root}, nil
}

// lookup returns the entry of param under the command path.
func (t *defaultsTree) lookup(path []string, param string) (any, bool) {
	if t == nil {
		return nil, false
	}
	level := t.root
	for _, seg := range path {
		next, ok := level[seg].(map[string]any)
		if !ok {
			return nil, false
		}
		level = next
	}
	v, ok := level[param]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// yamlTokens flattens a YAML value into cast-rule tokens.
func yamlTokens(v any) ([]string, error) {
	switch x := v.(type) {
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			switch e.(type) {
			case []any, map[string]any:
				return nil, fmt.Errorf("nested value %v", e)
			}
			out = append(out, fmt.Sprint(e))
		}
		return out, nil
	case map[string]any:
		return nil, fmt.Errorf("mapping value for a parameter")
	case float64:
		return []string{renderScalar(x)}, nil
	default:
		return []string{fmt.Sprint(x)}, nil
	}
}

// envKey builds PREFIX_PATH_PARAM, upper-cased with dashes as underscores.
func envKey(prefix string, path []string, param string) string {
	parts := append(append([]string{prefix}, path...), param)
	key := strings.Join(parts, "_")
	return strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

// ambientTokens finds the ambient tokens of an optional argument and names
// their source.
func (c *CLI) ambientTokens(node *Command, spec ArgumentSpec) ([]string, string, error) {
	path := node.Path()

	if c.envPrefix != "" {
		key := envKey(c.envPrefix, path, spec.Name)
		if raw, ok := os.LookupEnv(key); ok {
			if spec.IsSequence() {
				if raw == "" {
					return []string{}, "env:" + key, nil
				}
				return strings.Split(raw, ","), "env:" + key, nil
			}
			return []string{raw}, "env:" + key, nil
		}
	}

	if v, ok := c.defaults.lookup(path, spec.Name); ok {
		src := "file:" + c.defaults.path
		tokens, err := yamlTokens(v)
		if err != nil {
			return nil, src, errors.Wrap(err, ErrCodeDefaultsFile, "unusable default for "+spec.Name).
				WithContext("source", src)
		}
		return tokens, src, nil
	}
	return nil, "", nil
}

// ambientValue coerces the ambient default of an optional argument. found is
// false when no ambient source defines it.
func (c *CLI) ambientValue(node *Command, spec ArgumentSpec) (value any, found bool, err error) {
	if spec.Positional {
		return nil, false, nil
	}

	tokens, src, err := c.ambientTokens(node, spec)
	if err != nil {
		return nil, false, err
	}
	if tokens == nil {
		return nil, false, nil
	}

	v, err := Coerce(spec.Descriptor, tokens)
	if err != nil {
		return nil, false, errors.Wrap(err, errors.ErrorCode(ErrorCode(err)), "from "+src).
			WithContext("source", src)
	}
	c.logger.Debug("ambient default applied", "parameter", spec.Name, "source", src)
	return v, true, nil
}
