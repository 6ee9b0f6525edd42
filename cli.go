// cli.go: top-level command collection and its options
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package fastcli

import (
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/agilira/go-errors"
)

// CLI is the top-level command collection. It owns the command tree, which is
// built at startup and sealed by the first Execute.
type CLI struct {
	root      *Command
	version   string
	out       io.Writer
	errOut    io.Writer
	logger    *slog.Logger
	envPrefix string
	defaults  *defaultsTree
	audit     *AuditLogger
	sealed    atomic.Bool
}

// Option configures a CLI at construction.
type Option func(*CLI) error

// New creates a CLI named after the program. Without subcommands or
// WithHandler the CLI cannot execute anything.
//
//	app, err := fastcli.New("tool", fastcli.WithDescription("does things"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	app.MustAddCommand(fastcli.Func(serve, fastcli.Param("port", fastcli.Int()).Default(8080)))
//	app.Main()
func New(name string, opts ...Option) (*CLI, error) {
	if err := validateCommandName(name); err != nil {
		return nil, err
	}

	c := &CLI{
		out:    os.Stdout,
		errOut: os.Stderr,
		logger: slog.New(slog.DiscardHandler),
	}
	c.root = newCommand(c, nil, name)

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// WithDescription sets the program description shown in help.
func WithDescription(text string) Option {
	return func(c *CLI) error {
		c.root.description = text
		return nil
	}
}

// WithVersion sets the version shown in help.
func WithVersion(version string) Option {
	return func(c *CLI) error {
		c.version = version
		return nil
	}
}

// WithHandler binds h to the root, making a single-command program.
func WithHandler(h *Handler) Option {
	return func(c *CLI) error {
		if err := c.root.bind(h); err != nil {
			return errors.Wrap(err, errors.ErrorCode(registrationCode(err)), "root handler").
				WithContext("command", c.root.name)
		}
		return nil
	}
}

// WithOutput sets the writer used for help output.
func WithOutput(w io.Writer) Option {
	return func(c *CLI) error {
		if w == nil {
			w = io.Discard
		}
		c.out = w
		return nil
	}
}

// WithErrorOutput sets the writer used for diagnostics.
func WithErrorOutput(w io.Writer) Option {
	return func(c *CLI) error {
		if w == nil {
			w = io.Discard
		}
		c.errOut = w
		return nil
	}
}

// WithLogger sets the structured logger used for debug tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *CLI) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}

// WithEnvPrefix enables environment defaults: an optional parameter reads
// PREFIX_<COMMAND PATH>_<PARAM> when not given on the command line.
func WithEnvPrefix(prefix string) Option {
	return func(c *CLI) error {
		c.envPrefix = prefix
		return nil
	}
}

// WithDefaultsFile loads a YAML file of parameter defaults keyed by command
// path. A missing file is an error.
func WithDefaultsFile(path string) Option {
	return func(c *CLI) error {
		tree, err := loadDefaultsFile(path)
		if err != nil {
			return err
		}
		c.defaults = tree
		return nil
	}
}

// WithAudit records every invocation to logger. The CLI does not close it.
func WithAudit(logger *AuditLogger) Option {
	return func(c *CLI) error {
		c.audit = logger
		return nil
	}
}

// Name returns the program name.
func (c *CLI) Name() string { return c.root.name }

// Version returns the program version.
func (c *CLI) Version() string { return c.version }

// Root returns the root command.
func (c *CLI) Root() *Command { return c.root }

// AddCommand registers h under the root.
func (c *CLI) AddCommand(h *Handler, opts ...CommandOption) (*Command, error) {
	return c.root.AddCommand(h, opts...)
}

// MustAddCommand registers h under the root and panics on error.
func (c *CLI) MustAddCommand(h *Handler, opts ...CommandOption) *Command {
	return c.root.MustAddCommand(h, opts...)
}

// AddGroup registers a handler-less grouping command under the root.
func (c *CLI) AddGroup(name string, opts ...CommandOption) (*Command, error) {
	return c.root.AddGroup(name, opts...)
}
