// dispatch.go: command resolution and handler invocation
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package fastcli

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/agilira/go-errors"
)

// Exit codes returned by Run.
const (
	ExitOK      = 0
	ExitFailure = 1 // the handler returned an error
	ExitUsage   = 2 // the command line was invalid
)

// Execute resolves tokens to a leaf command, coerces its arguments and calls
// its handler. tokens excludes the program name. The first call seals the
// command tree.
//
// Help tokens print help to the output writer and return an error for which
// IsHelpRequested is true. Handler errors are returned unchanged.
func (c *CLI) Execute(tokens []string) (any, error) {
	_, result, err := c.execute(tokens)
	return result, err
}

// ExecuteArgs executes the process arguments.
func (c *CLI) ExecuteArgs() (any, error) {
	return c.Execute(os.Args[1:])
}

// RunArgs executes tokens and maps the outcome to an exit code, writing
// diagnostics to the error writer.
func (c *CLI) RunArgs(tokens []string) int {
	node, _, err := c.execute(tokens)
	switch {
	case err == nil, IsHelpRequested(err):
		return ExitOK
	case IsUsageError(err):
		c.writeUsage(c.errOut, node)
		_, _ = fmt.Fprintf(c.errOut, "%s: error: %v\n", node.displayName(), err)
		return ExitUsage
	default:
		_, _ = fmt.Fprintf(c.errOut, "%s: error: %v\n", node.displayName(), err)
		return ExitFailure
	}
}

// Run executes the process arguments and returns the exit code.
func (c *CLI) Run() int {
	return c.RunArgs(os.Args[1:])
}

// Main runs the CLI and exits the process.
func (c *CLI) Main() {
	os.Exit(c.Run())
}

// execute returns the deepest command reached, for diagnostics.
func (c *CLI) execute(tokens []string) (*Command, any, error) {
	if c.sealed.CompareAndSwap(false, true) {
		c.logger.Debug("command tree sealed", "program", c.root.name)
	}
	start := time.Now()

	node, rest, err := c.resolve(tokens)
	if err != nil {
		c.record(node, nil, err, start)
		return node, nil, err
	}
	c.logger.Debug("command resolved",
		"command", strings.Join(node.Path(), " "),
		"tokens", len(rest))

	if wantsHelp(rest) {
		c.writeHelp(c.out, node)
		return node, nil, errors.New(ErrCodeHelpRequested, "help requested").
			WithContext("command", strings.Join(node.Path(), " "))
	}

	args, err := c.bindArguments(node, rest)
	if err != nil {
		c.record(node, nil, err, start)
		return node, nil, err
	}

	result, err := node.handler(args)
	c.record(node, args, err, start)
	return node, result, err
}

// resolve walks the tree. A node with children consumes the next token as a
// child selector; a node that also has a handler becomes the leaf when the
// token names no child.
func (c *CLI) resolve(tokens []string) (*Command, []string, error) {
	node, rest := c.root, tokens
	for len(node.children) > 0 {
		if len(rest) == 0 || strings.HasPrefix(rest[0], "-") {
			if node.handler != nil {
				break
			}
			if len(rest) > 0 && isHelpToken(rest[0]) {
				return node, rest, nil
			}
			return node, rest, errors.New(ErrCodeUnresolvedCommand,
				"the following arguments are required: command").
				WithContext("command", strings.Join(node.Path(), " ")).
				WithContext("choices", strings.Join(node.childNames(), ","))
		}

		child, ok := node.Lookup(rest[0])
		if !ok {
			if node.handler != nil {
				break
			}
			return node, rest, errors.New(ErrCodeUnresolvedCommand,
				fmt.Sprintf("argument command: invalid choice: %q (choose from %s)",
					rest[0], quoteAll(node.childNames()))).
				WithContext("command", strings.Join(node.Path(), " ")).
				WithContext("token", rest[0])
		}
		node, rest = child, rest[1:]
	}

	if node.handler == nil && !wantsHelp(rest) {
		return node, rest, errors.New(ErrCodeUnresolvedCommand,
			fmt.Sprintf("command %q has no handler", node.displayName())).
			WithContext("command", strings.Join(node.Path(), " "))
	}
	return node, rest, nil
}

// bindArguments splits rest over the leaf's arguments and coerces every
// value. Arguments missing from the command line take their ambient default,
// then their declared one.
func (c *CLI) bindArguments(node *Command, rest []string) (*Args, error) {
	groups, err := splitTokens(node.args, rest)
	if err != nil {
		return nil, err
	}

	args := newArgs(node.Path(), len(node.args))
	for _, spec := range node.args {
		if tokens, ok := groups[spec.Name]; ok {
			v, err := spec.Cast(tokens)
			if err != nil {
				return nil, argumentError(err, spec.FlagForm)
			}
			c.logger.Debug("argument coerced", "parameter", spec.Name, "tokens", len(tokens))
			args.set(spec.Name, v, true)
			continue
		}

		v, found, err := c.ambientValue(node, spec)
		if err != nil {
			return nil, argumentError(err, spec.FlagForm)
		}
		if found {
			args.set(spec.Name, v, false)
			continue
		}
		args.set(spec.Name, copyDefault(spec.Default.Value), false)
	}
	return args, nil
}

// copyDefault returns a fresh copy of a slice default so handlers never share
// the value stored in the command tree.
func copyDefault(v any) any {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice || rv.IsNil() {
		return v
	}
	out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
	reflect.Copy(out, rv)
	return out.Interface()
}

func (c *CLI) record(node *Command, args *Args, err error, start time.Time) {
	if c.audit == nil {
		return
	}
	inv := Invocation{
		Program:  c.root.name,
		Command:  node.Path(),
		Err:      err,
		Duration: time.Since(start),
	}
	if args != nil {
		inv.Arguments = args.Map()
	}
	c.audit.LogInvocation(inv)
	if flushErr := c.audit.Flush(); flushErr != nil {
		c.logger.Warn("audit flush failed", "error", flushErr)
	}
}

func (c *Command) childNames() []string {
	names := make([]string, 0, len(c.children))
	for _, ch := range c.children {
		names = append(names, ch.name)
	}
	return names
}

// displayName is the program name followed by the command path.
func (c *Command) displayName() string {
	return strings.Join(append([]string{c.cli.root.name}, c.Path()...), " ")
}

func quoteAll(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + n + "'"
	}
	return strings.Join(quoted, ", ")
}
