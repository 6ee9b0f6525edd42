// command.go: command tree and handler registration
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package fastcli

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"unicode"

	"github.com/agilira/go-errors"
	"github.com/tidwall/btree"
)

// HandlerFunc is the function bound to a command. It receives the coerced
// arguments keyed by parameter name; its return value is the command result.
type HandlerFunc func(args *Args) (any, error)

// Handler pairs a HandlerFunc with its declared signature.
type Handler struct {
	name   string
	doc    string
	params []*Parameter
	fn     HandlerFunc
}

// Func declares a handler and its parameters, in positional order.
//
//	fastcli.Func(simple,
//		fastcli.Param("x", fastcli.Int()),
//		fastcli.Param("y", fastcli.String()),
//		fastcli.Param("z", fastcli.String()).Default("Default"),
//	)
func Func(fn HandlerFunc, params ...*Parameter) *Handler {
	return &Handler{fn: fn, params: params}
}

// Named overrides the command name derived from the Go function name.
func (h *Handler) Named(name string) *Handler {
	h.name = name
	return h
}

// Doc sets the handler description, used when the command has none.
func (h *Handler) Doc(doc string) *Handler {
	h.doc = doc
	return h
}

// Name returns the explicit name, or the kebab-cased Go function name.
func (h *Handler) Name() string {
	if h.name != "" {
		return h.name
	}
	return funcName(h.fn)
}

// funcName derives a command name from a function value. Closures have no
// usable name and yield "".
func funcName(fn HandlerFunc) string {
	if fn == nil {
		return ""
	}
	rf := runtime.FuncForPC(reflect.ValueOf(fn).Pointer())
	if rf == nil {
		return ""
	}
	full := strings.TrimSuffix(rf.Name(), "-fm")
	name := full[strings.LastIndex(full, ".")+1:]
	if strings.HasPrefix(name, "func") && strings.TrimLeft(name[4:], "0123456789") == "" {
		return ""
	}
	return kebab(name)
}

// kebab converts serveHTTP or serve_http to serve-http.
func kebab(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if r == '_' {
			b.WriteByte('-')
			continue
		}
		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('-')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// CommandOption configures a command at registration.
type CommandOption func(*commandConfig)

type commandConfig struct {
	name        string
	aliases     []string
	description string
}

// CommandName sets the command name.
func CommandName(name string) CommandOption {
	return func(c *commandConfig) { c.name = name }
}

// Aliases adds alternative names for the command.
func Aliases(aliases ...string) CommandOption {
	return func(c *commandConfig) { c.aliases = append(c.aliases, aliases...) }
}

// Description sets the command description shown in help.
func Description(text string) CommandOption {
	return func(c *commandConfig) { c.description = text }
}

// Command is a node of the command tree. Nodes are created by registration
// and never change once the owning CLI has executed.
type Command struct {
	cli         *CLI
	parent      *Command
	name        string
	aliases     []string
	description string
	params      []ParameterSpec
	args        []ArgumentSpec
	handler     HandlerFunc
	children    []*Command
	index       *btree.Map[string, *Command] // names and aliases of children
}

func newCommand(cli *CLI, parent *Command, name string) *Command {
	return &Command{
		cli:    cli,
		parent: parent,
		name:   name,
		index:  btree.NewMap[string, *Command](0),
	}
}

// Name returns the command name.
func (c *Command) Name() string { return c.name }

// Aliases returns the alternative names of the command.
func (c *Command) Aliases() []string { return append([]string(nil), c.aliases...) }

// Description returns the command description.
func (c *Command) Description() string { return c.description }

// HasHandler reports whether the command can be invoked.
func (c *Command) HasHandler() bool { return c.handler != nil }

// Parameters returns the compiled parameters in declaration order.
func (c *Command) Parameters() []ParameterSpec { return append([]ParameterSpec(nil), c.params...) }

// Arguments returns the argument specs in declaration order.
func (c *Command) Arguments() []ArgumentSpec { return append([]ArgumentSpec(nil), c.args...) }

// Children returns the subcommands in registration order.
func (c *Command) Children() []*Command { return append([]*Command(nil), c.children...) }

// Lookup finds a direct subcommand by name or alias.
func (c *Command) Lookup(name string) (*Command, bool) {
	return c.index.Get(name)
}

// Path returns the command names from the root's first child down to c.
// The root itself has an empty path.
func (c *Command) Path() []string {
	var path []string
	for n := c; n != nil && n.parent != nil; n = n.parent {
		path = append([]string{n.name}, path...)
	}
	return path
}

// bind compiles the handler signature into c.
func (c *Command) bind(h *Handler) error {
	if h == nil || h.fn == nil {
		return errors.New(ErrCodeInvalidCommand, "handler function cannot be nil")
	}

	params := make([]ParameterSpec, 0, len(h.params))
	args := make([]ArgumentSpec, 0, len(h.params))
	seen := make(map[string]struct{}, len(h.params))
	for _, p := range h.params {
		if p == nil {
			return errors.New(ErrCodeInvalidParameter, "nil parameter declaration")
		}
		spec, err := p.compile()
		if err != nil {
			return err
		}
		if _, dup := seen[spec.Name]; dup {
			return errors.New(ErrCodeDuplicateParameter, fmt.Sprintf("parameter %q declared twice", spec.Name)).
				WithContext("parameter", spec.Name)
		}
		seen[spec.Name] = struct{}{}
		params = append(params, spec)
		args = append(args, BuildArgumentSpec(spec))
	}

	c.params = params
	c.args = args
	c.handler = h.fn
	if c.description == "" {
		c.description = h.doc
	}
	return nil
}

// AddCommand registers h as a subcommand of c. The command name is taken from
// the CommandName option, then from the handler. Registering a name or alias
// twice at the same level fails.
func (c *Command) AddCommand(h *Handler, opts ...CommandOption) (*Command, error) {
	cfg := commandConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.name == "" && h != nil {
		cfg.name = h.Name()
	}

	child, err := c.newChild(cfg)
	if err != nil {
		return nil, err
	}
	if err := child.bind(h); err != nil {
		return nil, errors.Wrap(err, errors.ErrorCode(registrationCode(err)), "command "+cfg.name).
			WithContext("command", cfg.name)
	}
	c.attach(child)
	c.cli.logger.Debug("command registered",
		"command", strings.Join(child.Path(), " "),
		"parameters", len(child.params))
	return child, nil
}

// MustAddCommand is like AddCommand but panics on registration errors.
func (c *Command) MustAddCommand(h *Handler, opts ...CommandOption) *Command {
	child, err := c.AddCommand(h, opts...)
	if err != nil {
		panic(err)
	}
	return child
}

// AddGroup registers a subcommand without a handler, used only to hold
// further subcommands.
func (c *Command) AddGroup(name string, opts ...CommandOption) (*Command, error) {
	cfg := commandConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.name = name

	child, err := c.newChild(cfg)
	if err != nil {
		return nil, err
	}
	c.attach(child)
	return child, nil
}

func (c *Command) newChild(cfg commandConfig) (*Command, error) {
	if c.cli.sealed.Load() {
		return nil, errors.New(ErrCodeTreeSealed, "command tree cannot change after execution")
	}
	if err := validateCommandName(cfg.name); err != nil {
		return nil, err
	}

	names := append([]string{cfg.name}, cfg.aliases...)
	local := make(map[string]struct{}, len(names))
	for _, n := range names {
		if err := validateCommandName(n); err != nil {
			return nil, err
		}
		_, clash := c.index.Get(n)
		if _, again := local[n]; clash || again {
			return nil, errors.New(ErrCodeDuplicateCommand, fmt.Sprintf("command %q already registered", n)).
				WithContext("command", n).
				WithContext("parent", strings.Join(c.Path(), " "))
		}
		local[n] = struct{}{}
	}

	child := newCommand(c.cli, c, cfg.name)
	child.aliases = append([]string(nil), cfg.aliases...)
	child.description = cfg.description
	return child, nil
}

func (c *Command) attach(child *Command) {
	c.children = append(c.children, child)
	c.index.Set(child.name, child)
	for _, a := range child.aliases {
		c.index.Set(a, child)
	}
}

func validateCommandName(name string) error {
	switch {
	case name == "":
		return errors.New(ErrCodeInvalidCommand, "command name cannot be empty")
	case strings.HasPrefix(name, "-"):
		return errors.New(ErrCodeInvalidCommand, fmt.Sprintf("command name %q cannot start with '-'", name))
	case strings.ContainsFunc(name, unicode.IsSpace):
		return errors.New(ErrCodeInvalidCommand, fmt.Sprintf("command name %q contains whitespace", name))
	}
	return nil
}

// registrationCode keeps the code of a registration error when it has one.
func registrationCode(err error) string {
	if code := ErrorCode(err); code != "" {
		return code
	}
	return ErrCodeInvalidCommand
}
