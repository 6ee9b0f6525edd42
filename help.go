// help.go: usage lines and help pages
//
// The option table of a command is modelled as a flash-flags FlagSet. Option
// rows take their name and text from the registered flags, in declaration
// order.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package fastcli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	flashflags "github.com/agilira/flash-flags"
)

// metavar is the placeholder shown for an argument's value.
func (a ArgumentSpec) metavar() string {
	if len(a.Choices) > 0 {
		return "{" + strings.Join(a.Choices, ",") + "}"
	}
	if a.Positional {
		return a.Name
	}
	return strings.ToUpper(strings.ReplaceAll(a.Name, "-", "_"))
}

// valueFragment renders the values the argument consumes.
func (a ArgumentSpec) valueFragment() string {
	mv := a.metavar()
	switch a.Arity.Kind {
	case ArityNone, ArityEmpty:
		return ""
	case ArityVariadic:
		return "[" + mv + " ...]"
	case ArityFixed:
		return strings.TrimSpace(strings.Repeat(mv+" ", a.Arity.N))
	default:
		return mv
	}
}

// usageFragment renders the argument as it appears in a usage line.
func (a ArgumentSpec) usageFragment() string {
	value := a.valueFragment()
	if a.Positional {
		return value
	}
	if value == "" {
		return "[" + a.FlagForm + "]"
	}
	return "[" + a.FlagForm + " " + value + "]"
}

// usageLine renders "usage: prog cmd [-h] [--opt OPT] pos".
func (c *Command) usageLine() string {
	parts := []string{"usage:", c.displayName(), "[-h]"}
	for _, a := range c.args {
		if !a.Positional {
			parts = append(parts, a.usageFragment())
		}
	}
	for _, a := range c.args {
		if a.Positional {
			if frag := a.usageFragment(); frag != "" {
				parts = append(parts, frag)
			}
		}
	}
	if len(c.children) > 0 {
		parts = append(parts, "{"+strings.Join(c.childNames(), ",")+"}", "...")
	}
	return strings.Join(parts, " ")
}

func (c *CLI) writeUsage(w io.Writer, node *Command) {
	_, _ = fmt.Fprintln(w, node.usageLine())
}

// writeHelp prints the full help page of node.
func (c *CLI) writeHelp(w io.Writer, node *Command) {
	c.writeUsage(w, node)
	if node.description != "" {
		_, _ = fmt.Fprintf(w, "\n%s\n", node.description)
	}
	if node == c.root && c.version != "" {
		_, _ = fmt.Fprintf(w, "\nversion %s\n", c.version)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer func() { _ = tw.Flush() }()

	if len(node.children) > 0 {
		_, _ = fmt.Fprintln(tw, "\ncommands:")
		node.index.Scan(func(key string, child *Command) bool {
			if key != child.name {
				return true
			}
			name := child.name
			if len(child.aliases) > 0 {
				name += " (" + strings.Join(child.aliases, ", ") + ")"
			}
			_, _ = fmt.Fprintf(tw, "  %s\t%s\n", name, child.description)
			return true
		})
	}

	var positionals []ArgumentSpec
	for _, a := range node.args {
		if a.Positional {
			positionals = append(positionals, a)
		}
	}
	if len(positionals) > 0 {
		_, _ = fmt.Fprintln(tw, "\npositional arguments:")
		for _, a := range positionals {
			_, _ = fmt.Fprintf(tw, "  %s\t%s\n", a.metavar(), a.Help)
		}
	}

	_, _ = fmt.Fprintln(tw, "\noptions:")
	_, _ = fmt.Fprintf(tw, "  %s\t%s\n", "-h, --help", "show this help message and exit")
	fs := node.optionFlags(c.version)
	for _, a := range node.args {
		if a.Positional {
			continue
		}
		f := fs.Lookup(a.Name)
		if f == nil {
			continue
		}
		_, _ = fmt.Fprintf(tw, "  %s\t%s\n", optionLabel(f, a), f.Usage())
	}
}

// optionLabel renders "--name VALUE" for a registered flag.
func optionLabel(f *flashflags.Flag, a ArgumentSpec) string {
	label := "--" + f.Name()
	if v := a.valueFragment(); v != "" {
		label += " " + v
	}
	return label
}

// optionFlags mirrors the optional parameters of c into a flash-flags
// FlagSet. Each flag carries the typed default and the help text.
func (c *Command) optionFlags(version string) *flashflags.FlagSet {
	fs := flashflags.New(c.displayName())
	fs.SetDescription(c.description)
	if version != "" {
		fs.SetVersion(version)
	}

	for _, a := range c.args {
		if a.Positional {
			continue
		}
		registerOption(fs, a)
	}
	return fs
}

func registerOption(fs *flashflags.FlagSet, a ArgumentSpec) {
	d := a.Descriptor
	if d.Shape == ShapeSequence {
		fs.StringSlice(a.Name, Render(d, a.Default.Value), a.Help)
		return
	}

	switch v := a.Default.Value.(type) {
	case int:
		fs.Int(a.Name, v, a.Help)
	case float64:
		fs.Float64(a.Name, v, a.Help)
	case bool:
		fs.Bool(a.Name, v, a.Help)
	default:
		fs.String(a.Name, strings.Join(Render(d, v), ""), a.Help)
	}
}
