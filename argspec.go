// argspec.go: Parameter declaration and the Argument Spec Builder
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package fastcli

import (
	"fmt"
	"strings"

	"github.com/agilira/go-errors"
)

// Parameter declares one handler parameter. It is built fluently:
//
//	fastcli.Param("port", fastcli.Int()).Default(8080).Help("listen port")
type Parameter struct {
	name string
	typ  Type
	def  Default
	help string
}

// Param declares a parameter named name of raw type t.
func Param(name string, t Type) *Parameter {
	return &Parameter{name: name, typ: t}
}

// Default makes the parameter optional with default value v.
func (p *Parameter) Default(v any) *Parameter {
	p.def = DefaultOf(v)
	return p
}

// Help sets the caller-supplied help text.
func (p *Parameter) Help(text string) *Parameter {
	p.help = text
	return p
}

// Name returns the parameter name.
func (p *Parameter) Name() string { return p.name }

// ParameterSpec is a compiled, immutable parameter.
type ParameterSpec struct {
	Name       string
	Descriptor Descriptor
	Default    Default
	Help       string
}

// Required reports whether the parameter has no default.
func (p ParameterSpec) Required() bool { return !p.Default.Set }

// compile validates the declaration and compiles its type and default.
func (p *Parameter) compile() (ParameterSpec, error) {
	if err := validateParamName(p.name); err != nil {
		return ParameterSpec{}, err
	}

	desc, err := Compile(p.typ, p.def)
	if err != nil {
		return ParameterSpec{}, errors.Wrap(err, ErrCodeUnsupportedType, "parameter "+p.name).
			WithContext("parameter", p.name)
	}

	def := p.def
	if def.Set {
		v, err := normalizeDefault(desc, def.Value)
		if err != nil {
			return ParameterSpec{}, errors.Wrap(err, ErrCodeInvalidDefault, "parameter "+p.name).
				WithContext("parameter", p.name)
		}
		def.Value = v
	}

	return ParameterSpec{Name: p.name, Descriptor: desc, Default: def, Help: p.help}, nil
}

func validateParamName(name string) error {
	switch {
	case name == "":
		return errors.New(ErrCodeInvalidParameter, "parameter name cannot be empty")
	case strings.HasPrefix(name, "-"):
		return errors.New(ErrCodeInvalidParameter, fmt.Sprintf("parameter name %q cannot start with '-'", name))
	case strings.ContainsAny(name, " \t\n="):
		return errors.New(ErrCodeInvalidParameter, fmt.Sprintf("parameter name %q contains whitespace or '='", name))
	case name == "help" || name == "h":
		return errors.New(ErrCodeInvalidParameter, fmt.Sprintf("parameter name %q is reserved", name))
	}
	return nil
}

// ArgumentSpec is the read-only view of a parameter handed to the token
// splitter and the coercion engine.
type ArgumentSpec struct {
	Name       string
	FlagForm   string // "name" when positional, "--name" otherwise
	Positional bool
	Flag       bool // presence-only boolean
	Arity      Arity
	Choices    []string
	Help       string
	Default    Default
	Descriptor Descriptor
}

// BuildArgumentSpec derives the argument definition of a compiled parameter.
// Required versus optional depends only on the presence of a default.
func BuildArgumentSpec(p ParameterSpec) ArgumentSpec {
	spec := ArgumentSpec{
		Name:       p.Name,
		Positional: p.Required(),
		Choices:    p.Descriptor.Choices(),
		Default:    p.Default,
		Descriptor: p.Descriptor,
		Arity:      Arity{Kind: ArityOne},
	}

	if spec.Positional {
		spec.FlagForm = p.Name
	} else {
		spec.FlagForm = "--" + p.Name
	}

	if p.Descriptor.Shape == ShapeSequence {
		spec.Arity = p.Descriptor.Arity
	}

	if p.Descriptor.Shape == ShapePrimitive && p.Descriptor.Kind == KindBool && p.Default.Set {
		if b, ok := p.Default.Value.(bool); ok && !b {
			spec.Flag = true
			spec.Arity = Arity{Kind: ArityNone}
		}
	}

	spec.Help = helpText(p)
	return spec
}

// Cast applies the cast rule of the argument to its token group.
func (a ArgumentSpec) Cast(tokens []string) (any, error) {
	if a.Flag {
		if len(tokens) != 0 {
			return nil, arityError(a.Arity, len(tokens))
		}
		return true, nil
	}
	return Coerce(a.Descriptor, tokens)
}

// IsSequence reports whether the argument consumes a token list.
func (a ArgumentSpec) IsSequence() bool {
	return a.Descriptor.Shape == ShapeSequence
}

// minTokens is the least number of tokens a positional must receive.
func (a ArgumentSpec) minTokens() int {
	switch a.Arity.Kind {
	case ArityOne:
		return 1
	case ArityFixed:
		return a.Arity.N
	}
	return 0
}

// helpText appends the synthesized type and default annotation to the caller
// supplied text. It never influences parsing.
func helpText(p ParameterSpec) string {
	var b strings.Builder
	b.WriteString(p.Help)
	if p.Help != "" {
		b.WriteByte(' ')
	}
	b.WriteString("type: ")
	b.WriteString(p.Descriptor.TypeName())
	if p.Default.Set {
		b.WriteString(", default: ")
		b.WriteString(formatDefault(p.Descriptor, p.Default.Value))
	}
	return b.String()
}

func formatDefault(d Descriptor, v any) string {
	if v == nil {
		return "None"
	}
	tokens := Render(d, v)
	if d.Shape == ShapeSequence {
		return "[" + strings.Join(tokens, " ") + "]"
	}
	return strings.Join(tokens, " ")
}
