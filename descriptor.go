// descriptor.go: Type Descriptor Compiler
//
// Compile classifies a raw Type into the closed set of shapes a command line
// can carry. Every later stage (argument spec, coercion, help) switches over
// Descriptor.Shape and nothing else.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package fastcli

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is a primitive value kind.
type Kind uint8

const (
	KindString Kind = iota
	KindInt
	KindBool
	KindFloat
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindFloat:
		return "float"
	default:
		return "string"
	}
}

// Shape is the discriminator of a Descriptor.
type Shape uint8

const (
	ShapePrimitive Shape = iota
	ShapeEnum
	ShapeOptional
	ShapeSequence
	ShapeUnion
)

func (s Shape) String() string {
	switch s {
	case ShapePrimitive:
		return "primitive"
	case ShapeEnum:
		return "enum"
	case ShapeOptional:
		return "optional"
	case ShapeSequence:
		return "sequence"
	case ShapeUnion:
		return "union"
	}
	return "shape(" + strconv.Itoa(int(s)) + ")"
}

// ArityKind tells how many tokens an argument consumes.
type ArityKind uint8

const (
	ArityOne      ArityKind = iota // a single token, scalar value
	ArityNone                      // presence-only flag
	ArityFixed                     // exactly N tokens
	ArityVariadic                  // zero or more tokens
	ArityEmpty                     // zero tokens, empty aggregate
)

// Arity is a token count rule.
type Arity struct {
	Kind ArityKind
	N    int
}

// Fixed returns the arity of exactly n tokens.
func Fixed(n int) Arity { return Arity{Kind: ArityFixed, N: n} }

// Variadic returns the arity of zero or more tokens.
func Variadic() Arity { return Arity{Kind: ArityVariadic} }

// Empty returns the arity of zero tokens.
func Empty() Arity { return Arity{Kind: ArityEmpty} }

// String renders the arity the way nargs is usually written: "1", "0", "*" or N.
func (a Arity) String() string {
	switch a.Kind {
	case ArityOne:
		return "1"
	case ArityNone, ArityEmpty:
		return "0"
	case ArityVariadic:
		return "*"
	default:
		return strconv.Itoa(a.N)
	}
}

// accepts reports whether n tokens satisfy the arity.
func (a Arity) accepts(n int) bool {
	switch a.Kind {
	case ArityOne:
		return n == 1
	case ArityNone, ArityEmpty:
		return n == 0
	case ArityFixed:
		return n == a.N
	default:
		return true
	}
}

// Descriptor is the compiled classification of a parameter type.
//
//   - ShapePrimitive: Kind
//   - ShapeEnum: EnumName, Members
//   - ShapeOptional: Kind (the inner primitive)
//   - ShapeSequence: Kind (element), Arity (Fixed, Variadic or Empty)
//   - ShapeUnion: Candidates, in cast order
type Descriptor struct {
	Shape      Shape
	Kind       Kind
	EnumName   string
	Members    []EnumMember
	Arity      Arity
	Candidates []Kind
}

// Primitive returns the descriptor of a primitive kind.
func Primitive(k Kind) Descriptor {
	return Descriptor{Shape: ShapePrimitive, Kind: k}
}

// Choices returns the member names of an enum descriptor.
func (d Descriptor) Choices() []string {
	if d.Shape != ShapeEnum {
		return nil
	}
	names := make([]string, len(d.Members))
	for i, m := range d.Members {
		names[i] = m.Name
	}
	return names
}

// TypeName describes the resolved type for help output.
func (d Descriptor) TypeName() string {
	switch d.Shape {
	case ShapePrimitive:
		return d.Kind.String()
	case ShapeEnum:
		return d.EnumName
	case ShapeOptional:
		return "optional " + d.Kind.String()
	case ShapeUnion:
		names := make([]string, len(d.Candidates))
		for i, k := range d.Candidates {
			names[i] = k.String()
		}
		return strings.Join(names, " | ")
	case ShapeSequence:
		switch d.Arity.Kind {
		case ArityEmpty:
			return "tuple of the form ()"
		case ArityFixed:
			elems := make([]string, d.Arity.N)
			for i := range elems {
				elems[i] = d.Kind.String()
			}
			return "tuple of the form (" + strings.Join(elems, ", ") + ")"
		default:
			return "list of the form [" + d.Kind.String() + ", ...]"
		}
	}
	return "unknown"
}

// Default is an optional default value. The zero value means "no default",
// which makes the parameter required.
type Default struct {
	Value any
	Set   bool
}

// NoDefault marks a required parameter.
var NoDefault = Default{}

// DefaultOf wraps a default value. DefaultOf(nil) is a present nil default.
func DefaultOf(v any) Default { return Default{Value: v, Set: true} }

// Compile classifies raw type t, given the parameter default, into a
// Descriptor. Shapes that cannot be represented on a command line fail with
// an ErrCodeUnsupportedType error.
func Compile(t Type, def Default) (Descriptor, error) {
	// An Optional[T] is only unwrapped when a default exists; the default's
	// own type then decides the primitive kind.
	if def.Set {
		if inner, ok := t.optionalInner(); ok {
			if inner.isPrimitive() {
				if k, ok := kindOfValue(def.Value); ok {
					return Primitive(k), nil
				}
			}
			t = inner
		}
	}

	switch t.kind {
	case typeUnset:
		return Primitive(KindString), nil
	case typeInt, typeString, typeBool, typeFloat:
		return Primitive(t.primitiveKind()), nil
	case typeEnum:
		return compileEnum(t)
	case typeUnion:
		return compileUnion(t)
	case typeList, typeTuple:
		return compileSequence(t)
	case typeNone, typeAny:
		return Descriptor{}, unsupportedType(t, "special marker types cannot be parameters")
	default:
		return Descriptor{}, unsupportedType(t, "no command-line representation")
	}
}

func compileEnum(t Type) (Descriptor, error) {
	if len(t.members) == 0 {
		return Descriptor{}, unsupportedType(t, "enumeration has no members")
	}
	seen := make(map[string]struct{}, len(t.members))
	for _, m := range t.members {
		if m.Name == "" {
			return Descriptor{}, unsupportedType(t, "enumeration member without a name")
		}
		if _, dup := seen[m.Name]; dup {
			return Descriptor{}, unsupportedType(t, fmt.Sprintf("duplicate enumeration member %q", m.Name))
		}
		seen[m.Name] = struct{}{}
	}
	name := t.name
	if name == "" {
		name = "enum"
	}
	return Descriptor{
		Shape:    ShapeEnum,
		EnumName: name,
		Members:  append([]EnumMember(nil), t.members...),
	}, nil
}

func compileUnion(t Type) (Descriptor, error) {
	var (
		candidates []Kind
		hasNone    bool
		seen       = make(map[Kind]struct{})
	)
	for _, c := range t.elems {
		switch {
		case c.kind == typeNone:
			hasNone = true
		case c.isPrimitive():
			k := c.primitiveKind()
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			candidates = append(candidates, k)
		default:
			return Descriptor{}, unsupportedType(t, "union members must be primitives, got "+c.String())
		}
	}

	switch {
	case len(candidates) == 0:
		return Descriptor{}, unsupportedType(t, "union has no primitive member")
	case len(candidates) == 1 && hasNone:
		return Descriptor{Shape: ShapeOptional, Kind: candidates[0]}, nil
	case len(candidates) == 1:
		return Primitive(candidates[0]), nil
	}
	return Descriptor{Shape: ShapeUnion, Candidates: candidates}, nil
}

func compileSequence(t Type) (Descriptor, error) {
	if t.kind == typeTuple && t.empty {
		return Descriptor{Shape: ShapeSequence, Kind: KindString, Arity: Empty()}, nil
	}

	if len(t.elems) == 0 {
		// Bare List / Tuple: any number of strings.
		return Descriptor{Shape: ShapeSequence, Kind: KindString, Arity: Variadic()}, nil
	}

	for _, e := range t.elems {
		if !e.isPrimitive() {
			return Descriptor{}, unsupportedType(t, "sequence elements must be primitives, got "+e.String())
		}
	}

	elem := t.elems[0].primitiveKind()
	if t.kind == typeList {
		if len(t.elems) > 1 {
			return Descriptor{}, unsupportedType(t, "list takes exactly one element type")
		}
		return Descriptor{Shape: ShapeSequence, Kind: elem, Arity: Variadic()}, nil
	}
	if t.variadic {
		return Descriptor{Shape: ShapeSequence, Kind: elem, Arity: Variadic()}, nil
	}

	for _, e := range t.elems[1:] {
		if e.primitiveKind() != elem {
			return Descriptor{}, unsupportedType(t, "mixed element types unsupported")
		}
	}
	return Descriptor{Shape: ShapeSequence, Kind: elem, Arity: Fixed(len(t.elems))}, nil
}

// kindOfValue returns the primitive kind of a Go value, if it has one.
func kindOfValue(v any) (Kind, bool) {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return KindInt, true
	case float32, float64:
		return KindFloat, true
	case string:
		return KindString, true
	case bool:
		return KindBool, true
	}
	return 0, false
}
