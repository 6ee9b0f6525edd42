// types.go: raw parameter types as declared at registration
//
// A Type is what the user writes next to a parameter name. It can express
// shapes the compiler will refuse (nested lists, mixed tuples, markers), so
// that Compile is the single place deciding what is representable.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package fastcli

import (
	"reflect"
	"strings"
)

type typeKind uint8

const (
	typeUnset typeKind = iota // no annotation
	typeInt
	typeString
	typeBool
	typeFloat
	typeEnum
	typeUnion
	typeList
	typeTuple
	typeNone
	typeAny
	typeOpaque
)

// Type is a raw, uncompiled parameter type. The zero value means "no type
// given" and compiles to a string primitive.
type Type struct {
	kind     typeKind
	name     string       // enum or opaque type name
	members  []EnumMember // enum
	elems    []Type       // union candidates, list element, tuple elements
	variadic bool         // Tuple[T, ...]
	empty    bool         // Tuple[()]
}

// EnumMember is one declared member of an enumeration. Input tokens are
// matched against Name; Value is what the enumeration stands for.
type EnumMember struct {
	Name  string
	Value any
}

// String returns the member name.
func (m EnumMember) String() string { return m.Name }

// Int is the integer primitive.
func Int() Type { return Type{kind: typeInt} }

// String is the string primitive.
func String() Type { return Type{kind: typeString} }

// Bool is the boolean primitive.
func Bool() Type { return Type{kind: typeBool} }

// Float is the floating point primitive.
func Float() Type { return Type{kind: typeFloat} }

// None is the "no value" marker. It is only meaningful inside a union.
func None() Type { return Type{kind: typeNone} }

// Any is the catch-all marker. It is never a valid parameter type.
func Any() Type { return Type{kind: typeAny} }

// Member declares an enumeration member.
func Member(name string, value any) EnumMember {
	return EnumMember{Name: name, Value: value}
}

// Enum declares an enumeration type with ordered members.
func Enum(name string, members ...EnumMember) Type {
	return Type{kind: typeEnum, name: name, members: append([]EnumMember(nil), members...)}
}

// EnumOf declares an enumeration whose member values equal their names.
func EnumOf(name string, names ...string) Type {
	members := make([]EnumMember, len(names))
	for i, n := range names {
		members[i] = EnumMember{Name: n, Value: n}
	}
	return Type{kind: typeEnum, name: name, members: members}
}

// Optional is the two-way union of t and None.
func Optional(t Type) Type {
	return Union(t, None())
}

// Union declares a union of candidate types, in cast order.
func Union(candidates ...Type) Type {
	return Type{kind: typeUnion, elems: append([]Type(nil), candidates...)}
}

// List declares a list. With no element type it is a list of strings; more
// than one element type is rejected by the compiler. The element must be Int,
// Float, String or Bool: List(Union(Int(), String())) does not compile.
func List(elem ...Type) Type {
	return Type{kind: typeList, elems: append([]Type(nil), elem...)}
}

// Tuple declares a tuple. Without elements it is a variadic tuple of strings.
// As an option it collects every value token up to the next option, so
// positional values go before it on the command line.
func Tuple(elems ...Type) Type {
	return Type{kind: typeTuple, elems: append([]Type(nil), elems...)}
}

// VarTuple declares a homogeneous tuple of any length.
func VarTuple(elem Type) Type {
	return Type{kind: typeTuple, elems: []Type{elem}, variadic: true}
}

// EmptyTuple declares the tuple that accepts no values.
func EmptyTuple() Type {
	return Type{kind: typeTuple, empty: true}
}

// TypeFor derives a raw Type from a Go type. Integers map to Int, floats to
// Float, slices to List, arrays to fixed tuples and pointers to Optional.
// Everything else becomes an opaque type the compiler rejects.
func TypeFor[T any]() Type {
	return typeOf(reflect.TypeFor[T]())
}

func typeOf(rt reflect.Type) Type {
	if rt == nil {
		return Any()
	}
	switch rt.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Int()
	case reflect.Float32, reflect.Float64:
		return Float()
	case reflect.String:
		return String()
	case reflect.Bool:
		return Bool()
	case reflect.Slice:
		return List(typeOf(rt.Elem()))
	case reflect.Array:
		if rt.Len() == 0 {
			return EmptyTuple()
		}
		elem := typeOf(rt.Elem())
		elems := make([]Type, rt.Len())
		for i := range elems {
			elems[i] = elem
		}
		return Tuple(elems...)
	case reflect.Pointer:
		return Optional(typeOf(rt.Elem()))
	case reflect.Interface:
		return Any()
	default:
		return Type{kind: typeOpaque, name: rt.String()}
	}
}

// isPrimitive reports whether t is one of int, string, bool or float.
func (t Type) isPrimitive() bool {
	switch t.kind {
	case typeInt, typeString, typeBool, typeFloat:
		return true
	}
	return false
}

// primitiveKind maps a primitive raw type to its Kind.
func (t Type) primitiveKind() Kind {
	switch t.kind {
	case typeInt:
		return KindInt
	case typeBool:
		return KindBool
	case typeFloat:
		return KindFloat
	default:
		return KindString
	}
}

// optionalInner returns T when t is exactly the union {T, None}.
func (t Type) optionalInner() (Type, bool) {
	if t.kind != typeUnion || len(t.elems) != 2 {
		return Type{}, false
	}
	switch {
	case t.elems[1].kind == typeNone && t.elems[0].kind != typeNone:
		return t.elems[0], true
	case t.elems[0].kind == typeNone && t.elems[1].kind != typeNone:
		return t.elems[1], true
	}
	return Type{}, false
}

// String renders the raw type for diagnostics.
func (t Type) String() string {
	switch t.kind {
	case typeUnset:
		return "<unset>"
	case typeInt:
		return "int"
	case typeString:
		return "string"
	case typeBool:
		return "bool"
	case typeFloat:
		return "float"
	case typeNone:
		return "None"
	case typeAny:
		return "Any"
	case typeEnum, typeOpaque:
		return t.name
	case typeUnion:
		if inner, ok := t.optionalInner(); ok {
			return "Optional[" + inner.String() + "]"
		}
		return "Union[" + joinTypes(t.elems) + "]"
	case typeList:
		return "List[" + joinTypes(t.elems) + "]"
	case typeTuple:
		switch {
		case t.empty:
			return "Tuple[()]"
		case t.variadic:
			return "Tuple[" + t.elems[0].String() + ", ...]"
		}
		return "Tuple[" + joinTypes(t.elems) + "]"
	}
	return "<invalid>"
}

func joinTypes(ts []Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}
