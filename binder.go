// binder.go: fluent binding of handler arguments into typed variables
//
// Bind* methods only record intents; Apply copies every value in one pass and
// stops at the first mismatch, so a failed Apply leaves later targets
// untouched.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package fastcli

import (
	"fmt"
	"unsafe"

	"github.com/agilira/go-errors"
)

// bindKind is the type discriminator of a binding
type bindKind uint8

const (
	bindString bindKind = iota
	bindInt
	bindBool
	bindFloat64
	bindEnum
	bindStrings
	bindInts
	bindFloats
	bindBools
	bindAny
)

// binding is a single target with its parameter name
type binding struct {
	target unsafe.Pointer // Raw pointer to target variable
	name   string
	kind   bindKind
}

// ArgsBinder copies Args values into typed variables.
type ArgsBinder struct {
	args     *Args
	bindings []binding
}

// Bind starts a binder over the handler arguments.
//
//	var port int
//	var tags []string
//	if err := args.Bind().BindInt(&port, "port").BindStrings(&tags, "tags").Apply(); err != nil {
//		return nil, err
//	}
func (a *Args) Bind() *ArgsBinder {
	return &ArgsBinder{args: a, bindings: make([]binding, 0, len(a.names))}
}

func (b *ArgsBinder) add(target unsafe.Pointer, name string, kind bindKind) *ArgsBinder {
	b.bindings = append(b.bindings, binding{target: target, name: name, kind: kind})
	return b
}

// BindString binds a string parameter.
func (b *ArgsBinder) BindString(target *string, name string) *ArgsBinder {
	return b.add(unsafe.Pointer(target), name, bindString) // #nosec G103 - typed by the Bind* signature
}

// BindInt binds an int parameter.
func (b *ArgsBinder) BindInt(target *int, name string) *ArgsBinder {
	return b.add(unsafe.Pointer(target), name, bindInt) // #nosec G103
}

// BindBool binds a bool parameter.
func (b *ArgsBinder) BindBool(target *bool, name string) *ArgsBinder {
	return b.add(unsafe.Pointer(target), name, bindBool) // #nosec G103
}

// BindFloat64 binds a float parameter.
func (b *ArgsBinder) BindFloat64(target *float64, name string) *ArgsBinder {
	return b.add(unsafe.Pointer(target), name, bindFloat64) // #nosec G103
}

// BindEnum binds an enumeration parameter.
func (b *ArgsBinder) BindEnum(target *EnumMember, name string) *ArgsBinder {
	return b.add(unsafe.Pointer(target), name, bindEnum) // #nosec G103
}

// BindStrings binds a variadic string sequence.
func (b *ArgsBinder) BindStrings(target *[]string, name string) *ArgsBinder {
	return b.add(unsafe.Pointer(target), name, bindStrings) // #nosec G103
}

// BindInts binds a variadic int sequence.
func (b *ArgsBinder) BindInts(target *[]int, name string) *ArgsBinder {
	return b.add(unsafe.Pointer(target), name, bindInts) // #nosec G103
}

// BindFloats binds a variadic float sequence.
func (b *ArgsBinder) BindFloats(target *[]float64, name string) *ArgsBinder {
	return b.add(unsafe.Pointer(target), name, bindFloats) // #nosec G103
}

// BindBools binds a variadic bool sequence.
func (b *ArgsBinder) BindBools(target *[]bool, name string) *ArgsBinder {
	return b.add(unsafe.Pointer(target), name, bindBools) // #nosec G103
}

// BindAny binds any parameter, including fixed tuples ([N]T) and unions.
func (b *ArgsBinder) BindAny(target *any, name string) *ArgsBinder {
	return b.add(unsafe.Pointer(target), name, bindAny) // #nosec G103
}

// Apply executes all bindings in declaration order.
func (b *ArgsBinder) Apply() error {
	for _, bd := range b.bindings {
		if err := b.apply(bd); err != nil {
			return errors.Wrap(err, ErrCodeBindError, "failed to bind parameter '"+bd.name+"'").
				WithContext("parameter", bd.name)
		}
	}
	return nil
}

func (b *ArgsBinder) apply(bd binding) error {
	value, exists := b.args.Lookup(bd.name)
	if !exists {
		return errors.New(ErrCodeBindError, "no such parameter: "+bd.name)
	}

	ok := true
	switch bd.kind {
	case bindString:
		var v string
		v, ok = value.(string)
		if ok {
			*(*string)(bd.target) = v
		}
	case bindInt:
		var v int
		v, ok = value.(int)
		if ok {
			*(*int)(bd.target) = v
		}
	case bindBool:
		var v bool
		v, ok = value.(bool)
		if ok {
			*(*bool)(bd.target) = v
		}
	case bindFloat64:
		var v float64
		v, ok = value.(float64)
		if ok {
			*(*float64)(bd.target) = v
		}
	case bindEnum:
		var v EnumMember
		v, ok = value.(EnumMember)
		if ok {
			*(*EnumMember)(bd.target) = v
		}
	case bindStrings:
		var v []string
		v, ok = value.([]string)
		if ok || value == nil {
			*(*[]string)(bd.target), ok = v, true
		}
	case bindInts:
		var v []int
		v, ok = value.([]int)
		if ok || value == nil {
			*(*[]int)(bd.target), ok = v, true
		}
	case bindFloats:
		var v []float64
		v, ok = value.([]float64)
		if ok || value == nil {
			*(*[]float64)(bd.target), ok = v, true
		}
	case bindBools:
		var v []bool
		v, ok = value.([]bool)
		if ok || value == nil {
			*(*[]bool)(bd.target), ok = v, true
		}
	case bindAny:
		*(*any)(bd.target) = value
	default:
		return errors.New(ErrCodeBindError, fmt.Sprintf("unsupported binding kind: %d", bd.kind))
	}

	if !ok {
		return errors.New(ErrCodeBindError, fmt.Sprintf("parameter %s holds %T", bd.name, value))
	}
	return nil
}
