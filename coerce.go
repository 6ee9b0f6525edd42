// coerce.go: Value Coercion Engine
//
// Coerce turns the raw token group of one argument into its typed value.
// Token splitting has already happened; nothing here re-tokenizes.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package fastcli

import (
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/agilira/go-errors"
)

// Coerce converts tokens into the value described by d.
//
// Scalar shapes expect exactly one token. Sequences cast every token with the
// element caster; Fixed(N) sequences are returned as [N]T arrays, variadic
// ones as typed slices and Empty ones as [0]string.
func Coerce(d Descriptor, tokens []string) (any, error) {
	switch d.Shape {
	case ShapePrimitive, ShapeOptional:
		if len(tokens) != 1 {
			return nil, arityError(Arity{Kind: ArityOne}, len(tokens))
		}
		return castPrimitive(d.Kind, tokens[0])
	case ShapeEnum:
		if len(tokens) != 1 {
			return nil, arityError(Arity{Kind: ArityOne}, len(tokens))
		}
		return castEnum(d, tokens[0])
	case ShapeUnion:
		if len(tokens) != 1 {
			return nil, arityError(Arity{Kind: ArityOne}, len(tokens))
		}
		return castUnion(d.Candidates, tokens[0])
	case ShapeSequence:
		return castSequence(d, tokens)
	}
	return nil, errors.New(ErrCodeUnsupportedType, fmt.Sprintf("unknown descriptor shape %s", d.Shape))
}

func castPrimitive(k Kind, token string) (any, error) {
	switch k {
	case KindString:
		return token, nil
	case KindInt:
		v, err := strconv.ParseInt(token, 10, 0)
		if err != nil {
			return nil, castError([]Kind{k}, token)
		}
		return int(v), nil
	case KindFloat:
		v, err := strconv.ParseFloat(token, 64)
		if err != nil {
			return nil, castError([]Kind{k}, token)
		}
		return v, nil
	case KindBool:
		v, err := strconv.ParseBool(token)
		if err != nil {
			return nil, castError([]Kind{k}, token)
		}
		return v, nil
	}
	return nil, castError([]Kind{k}, token)
}

func castEnum(d Descriptor, token string) (any, error) {
	for _, m := range d.Members {
		if m.Name == token {
			return m, nil
		}
	}
	return nil, choiceError(token, d.Choices())
}

func castUnion(candidates []Kind, token string) (any, error) {
	for _, k := range candidates {
		if v, err := castPrimitive(k, token); err == nil {
			return v, nil
		}
	}
	return nil, castError(candidates, token)
}

func castSequence(d Descriptor, tokens []string) (any, error) {
	if !d.Arity.accepts(len(tokens)) {
		return nil, arityError(d.Arity, len(tokens))
	}

	elem := kindType(d.Kind)
	var out reflect.Value
	switch d.Arity.Kind {
	case ArityFixed, ArityEmpty:
		out = reflect.New(reflect.ArrayOf(len(tokens), elem)).Elem()
	default:
		out = reflect.MakeSlice(reflect.SliceOf(elem), len(tokens), len(tokens))
	}

	for i, tok := range tokens {
		v, err := castPrimitive(d.Kind, tok)
		if err != nil {
			return nil, errors.Wrap(err, ErrCodeArgumentCast, fmt.Sprintf("element %d", i)).
				WithContext("index", strconv.Itoa(i))
		}
		out.Index(i).Set(reflect.ValueOf(v))
	}
	return out.Interface(), nil
}

// kindType is the Go type used for values of kind k.
func kindType(k Kind) reflect.Type {
	switch k {
	case KindInt:
		return reflect.TypeFor[int]()
	case KindFloat:
		return reflect.TypeFor[float64]()
	case KindBool:
		return reflect.TypeFor[bool]()
	default:
		return reflect.TypeFor[string]()
	}
}

// normalizeDefault converts a declared default into the exact Go type Coerce
// would produce for d, so that handlers see one type whether or not the
// argument was supplied. A nil default is kept as nil.
func normalizeDefault(d Descriptor, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch d.Shape {
	case ShapePrimitive, ShapeOptional:
		return normalizeKind(d.Kind, v)
	case ShapeEnum:
		return normalizeEnum(d, v)
	case ShapeUnion:
		if k, ok := kindOfValue(v); ok {
			for _, c := range d.Candidates {
				if c == k || (c == KindFloat && k == KindInt) {
					return normalizeKind(c, v)
				}
			}
		}
		return nil, invalidDefault(d, v)
	case ShapeSequence:
		return normalizeSequence(d, v)
	}
	return nil, invalidDefault(d, v)
}

func normalizeKind(k Kind, v any) (any, error) {
	rv := reflect.ValueOf(v)
	switch k {
	case KindString:
		if rv.Kind() == reflect.String {
			return rv.String(), nil
		}
	case KindBool:
		if rv.Kind() == reflect.Bool {
			return rv.Bool(), nil
		}
	case KindInt:
		switch {
		case rv.CanInt():
			return int(rv.Int()), nil
		case rv.CanUint() && rv.Uint() <= math.MaxInt64:
			return int(rv.Uint()), nil
		}
	case KindFloat:
		switch {
		case rv.CanFloat():
			return rv.Float(), nil
		case rv.CanInt():
			return float64(rv.Int()), nil
		}
	}
	return nil, errors.New(ErrCodeInvalidDefault, fmt.Sprintf("default %v (%T) is not a %s", v, v, k))
}

func normalizeEnum(d Descriptor, v any) (any, error) {
	var name string
	switch m := v.(type) {
	case EnumMember:
		name = m.Name
	case string:
		name = m
	default:
		return nil, invalidDefault(d, v)
	}
	for _, m := range d.Members {
		if m.Name == name {
			return m, nil
		}
	}
	return nil, invalidDefault(d, v)
}

func normalizeSequence(d Descriptor, v any) (any, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, invalidDefault(d, v)
	}
	n := rv.Len()
	if !d.Arity.accepts(n) {
		return nil, invalidDefault(d, v)
	}

	elem := kindType(d.Kind)
	var out reflect.Value
	if d.Arity.Kind == ArityVariadic {
		out = reflect.MakeSlice(reflect.SliceOf(elem), n, n)
	} else {
		out = reflect.New(reflect.ArrayOf(n, elem)).Elem()
	}
	for i := 0; i < n; i++ {
		e, err := normalizeKind(d.Kind, rv.Index(i).Interface())
		if err != nil {
			return nil, invalidDefault(d, v)
		}
		out.Index(i).Set(reflect.ValueOf(e))
	}
	return out.Interface(), nil
}

func invalidDefault(d Descriptor, v any) error {
	return errors.New(ErrCodeInvalidDefault,
		fmt.Sprintf("default %v (%T) does not fit type %s", v, v, d.TypeName()))
}

// Render turns a value of descriptor d back into the tokens that would
// produce it. Rendering then coercing yields an equal value.
func Render(d Descriptor, v any) []string {
	if v == nil {
		return nil
	}
	switch d.Shape {
	case ShapeSequence:
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return []string{renderScalar(v)}
		}
		out := make([]string, rv.Len())
		for i := range out {
			out[i] = renderScalar(rv.Index(i).Interface())
		}
		return out
	default:
		return []string{renderScalar(v)}
	}
}

func renderScalar(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case EnumMember:
		return x.Name
	}
	return fmt.Sprint(v)
}
