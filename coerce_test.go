// coerce_test.go: tests for the value coercion engine
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package fastcli

import (
	"math"
	"testing"

	"github.com/agilira/go-errors"
	"github.com/google/go-cmp/cmp"
)

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("Expected error %s, got nil", code)
	}
	errorCoder, ok := err.(errors.ErrorCoder)
	if !ok {
		t.Fatalf("Expected an ErrorCoder, got %T: %v", err, err)
	}
	if string(errorCoder.ErrorCode()) != code {
		t.Errorf("Expected %s, got %s (%v)", code, errorCoder.ErrorCode(), err)
	}
}

func TestCoerce_PrimitiveRoundTrip(t *testing.T) {
	tests := []struct {
		kind   Kind
		values []any
	}{
		{KindInt, []any{0, 7, -42, math.MaxInt64, math.MinInt64}},
		{KindFloat, []any{0.0, 3.5, -1e-9, 1e300, 0.1}},
		{KindString, []any{"", "hi", "with space", "--dash", "ünïcode"}},
		{KindBool, []any{true, false}},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			d := Primitive(tt.kind)
			for _, v := range tt.values {
				got, err := Coerce(d, Render(d, v))
				if err != nil {
					t.Fatalf("Coerce(Render(%v)) failed: %v", v, err)
				}
				if got != v {
					t.Errorf("round trip of %v (%T) gave %v (%T)", v, v, got, got)
				}
			}
		})
	}
}

func TestCoerce_CastErrors(t *testing.T) {
	tests := []struct {
		kind  Kind
		token string
	}{
		{KindInt, "abc"},
		{KindInt, "1.5"},
		{KindFloat, "x"},
		{KindBool, "maybe"},
	}
	for _, tt := range tests {
		_, err := Coerce(Primitive(tt.kind), []string{tt.token})
		assertCode(t, err, ErrCodeArgumentCast)
	}
}

func TestCoerce_ScalarArity(t *testing.T) {
	_, err := Coerce(Primitive(KindInt), nil)
	assertCode(t, err, ErrCodeArgumentArity)

	_, err = Coerce(Primitive(KindInt), []string{"1", "2"})
	assertCode(t, err, ErrCodeArgumentArity)
}

func TestCoerce_Enum(t *testing.T) {
	d, err := Compile(EnumOf("Color", "red", "green", "blue"), NoDefault)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	for _, name := range []string{"red", "green", "blue"} {
		got, err := Coerce(d, []string{name})
		if err != nil {
			t.Fatalf("Coerce(%q) failed: %v", name, err)
		}
		if m, ok := got.(EnumMember); !ok || m.Name != name {
			t.Errorf("Coerce(%q) = %#v", name, got)
		}
	}

	_, err = Coerce(d, []string{"purple"})
	assertCode(t, err, ErrCodeUnknownChoice)
}

func TestCoerce_EnumMatchesByName(t *testing.T) {
	d, err := Compile(Enum("Level", Member("low", 1), Member("high", 2)), NoDefault)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	got, err := Coerce(d, []string{"high"})
	if err != nil {
		t.Fatalf("Coerce failed: %v", err)
	}
	if got.(EnumMember).Value != 2 {
		t.Errorf("Expected member value 2, got %v", got.(EnumMember).Value)
	}

	_, err = Coerce(d, []string{"2"})
	assertCode(t, err, ErrCodeUnknownChoice)
}

func TestCoerce_Union(t *testing.T) {
	d := Descriptor{Shape: ShapeUnion, Candidates: []Kind{KindInt, KindFloat}}

	got, err := Coerce(d, []string{"3"})
	if err != nil || got != 3 {
		t.Errorf("Expected int 3, got %v (%T), err %v", got, got, err)
	}
	got, err = Coerce(d, []string{"3.5"})
	if err != nil || got != 3.5 {
		t.Errorf("Expected float 3.5, got %v (%T), err %v", got, got, err)
	}

	_, err = Coerce(d, []string{"three"})
	assertCode(t, err, ErrCodeArgumentCast)
}

func TestCoerce_FixedSequence(t *testing.T) {
	d := Descriptor{Shape: ShapeSequence, Kind: KindInt, Arity: Fixed(2)}

	got, err := Coerce(d, []string{"1", "2"})
	if err != nil {
		t.Fatalf("Coerce failed: %v", err)
	}
	if diff := cmp.Diff([2]int{1, 2}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	for _, tokens := range [][]string{{"1"}, {"1", "2", "3"}} {
		_, err := Coerce(d, tokens)
		assertCode(t, err, ErrCodeArgumentArity)
	}

	_, err = Coerce(d, []string{"1", "x"})
	assertCode(t, err, ErrCodeArgumentCast)
}

func TestCoerce_VariadicSequencePreservesOrder(t *testing.T) {
	d := Descriptor{Shape: ShapeSequence, Kind: KindFloat, Arity: Variadic()}

	got, err := Coerce(d, []string{"3", "1.5", "2"})
	if err != nil {
		t.Fatalf("Coerce failed: %v", err)
	}
	if diff := cmp.Diff([]float64{3, 1.5, 2}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	empty, err := Coerce(d, nil)
	if err != nil {
		t.Fatalf("Coerce of zero tokens failed: %v", err)
	}
	if s, ok := empty.([]float64); !ok || len(s) != 0 {
		t.Errorf("Expected empty []float64, got %#v", empty)
	}
}

func TestCoerce_EmptySequence(t *testing.T) {
	d := Descriptor{Shape: ShapeSequence, Kind: KindString, Arity: Empty()}

	got, err := Coerce(d, nil)
	if err != nil {
		t.Fatalf("Coerce failed: %v", err)
	}
	if _, ok := got.([0]string); !ok {
		t.Errorf("Expected [0]string, got %T", got)
	}

	_, err = Coerce(d, []string{"x"})
	assertCode(t, err, ErrCodeArgumentArity)
}

func TestNormalizeDefault(t *testing.T) {
	color, _ := Compile(EnumOf("Color", "red", "green"), NoDefault)

	tests := []struct {
		name string
		d    Descriptor
		in   any
		want any
	}{
		{"int widening", Primitive(KindInt), int64(5), 5},
		{"float from int", Primitive(KindFloat), 2, 2.0},
		{"nil stays nil", Primitive(KindInt), nil, nil},
		{"enum by name", color, "green", EnumMember{Name: "green", Value: "green"}},
		{"variadic from slice", Descriptor{Shape: ShapeSequence, Kind: KindInt, Arity: Variadic()}, []int{1, 2}, []int{1, 2}},
		{"fixed from slice", Descriptor{Shape: ShapeSequence, Kind: KindInt, Arity: Fixed(2)}, []int{1, 2}, [2]int{1, 2}},
		{"union picks value kind", Descriptor{Shape: ShapeUnion, Candidates: []Kind{KindInt, KindString}}, "x", "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeDefault(tt.d, tt.in)
			if err != nil {
				t.Fatalf("normalizeDefault failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNormalizeDefault_Invalid(t *testing.T) {
	color, _ := Compile(EnumOf("Color", "red", "green"), NoDefault)

	tests := []struct {
		name string
		d    Descriptor
		in   any
	}{
		{"string for int", Primitive(KindInt), "five"},
		{"unknown member", color, "purple"},
		{"fixed arity mismatch", Descriptor{Shape: ShapeSequence, Kind: KindInt, Arity: Fixed(2)}, []int{1}},
		{"scalar for sequence", Descriptor{Shape: ShapeSequence, Kind: KindInt, Arity: Variadic()}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := normalizeDefault(tt.d, tt.in)
			assertCode(t, err, ErrCodeInvalidDefault)
		})
	}
}

func TestRender_SequenceRoundTrip(t *testing.T) {
	d := Descriptor{Shape: ShapeSequence, Kind: KindInt, Arity: Fixed(3)}
	in := [3]int{4, 5, 6}

	got, err := Coerce(d, Render(d, in))
	if err != nil {
		t.Fatalf("Coerce failed: %v", err)
	}
	if diff := cmp.Diff(in, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
