// tokens_test.go: tests for argument vector splitting
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package fastcli

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func specsOf(t *testing.T, params ...*Parameter) []ArgumentSpec {
	t.Helper()
	specs := make([]ArgumentSpec, len(params))
	for i, p := range params {
		specs[i] = mustSpec(t, p)
	}
	return specs
}

func TestSplitTokens(t *testing.T) {
	specs := specsOf(t,
		Param("x", Int()),
		Param("y", String()),
		Param("z", String()).Default("Default"),
		Param("tags", List(String())).Default([]string{}),
		Param("verbose", Bool()).Default(false),
	)

	tests := []struct {
		name   string
		tokens []string
		want   tokenGroups
	}{
		{
			name:   "positionals only",
			tokens: []string{"7", "hi"},
			want:   tokenGroups{"x": {"7"}, "y": {"hi"}},
		},
		{
			name:   "option with separate value",
			tokens: []string{"7", "--z", "custom", "hi"},
			want:   tokenGroups{"x": {"7"}, "y": {"hi"}, "z": {"custom"}},
		},
		{
			name:   "option with inline value",
			tokens: []string{"--z=custom", "7", "hi"},
			want:   tokenGroups{"x": {"7"}, "y": {"hi"}, "z": {"custom"}},
		},
		{
			name:   "flag",
			tokens: []string{"7", "hi", "--verbose"},
			want:   tokenGroups{"x": {"7"}, "y": {"hi"}, "verbose": {}},
		},
		{
			name:   "sequence option stops at next option",
			tokens: []string{"--tags", "a", "b", "--verbose", "7", "hi"},
			want:   tokenGroups{"x": {"7"}, "y": {"hi"}, "tags": {"a", "b"}, "verbose": {}},
		},
		{
			name:   "empty sequence option",
			tokens: []string{"7", "hi", "--tags"},
			want:   tokenGroups{"x": {"7"}, "y": {"hi"}, "tags": {}},
		},
		{
			name:   "double dash ends options",
			tokens: []string{"7", "--", "--verbose"},
			want:   tokenGroups{"x": {"7"}, "y": {"--verbose"}},
		},
		{
			name:   "last occurrence wins",
			tokens: []string{"--z", "a", "--z", "b", "7", "hi"},
			want:   tokenGroups{"x": {"7"}, "y": {"hi"}, "z": {"b"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := splitTokens(specs, tt.tokens)
			if err != nil {
				t.Fatalf("splitTokens failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSplitTokens_Errors(t *testing.T) {
	specs := specsOf(t,
		Param("x", Int()),
		Param("z", String()).Default("Default"),
		Param("verbose", Bool()).Default(false),
	)

	tests := []struct {
		name   string
		tokens []string
		code   string
	}{
		{"missing positional", nil, ErrCodeMissingArgument},
		{"unknown option", []string{"1", "--nope"}, ErrCodeUnknownOption},
		{"short option", []string{"1", "-v"}, ErrCodeUnknownOption},
		{"short option with value", []string{"-z=x", "1"}, ErrCodeUnknownOption},
		{"surplus positional", []string{"1", "2"}, ErrCodeUnrecognizedArguments},
		{"option without value", []string{"1", "--z"}, ErrCodeArgumentArity},
		{"flag with value", []string{"1", "--verbose=yes"}, ErrCodeArgumentArity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := splitTokens(specs, tt.tokens)
			assertCode(t, err, tt.code)
		})
	}
}

func TestSplitTokens_NegativeNumbersArePositional(t *testing.T) {
	specs := specsOf(t,
		Param("x", Int()),
		Param("f", Float()),
		Param("path", String()),
	)

	got, err := splitTokens(specs, []string{"-1", "-2.5", "-"})
	if err != nil {
		t.Fatalf("splitTokens failed: %v", err)
	}
	want := tokenGroups{"x": {"-1"}, "f": {"-2.5"}, "path": {"-"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	got, err = splitTokens(specs, []string{"1", "2", "--", "-v"})
	if err != nil {
		t.Fatalf("splitTokens after -- failed: %v", err)
	}
	if diff := cmp.Diff([]string{"-v"}, got["path"]); diff != "" {
		t.Errorf("token after -- must stay positional (-want +got):\n%s", diff)
	}
}

func TestSplitTokens_SequencePositionals(t *testing.T) {
	specs := specsOf(t,
		Param("point", Tuple(Int(), Int())),
		Param("rest", List(Int())),
		Param("name", String()),
	)

	got, err := splitTokens(specs, []string{"1", "2", "3", "4", "5", "bob"})
	if err != nil {
		t.Fatalf("splitTokens failed: %v", err)
	}
	want := tokenGroups{"point": {"1", "2"}, "rest": {"3", "4", "5"}, "name": {"bob"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitTokens_FixedPositionalSurplus(t *testing.T) {
	// Without a variadic positional, surplus tokens go to the last sequence
	// so that its arity check names it.
	specs := specsOf(t, Param("pair", Tuple(Int(), Int())))

	groups, err := splitTokens(specs, []string{"1", "2", "3"})
	if err != nil {
		t.Fatalf("splitTokens failed: %v", err)
	}
	if len(groups["pair"]) != 3 {
		t.Fatalf("Expected 3 tokens for pair, got %v", groups["pair"])
	}
	_, err = specs[0].Cast(groups["pair"])
	assertCode(t, err, ErrCodeArgumentArity)

	groups, err = splitTokens(specs, []string{"1"})
	if err != nil {
		t.Fatalf("splitTokens failed: %v", err)
	}
	_, err = specs[0].Cast(groups["pair"])
	assertCode(t, err, ErrCodeArgumentArity)
}

func TestWantsHelp(t *testing.T) {
	if !wantsHelp([]string{"1", "-h"}) || !wantsHelp([]string{"--help"}) {
		t.Error("help tokens must be detected")
	}
	if wantsHelp([]string{"--", "-h"}) {
		t.Error("help after -- is a positional")
	}
}
