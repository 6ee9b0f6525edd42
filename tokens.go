// tokens.go: splitting of the argument vector into per-argument token groups
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package fastcli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/agilira/go-errors"
)

// tokenGroups holds the raw tokens collected for each argument. An argument
// missing from the map was not given on the command line.
type tokenGroups map[string][]string

func isOptionToken(tok string) bool {
	return len(tok) > 2 && strings.HasPrefix(tok, "--")
}

// isShortOptionToken matches "-x" tokens. Negative numbers and a lone "-"
// stay positional values.
func isShortOptionToken(tok string) bool {
	if len(tok) < 2 || tok[0] != '-' || strings.HasPrefix(tok, "--") {
		return false
	}
	_, err := strconv.ParseFloat(tok, 64)
	return err != nil
}

func isHelpToken(tok string) bool {
	return tok == "-h" || tok == "--help"
}

// wantsHelp reports whether a help token appears before "--".
func wantsHelp(tokens []string) bool {
	for _, tok := range tokens {
		if tok == "--" {
			return false
		}
		if isHelpToken(tok) {
			return true
		}
	}
	return false
}

// splitTokens groups tokens by argument. Options are matched by name,
// remaining tokens are handed to the positional arguments in declaration
// order.
func splitTokens(specs []ArgumentSpec, tokens []string) (tokenGroups, error) {
	groups := make(tokenGroups, len(specs))
	options := make(map[string]ArgumentSpec)
	var positionals []ArgumentSpec
	for _, s := range specs {
		if s.Positional {
			positionals = append(positionals, s)
		} else {
			options[s.Name] = s
		}
	}

	var free []string
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if tok == "--" {
			free = append(free, tokens[i+1:]...)
			break
		}
		if isShortOptionToken(tok) && !isHelpToken(tok) {
			return nil, errors.New(ErrCodeUnknownOption, "unrecognized option: "+tok).
				WithContext("option", tok)
		}
		if !isOptionToken(tok) {
			free = append(free, tok)
			continue
		}

		name, inline, hasInline := strings.Cut(tok[2:], "=")
		spec, ok := options[name]
		if !ok {
			return nil, errors.New(ErrCodeUnknownOption, "unrecognized option: --"+name).
				WithContext("option", name)
		}

		switch {
		case spec.Flag:
			if hasInline {
				return nil, argumentError(arityError(spec.Arity, 1), spec.FlagForm)
			}
			groups[name] = []string{}

		case spec.IsSequence():
			var group []string
			if hasInline {
				group = append(group, inline)
			}
			for i+1 < len(tokens) && tokens[i+1] != "--" && !isOptionToken(tokens[i+1]) {
				i++
				group = append(group, tokens[i])
			}
			if group == nil {
				group = []string{}
			}
			groups[name] = group

		default:
			if hasInline {
				groups[name] = []string{inline}
				continue
			}
			if i+1 >= len(tokens) || tokens[i+1] == "--" || isOptionToken(tokens[i+1]) {
				return nil, argumentError(arityError(spec.Arity, 0), spec.FlagForm)
			}
			i++
			groups[name] = []string{tokens[i]}
		}
	}

	if err := assignPositionals(groups, positionals, free); err != nil {
		return nil, err
	}
	return groups, nil
}

// assignPositionals distributes free tokens over the positional arguments.
// Surplus tokens go to the first variadic positional; without one they go to
// the last sequence positional so that its arity check reports them.
func assignPositionals(groups tokenGroups, positionals []ArgumentSpec, free []string) error {
	need := 0
	for _, p := range positionals {
		need += p.minTokens()
	}
	surplus := len(free) - need

	extraTo := -1
	if surplus > 0 {
		for i, p := range positionals {
			if p.Arity.Kind == ArityVariadic {
				extraTo = i
				break
			}
		}
		if extraTo < 0 {
			for i := len(positionals) - 1; i >= 0; i-- {
				if positionals[i].IsSequence() {
					extraTo = i
					break
				}
			}
		}
	}

	var missing []string
	cursor := 0
	for i, p := range positionals {
		want := p.minTokens()
		if i == extraTo {
			want += surplus
		}
		avail := len(free) - cursor
		if want > avail {
			if !p.IsSequence() {
				missing = append(missing, p.Name)
				continue
			}
			want = avail
		}
		groups[p.Name] = append([]string{}, free[cursor:cursor+want]...)
		cursor += want
	}

	if len(missing) > 0 {
		return errors.New(ErrCodeMissingArgument,
			"the following arguments are required: "+strings.Join(missing, ", ")).
			WithContext("missing", strings.Join(missing, ","))
	}
	if cursor < len(free) {
		rest := free[cursor:]
		return errors.New(ErrCodeUnrecognizedArguments,
			fmt.Sprintf("unrecognized arguments: %s", strings.Join(rest, " "))).
			WithContext("arguments", strings.Join(rest, " "))
	}
	return nil
}
