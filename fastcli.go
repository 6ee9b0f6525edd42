// fastcli.go: error taxonomy shared by the compiler, the coercion engine and the dispatcher
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

// Error codes for fastcli operations.
//
// Registration-time codes abort program startup; run-time codes abort only
// the current invocation.
const (
	// Registration time
	ErrCodeUnsupportedType    = "FASTCLI_UNSUPPORTED_TYPE"
	ErrCodeDuplicateCommand   = "FASTCLI_DUPLICATE_COMMAND"
	ErrCodeDuplicateParameter = "FASTCLI_DUPLICATE_PARAMETER"
	ErrCodeInvalidCommand     = "FASTCLI_INVALID_COMMAND"
	ErrCodeInvalidParameter   = "FASTCLI_INVALID_PARAMETER"
	ErrCodeInvalidDefault     = "FASTCLI_INVALID_DEFAULT"
	ErrCodeTreeSealed         = "FASTCLI_TREE_SEALED"
	ErrCodeDefaultsFile       = "FASTCLI_DEFAULTS_FILE"

	// Run time
	ErrCodeArgumentCast          = "FASTCLI_ARGUMENT_CAST"
	ErrCodeArgumentArity         = "FASTCLI_ARGUMENT_ARITY"
	ErrCodeUnknownChoice         = "FASTCLI_UNKNOWN_CHOICE"
	ErrCodeUnresolvedCommand     = "FASTCLI_UNRESOLVED_COMMAND"
	ErrCodeUnknownOption         = "FASTCLI_UNKNOWN_OPTION"
	ErrCodeMissingArgument       = "FASTCLI_MISSING_ARGUMENT"
	ErrCodeUnrecognizedArguments = "FASTCLI_UNRECOGNIZED_ARGUMENTS"
	ErrCodeHelpRequested         = "FASTCLI_HELP_REQUESTED"

	// Ambient
	ErrCodeBindError  = "FASTCLI_BIND_ERROR"
	ErrCodeAuditError = "FASTCLI_AUDIT_ERROR"
)

// usageCodes are the run-time codes caused by bad command-line input.
var usageCodes = map[string]struct{}{
	ErrCodeArgumentCast:          {},
	ErrCodeArgumentArity:         {},
	ErrCodeUnknownChoice:         {},
	ErrCodeUnresolvedCommand:     {},
	ErrCodeUnknownOption:         {},
	ErrCodeMissingArgument:       {},
	ErrCodeUnrecognizedArguments: {},
}

// ErrorCode returns the fastcli error code carried by err, or "" when err was
// not produced by this package (for example a handler's own error).
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	if coder, ok := err.(errors.ErrorCoder); ok {
		return string(coder.ErrorCode())
	}
	return ""
}

// IsUsageError reports whether err was caused by invalid command-line input.
func IsUsageError(err error) bool {
	_, ok := usageCodes[ErrorCode(err)]
	return ok
}

// IsHelpRequested reports whether err signals that help was printed instead of
// running a handler.
func IsHelpRequested(err error) bool {
	return ErrorCode(err) == ErrCodeHelpRequested
}

func unsupportedType(t Type, reason string) error {
	return errors.New(ErrCodeUnsupportedType, fmt.Sprintf("unsupported type %s: %s", t, reason)).
		WithContext("type", t.String())
}

func castError(kinds []Kind, token string) error {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	msg := fmt.Sprintf("invalid %s value: %q", names[0], token)
	if len(kinds) > 1 {
		msg = fmt.Sprintf("cannot cast %q to any of %s", token, strings.Join(names, ", "))
	}
	return errors.New(ErrCodeArgumentCast, msg).
		WithContext("token", token).
		WithContext("candidates", strings.Join(names, ","))
}

func arityError(want Arity, got int) error {
	var msg string
	switch want.Kind {
	case ArityEmpty, ArityNone:
		msg = fmt.Sprintf("expected no arguments, got %d", got)
	case ArityOne:
		msg = "expected one argument"
	default:
		msg = fmt.Sprintf("expected %d arguments, got %d", want.N, got)
	}
	return errors.New(ErrCodeArgumentArity, msg).
		WithContext("expected", want.String()).
		WithContext("received", fmt.Sprint(got))
}

func choiceError(token string, choices []string) error {
	quoted := make([]string, len(choices))
	for i, c := range choices {
		quoted[i] = "'" + c + "'"
	}
	return errors.New(ErrCodeUnknownChoice,
		fmt.Sprintf("invalid choice: %q (choose from %s)", token, strings.Join(quoted, ", "))).
		WithContext("token", token)
}

// argumentError attaches the offending parameter to a coercion error.
func argumentError(err error, name string) error {
	code := ErrorCode(err)
	if code == "" {
		code = ErrCodeArgumentCast
	}
	return errors.Wrap(err, errors.ErrorCode(code), "argument "+name).
		WithContext("parameter", name)
}
