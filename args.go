// args.go: keyword-bound argument values handed to a handler
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package fastcli

// Args maps each declared parameter of the resolved command to its coerced
// value. It is created once per invocation and never modified afterwards.
type Args struct {
	path    []string
	names   []string
	values  map[string]any
	changed map[string]bool
}

func newArgs(path []string, size int) *Args {
	return &Args{
		path:    path,
		names:   make([]string, 0, size),
		values:  make(map[string]any, size),
		changed: make(map[string]bool, size),
	}
}

func (a *Args) set(name string, value any, fromCommandLine bool) {
	if _, exists := a.values[name]; !exists {
		a.names = append(a.names, name)
	}
	a.values[name] = value
	a.changed[name] = fromCommandLine
}

// Command returns the resolved command path, without the program name.
func (a *Args) Command() []string {
	return append([]string(nil), a.path...)
}

// Names returns the parameter names in declaration order.
func (a *Args) Names() []string {
	return append([]string(nil), a.names...)
}

// Lookup returns the value of name and whether the parameter exists.
func (a *Args) Lookup(name string) (any, bool) {
	v, ok := a.values[name]
	return v, ok
}

// Get returns the value of name, or nil.
func (a *Args) Get(name string) any {
	return a.values[name]
}

// Changed reports whether name was supplied on the command line.
func (a *Args) Changed(name string) bool {
	return a.changed[name]
}

// Map returns a copy of all values keyed by parameter name.
func (a *Args) Map() map[string]any {
	out := make(map[string]any, len(a.values))
	for k, v := range a.values {
		out[k] = v
	}
	return out
}

// Int returns the int value of name, or 0.
func (a *Args) Int(name string) int {
	v, _ := a.values[name].(int)
	return v
}

// Float returns the float64 value of name, or 0.
func (a *Args) Float(name string) float64 {
	v, _ := a.values[name].(float64)
	return v
}

// String returns the string value of name, or "".
func (a *Args) String(name string) string {
	v, _ := a.values[name].(string)
	return v
}

// Bool returns the bool value of name, or false.
func (a *Args) Bool(name string) bool {
	v, _ := a.values[name].(bool)
	return v
}

// Enum returns the enumeration member bound to name.
func (a *Args) Enum(name string) EnumMember {
	v, _ := a.values[name].(EnumMember)
	return v
}

// Ints returns a variadic int sequence.
func (a *Args) Ints(name string) []int {
	v, _ := a.values[name].([]int)
	return v
}

// Floats returns a variadic float sequence.
func (a *Args) Floats(name string) []float64 {
	v, _ := a.values[name].([]float64)
	return v
}

// Strings returns a variadic string sequence.
func (a *Args) Strings(name string) []string {
	v, _ := a.values[name].([]string)
	return v
}

// Bools returns a variadic bool sequence.
func (a *Args) Bools(name string) []bool {
	v, _ := a.values[name].([]bool)
	return v
}
