package command

import (
	"strconv"
	"strings"
)

// ArgList accumulates the arguments of a command line in order.
type ArgList struct {
	args []string
}

// Positional appends raw values.
func (a *ArgList) Positional(values ...string) *ArgList {
	a.args = append(a.args, values...)

	return a
}

// Flag appends a flag followed by its value.
func (a *ArgList) Flag(name, value string) *ArgList {
	a.args = append(a.args, name, value)

	return a
}

// OptionalFlag appends a flag and its value only when the value is not empty.
func (a *ArgList) OptionalFlag(name, value string) *ArgList {
	if value == "" {
		return a
	}

	return a.Flag(name, value)
}

// OptionalFloat appends a flag and its value only when the value is set.
func (a *ArgList) OptionalFloat(name string, value *float64) *ArgList {
	if value == nil {
		return a
	}

	return a.Flag(name, FormatFloat(*value))
}

// OptionalInt appends a flag and its value only when the value is set.
func (a *ArgList) OptionalInt(name string, value *int) *ArgList {
	if value == nil {
		return a
	}

	return a.Flag(name, strconv.Itoa(*value))
}

// Switch appends a flag without value when on is true.
func (a *ArgList) Switch(name string, on bool) *ArgList {
	if on {
		a.args = append(a.args, name)
	}

	return a
}

// Choice renders an enumerated value as a long option, e.g. "cubic" becomes "--cubic".
func (a *ArgList) Choice(value string) *ArgList {
	if value == "" {
		return a
	}
	a.args = append(a.args, "--"+value)

	return a
}

// Args returns a copy of the accumulated arguments.
func (a *ArgList) Args() []string {
	out := make([]string, len(a.args))
	copy(out, a.args)

	return out
}

// FormatFloat renders a number in its shortest form: 1, 0.5, -0.25.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// JoinInts renders an integer vector the way ANTS expects it, e.g. 50x35x15.
func JoinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}

	return strings.Join(parts, "x")
}
