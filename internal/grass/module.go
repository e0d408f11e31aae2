package grass

import (
	"fmt"
	"strings"
)

// Param is a key=value module option.
type Param struct {
	Key   string
	Value string
}

// P is shorthand for a Param.
func P(key string, value interface{}) Param {
	return Param{Key: key, Value: fmt.Sprint(value)}
}

// Invocation is a single GRASS module call.
type Invocation struct {
	Module string

	// Flags are single-letter flags without the dash, e.g. "3g".
	Flags string

	Params []Param

	// Stdin is piped to the module; use with input=-.
	Stdin string

	// Creates marks modules that write a new map, so --overwrite applies.
	Creates bool
}

// Args renders the module's command line, without the module name.
func (inv Invocation) Args(quiet, overwrite bool) []string {
	args := make([]string, 0, len(inv.Params)+3)
	if inv.Flags != "" {
		args = append(args, "-"+inv.Flags)
	}
	for _, p := range inv.Params {
		args = append(args, p.Key+"="+p.Value)
	}
	if overwrite && inv.Creates {
		args = append(args, "--overwrite")
	}
	if quiet {
		args = append(args, "--quiet")
	}
	return args
}

// String renders the invocation the way it would be typed in a GRASS shell.
func (inv Invocation) String() string {
	parts := append([]string{inv.Module}, inv.Args(false, false)...)
	return strings.Join(parts, " ")
}
