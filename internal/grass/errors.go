package grass

import (
	"fmt"
	"strings"
)

// ModuleError is returned when a GRASS module exits non-zero or is killed.
type ModuleError struct {
	Module   string
	ExitCode int
	Stderr   string

	// KillReason is set when the module was terminated, e.g. on timeout.
	KillReason string
}

func (e *ModuleError) Error() string {
	if e.KillReason != "" {
		return fmt.Sprintf("%s killed: %s", e.Module, e.KillReason)
	}
	msg := e.Message()
	if msg == "" {
		return fmt.Sprintf("%s exited with status %d", e.Module, e.ExitCode)
	}
	return fmt.Sprintf("%s exited with status %d: %s", e.Module, e.ExitCode, msg)
}

// Message extracts the module's error text from stderr. GRASS prefixes
// fatal errors with "ERROR:"; without one the last non-empty line is used.
func (e *ModuleError) Message() string {
	var last string
	var errs []string
	for _, line := range strings.Split(e.Stderr, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		last = line
		if strings.HasPrefix(line, "ERROR:") {
			errs = append(errs, strings.TrimSpace(strings.TrimPrefix(line, "ERROR:")))
		}
	}
	if len(errs) > 0 {
		return strings.Join(errs, "; ")
	}
	return last
}

// ParseError is returned when module output cannot be understood.
type ParseError struct {
	Module string
	Line   int
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse %s output line %d %q: %s", e.Module, e.Line, e.Text, e.Reason)
	}
	return fmt.Sprintf("parse %s output: %s", e.Module, e.Reason)
}
