// Package tactile runs the external processes of r3slice. Every GRASS
// module invocation becomes a Command, executed synchronously by an
// Executor with optional stdin, a timeout and capped output capture.
//
// Two executors exist:
//   - DirectExecutor runs the command on the host (inside a GRASS session).
//   - DockerExecutor runs the command in a container image that ships GRASS.
package tactile

import (
	"strings"
	"time"
)

// SandboxMode selects where a command runs.
type SandboxMode string

const (
	SandboxNone   SandboxMode = "none"
	SandboxDocker SandboxMode = "docker"
)

// Command is one process to run.
type Command struct {
	// Binary is the executable, e.g. "r.profile" or a launcher like "grass".
	Binary    string
	Arguments []string

	// WorkingDirectory defaults to Config.WorkingDir.
	WorkingDirectory string

	// Environment entries (KEY=VALUE) added after the allowed host variables.
	Environment []string

	Stdin string

	// Limits override Config defaults field by field.
	Limits *ResourceLimits

	// Sandbox defaults to Config.Sandbox.
	Sandbox *SandboxConfig

	// SessionID tags audit events, usually with the slice run id.
	SessionID string
}

// CommandString renders the command line for logs and the ledger.
func (c Command) CommandString() string {
	if len(c.Arguments) == 0 {
		return c.Binary
	}
	return c.Binary + " " + strings.Join(c.Arguments, " ")
}

// ResourceLimits bound one execution. Zero fields take the Config value.
type ResourceLimits struct {
	TimeoutMs int64

	// MaxOutputBytes caps stdout and stderr capture, each.
	MaxOutputBytes int64

	// MaxMemoryBytes caps container memory. Only DockerExecutor honors it.
	MaxMemoryBytes int64
}

// SandboxConfig describes the container a command runs in.
type SandboxConfig struct {
	Mode  SandboxMode
	Image string

	// Mounts in host:container[:ro] form.
	Mounts []string

	// User as user[:group].
	User string
}

// ExecutionResult is what one execution produced.
type ExecutionResult struct {
	// Success reports that the process could be run at all. A process that
	// exits non-zero or is killed still has Success set.
	Success bool

	// ExitCode is -1 when the process never exited on its own.
	ExitCode int

	Stdout string
	Stderr string

	StartedAt time.Time
	Duration  time.Duration

	Killed     bool
	KillReason string

	Truncated      bool
	TruncatedBytes int64

	// ResourceUsage is nil when the platform does not report it.
	ResourceUsage *ResourceUsage

	// Error holds the infrastructure error when Success is false.
	Error string
}

// IsError reports an infrastructure failure: the process did not run.
func (r *ExecutionResult) IsError() bool {
	return !r.Success || r.Error != ""
}

// IsNonZeroExit reports a process that ran and exited with a non-zero code.
func (r *ExecutionResult) IsNonZeroExit() bool {
	return r.Success && r.ExitCode != 0
}

// Failed reports anything but a clean exit 0.
func (r *ExecutionResult) Failed() bool {
	return r.IsError() || r.Killed || r.ExitCode != 0
}

// ResourceUsage is the CPU and memory a finished process consumed.
type ResourceUsage struct {
	UserTimeMs   int64
	SystemTimeMs int64
	MaxRSSBytes  int64
}

// TotalCPUTimeMs returns user plus system time.
func (r *ResourceUsage) TotalCPUTimeMs() int64 {
	return r.UserTimeMs + r.SystemTimeMs
}

// AuditEventType says which stage of an execution an AuditEvent reports.
type AuditEventType string

const (
	AuditEventStart    AuditEventType = "start"
	AuditEventComplete AuditEventType = "complete"
	AuditEventKilled   AuditEventType = "killed"
	AuditEventError    AuditEventType = "error"
)

// AuditEvent is emitted before and after every execution.
type AuditEvent struct {
	Type      AuditEventType
	Timestamp time.Time
	Command   Command

	// Result is nil for start events.
	Result *ExecutionResult

	SessionID    string
	ExecutorName string
}
