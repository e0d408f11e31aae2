package tactile

import (
	"context"
	"fmt"
	"sync"
)

// Executor runs commands.
type Executor interface {
	// Execute runs cmd to completion. A returned error means cmd was
	// rejected before it started; everything after that is in the result.
	Execute(ctx context.Context, cmd Command) (*ExecutionResult, error)

	// Validate reports whether cmd can run on this executor.
	Validate(cmd Command) error

	// Name identifies the executor in logs and audit events.
	Name() string
}

// auditSource is an executor that emits audit events.
type auditSource interface {
	Executor
	SetAuditCallback(callback func(AuditEvent))
}

// New returns the executor cfg asks for: docker when cfg.Sandbox is a
// docker sandbox, direct otherwise.
func New(cfg Config) (Executor, error) {
	if cfg.Sandbox == nil {
		return NewDirectExecutor(cfg), nil
	}
	switch cfg.Sandbox.Mode {
	case SandboxNone, "":
		return NewDirectExecutor(cfg), nil
	case SandboxDocker:
		return NewDockerExecutor(cfg)
	default:
		return nil, fmt.Errorf("unknown sandbox mode: %s", cfg.Sandbox.Mode)
	}
}

// auditHook holds the audit callback shared by the executors.
type auditHook struct {
	mu       sync.RWMutex
	callback func(AuditEvent)
}

// SetAuditCallback registers the function receiving audit events.
func (h *auditHook) SetAuditCallback(callback func(AuditEvent)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.callback = callback
}

func (h *auditHook) emit(event AuditEvent) {
	h.mu.RLock()
	callback := h.callback
	h.mu.RUnlock()

	if callback != nil {
		callback(event)
	}
}
