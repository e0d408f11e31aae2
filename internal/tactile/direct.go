package tactile

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"r3slice/internal/logging"
)

// DirectExecutor runs commands on the host. GRASS modules run this way must
// find a session through GISRC/GISBASE or be wrapped by a launcher such as
// "grass <mapset> --exec".
type DirectExecutor struct {
	auditHook
	cfg Config
}

// NewDirectExecutor creates a host executor.
func NewDirectExecutor(cfg Config) *DirectExecutor {
	logging.TactileDebug("direct executor: timeout=%s max output=%d bytes", cfg.DefaultTimeout, cfg.MaxOutputBytes)
	return &DirectExecutor{cfg: cfg}
}

func (e *DirectExecutor) Name() string { return "direct" }

// Validate rejects empty commands and container sandboxes.
func (e *DirectExecutor) Validate(cmd Command) error {
	if cmd.Binary == "" {
		return fmt.Errorf("binary is required")
	}
	if cmd.Sandbox != nil && cmd.Sandbox.Mode != SandboxNone && cmd.Sandbox.Mode != "" {
		return fmt.Errorf("direct executor cannot run a %s sandbox", cmd.Sandbox.Mode)
	}
	return nil
}

// Execute runs cmd on the host.
func (e *DirectExecutor) Execute(ctx context.Context, cmd Command) (*ExecutionResult, error) {
	if err := e.Validate(cmd); err != nil {
		logging.TactileWarn("rejected %s: %v", cmd.Binary, err)
		return nil, err
	}
	cmd = e.cfg.Merge(cmd)
	timeout := commandTimeout(cmd)
	logging.TactileDebug("exec %s (dir=%s, timeout=%s)", cmd.CommandString(), cmd.WorkingDirectory, timeout)

	e.emit(AuditEvent{Type: AuditEventStart, Timestamp: time.Now(), Command: cmd, SessionID: cmd.SessionID, ExecutorName: e.Name()})

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	execCmd := exec.CommandContext(execCtx, cmd.Binary, cmd.Arguments...)
	execCmd.Dir = cmd.WorkingDirectory
	execCmd.Env = e.environ(cmd.Environment)
	if cmd.Stdin != "" {
		execCmd.Stdin = strings.NewReader(cmd.Stdin)
	}

	result := &ExecutionResult{ExitCode: -1}
	event := runProcess(execCtx, execCmd, cmd.Limits.MaxOutputBytes, timeout, result)
	if event == AuditEventComplete && e.cfg.ResourceUsage {
		result.ResourceUsage = processUsage(execCmd)
	}

	e.emit(AuditEvent{Type: event, Timestamp: time.Now(), Command: cmd, Result: result, SessionID: cmd.SessionID, ExecutorName: e.Name()})
	return result, nil
}

// environ passes through the allowed host variables, then the configured
// and per-command entries.
func (e *DirectExecutor) environ(extra []string) []string {
	env := make([]string, 0, len(e.cfg.AllowedEnvironment)+len(e.cfg.Environment)+len(extra))
	for _, key := range e.cfg.AllowedEnvironment {
		if val, ok := os.LookupEnv(key); ok && val != "" {
			env = append(env, key+"="+val)
		}
	}
	env = append(env, e.cfg.Environment...)
	return append(env, extra...)
}
