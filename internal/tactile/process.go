package tactile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"r3slice/internal/logging"
)

func commandTimeout(cmd Command) time.Duration {
	return time.Duration(cmd.Limits.TimeoutMs) * time.Millisecond
}

// runProcess runs execCmd with capped output capture, fills result and
// returns the audit event type describing how the process ended.
func runProcess(execCtx context.Context, execCmd *exec.Cmd, maxOutput int64, timeout time.Duration, result *ExecutionResult) AuditEventType {
	var stdout, stderr bytes.Buffer
	outW := &limitedWriter{w: &stdout, max: maxOutput}
	errW := &limitedWriter{w: &stderr, max: maxOutput}
	execCmd.Stdout = outW
	execCmd.Stderr = errW

	result.StartedAt = time.Now()
	err := execCmd.Run()
	result.Duration = time.Since(result.StartedAt)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if outW.truncated || errW.truncated {
		result.Truncated = true
		result.TruncatedBytes = outW.discarded + errW.discarded
		logging.TactileWarn("output of %s truncated, %d bytes discarded", execCmd.Path, result.TruncatedBytes)
	}

	if err == nil {
		result.Success = true
		result.ExitCode = 0
		return AuditEventComplete
	}

	// The process ran in all remaining cases but the last.
	result.Success = true
	switch ctxErr := execCtx.Err(); {
	case errors.Is(ctxErr, context.DeadlineExceeded):
		result.Killed = true
		result.KillReason = fmt.Sprintf("timeout after %s", timeout)
		logging.TactileWarn("%s killed: %s", execCmd.Path, result.KillReason)
		return AuditEventKilled
	case errors.Is(ctxErr, context.Canceled):
		result.Killed = true
		result.KillReason = "context canceled"
		logging.TactileDebug("%s canceled", execCmd.Path)
		return AuditEventKilled
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		logging.TactileDebug("%s exited with %d", execCmd.Path, result.ExitCode)
		return AuditEventComplete
	}

	result.Success = false
	result.Error = err.Error()
	logging.TactileError("%s could not run: %v", execCmd.Path, err)
	return AuditEventError
}

// limitedWriter keeps the first max bytes and counts the rest. It never
// reports a short write, so the child is not killed by EPIPE.
type limitedWriter struct {
	w         io.Writer
	max       int64
	written   int64
	truncated bool
	discarded int64
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	if lw.max <= 0 {
		written, err := lw.w.Write(p)
		lw.written += int64(written)
		return written, err
	}

	room := lw.max - lw.written
	if room <= 0 {
		lw.truncated = true
		lw.discarded += int64(n)
		return n, nil
	}
	if int64(n) > room {
		lw.truncated = true
		lw.discarded += int64(n) - room
		written, err := lw.w.Write(p[:room])
		lw.written += int64(written)
		return n, err
	}

	written, err := lw.w.Write(p)
	lw.written += int64(written)
	return written, err
}
