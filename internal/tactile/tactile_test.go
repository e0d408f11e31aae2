package tactile

import (
	"bytes"
	"context"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses POSIX utilities")
	}
}

func TestDirectExecutor_Execute(t *testing.T) {
	skipOnWindows(t)
	executor := NewDirectExecutor(DefaultConfig())

	result, err := executor.Execute(context.Background(), Command{
		Binary:    "echo",
		Arguments: []string{"hello"},
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if !result.Success {
		t.Errorf("Expected success, got failure: %s", result.Error)
	}
	if result.ExitCode != 0 {
		t.Errorf("Expected exit code 0, got %d", result.ExitCode)
	}
	if strings.TrimSpace(result.Stdout) != "hello" {
		t.Errorf("Expected stdout 'hello', got: %q", result.Stdout)
	}
	if result.Failed() {
		t.Errorf("Expected Failed()=false")
	}
}

func TestDirectExecutor_Stdin(t *testing.T) {
	skipOnWindows(t)
	executor := NewDirectExecutor(DefaultConfig())

	payload := "north: 30\nsouth: 0\n1 2 3\n"
	result, err := executor.Execute(context.Background(), Command{
		Binary: "cat",
		Stdin:  payload,
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Stdout != payload {
		t.Errorf("stdin not forwarded, got %q", result.Stdout)
	}
}

func TestDirectExecutor_Environment(t *testing.T) {
	skipOnWindows(t)
	cfg := DefaultConfig()
	cfg.Environment = []string{"GRASS_OVERWRITE=1"}
	executor := NewDirectExecutor(cfg)

	result, err := executor.Execute(context.Background(), Command{
		Binary:      "sh",
		Arguments:   []string{"-c", "echo $GRASS_OVERWRITE $R3SLICE_RUN"},
		Environment: []string{"R3SLICE_RUN=abc"},
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if strings.TrimSpace(result.Stdout) != "1 abc" {
		t.Errorf("unexpected environment output: %q", result.Stdout)
	}
}

func TestDirectExecutor_Timeout(t *testing.T) {
	skipOnWindows(t)
	executor := NewDirectExecutor(DefaultConfig())

	start := time.Now()
	result, err := executor.Execute(context.Background(), Command{
		Binary:    "sleep",
		Arguments: []string{"10"},
		Limits:    &ResourceLimits{TimeoutMs: 300},
	})
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.Killed {
		t.Errorf("Expected command to be killed")
	}
	if !strings.Contains(result.KillReason, "timeout") {
		t.Errorf("Expected kill reason to mention timeout, got: %s", result.KillReason)
	}
	if !result.Failed() {
		t.Errorf("Expected Failed()=true for a killed command")
	}
	if elapsed > 3*time.Second {
		t.Errorf("Timeout didn't work, elapsed: %v", elapsed)
	}
}

func TestDirectExecutor_Cancel(t *testing.T) {
	skipOnWindows(t)
	executor := NewDirectExecutor(DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	result, err := executor.Execute(ctx, Command{Binary: "sleep", Arguments: []string{"10"}})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.Killed || result.KillReason != "context canceled" {
		t.Errorf("expected cancellation, got killed=%v reason=%q", result.Killed, result.KillReason)
	}
}

func TestDirectExecutor_NonZeroExit(t *testing.T) {
	skipOnWindows(t)
	executor := NewDirectExecutor(DefaultConfig())

	result, err := executor.Execute(context.Background(), Command{
		Binary:    "sh",
		Arguments: []string{"-c", "echo 'ERROR: Raster map <x> not found' >&2; exit 1"},
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if !result.Success {
		t.Errorf("Expected success=true for non-zero exit, got: %s", result.Error)
	}
	if result.ExitCode != 1 {
		t.Errorf("Expected exit code 1, got %d", result.ExitCode)
	}
	if !result.IsNonZeroExit() {
		t.Errorf("Expected IsNonZeroExit()=true")
	}
	if !strings.Contains(result.Stderr, "not found") {
		t.Errorf("stderr not captured: %q", result.Stderr)
	}
}

func TestDirectExecutor_InvalidCommand(t *testing.T) {
	executor := NewDirectExecutor(DefaultConfig())

	result, err := executor.Execute(context.Background(), Command{
		Binary: "r3slice-definitely-not-a-binary",
	})
	if err != nil {
		t.Fatalf("Execute returned error instead of result: %v", err)
	}
	if result.Success {
		t.Errorf("Expected infrastructure failure")
	}
	if !result.IsError() || result.Error == "" {
		t.Errorf("Expected error message, got %+v", result)
	}
}

func TestDirectExecutor_Validate(t *testing.T) {
	executor := NewDirectExecutor(DefaultConfig())

	if err := executor.Validate(Command{}); err == nil {
		t.Error("expected error for empty binary")
	}
	if err := executor.Validate(Command{Binary: "g.list", Sandbox: &SandboxConfig{Mode: SandboxDocker}}); err == nil {
		t.Error("expected error for docker sandbox on direct executor")
	}
	if _, err := executor.Execute(context.Background(), Command{}); err == nil {
		t.Error("expected Execute to surface validation errors")
	}
}

func TestAudited_EventsAndStats(t *testing.T) {
	skipOnWindows(t)
	audited := NewAudited(NewDirectExecutor(DefaultConfig()))

	var events []AuditEventType
	audited.Auditor().Subscribe(func(e AuditEvent) {
		events = append(events, e.Type)
		if e.SessionID != "run42" {
			t.Errorf("session id not propagated: %q", e.SessionID)
		}
	})

	for _, bin := range []string{"true", "false"} {
		if _, err := audited.Execute(context.Background(), Command{Binary: bin, SessionID: "run42"}); err != nil {
			t.Fatalf("Execute(%s) failed: %v", bin, err)
		}
	}

	want := []AuditEventType{AuditEventStart, AuditEventComplete, AuditEventStart, AuditEventComplete}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Errorf("audit events mismatch (-want +got):\n%s", diff)
	}

	st := audited.Auditor().Stats()
	if st.Commands != 2 || st.Failed != 1 || st.Killed != 0 {
		t.Errorf("unexpected stats: %+v", st)
	}
	if st.Elapsed <= 0 {
		t.Errorf("expected elapsed time to accumulate, got %s", st.Elapsed)
	}
	if audited.Name() != "direct" {
		t.Errorf("expected wrapped executor name, got %s", audited.Name())
	}
}

func TestAuditor_StatsFromEvents(t *testing.T) {
	a := NewAuditor()
	a.Log(AuditEvent{Type: AuditEventStart})
	a.Log(AuditEvent{Type: AuditEventKilled, Result: &ExecutionResult{Success: true, Killed: true, Duration: time.Second}})
	a.Log(AuditEvent{Type: AuditEventStart})
	a.Log(AuditEvent{Type: AuditEventComplete, Result: &ExecutionResult{
		Success:       true,
		Duration:      2 * time.Second,
		ResourceUsage: &ResourceUsage{UserTimeMs: 300, SystemTimeMs: 200},
	}})
	a.Log(AuditEvent{Type: AuditEventStart})
	a.Log(AuditEvent{Type: AuditEventError, Result: &ExecutionResult{Error: "not found"}})

	want := Stats{Commands: 3, Failed: 1, Killed: 1, Elapsed: 3 * time.Second, CPU: 500 * time.Millisecond}
	if diff := cmp.Diff(want, a.Stats()); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

func TestExecutionResult_Predicates(t *testing.T) {
	cases := []struct {
		name    string
		result  ExecutionResult
		isError bool
		nonZero bool
		failed  bool
	}{
		{"clean", ExecutionResult{Success: true}, false, false, false},
		{"exit 1", ExecutionResult{Success: true, ExitCode: 1}, false, true, true},
		{"killed", ExecutionResult{Success: true, ExitCode: -1, Killed: true}, false, true, true},
		{"not started", ExecutionResult{ExitCode: -1, Error: "exec: not found"}, true, false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.result.IsError(); got != tc.isError {
				t.Errorf("IsError() = %v", got)
			}
			if got := tc.result.IsNonZeroExit(); got != tc.nonZero {
				t.Errorf("IsNonZeroExit() = %v", got)
			}
			if got := tc.result.Failed(); got != tc.failed {
				t.Errorf("Failed() = %v", got)
			}
		})
	}
}

func TestLimitedWriter(t *testing.T) {
	var buf bytes.Buffer
	lw := &limitedWriter{w: &buf, max: 5}

	n, err := lw.Write([]byte("abc"))
	if err != nil || n != 3 {
		t.Fatalf("first write: n=%d err=%v", n, err)
	}
	n, err = lw.Write([]byte("defg"))
	if err != nil || n != 4 {
		t.Fatalf("second write: n=%d err=%v", n, err)
	}
	n, _ = lw.Write([]byte("hij"))
	if n != 3 {
		t.Fatalf("third write should pretend success, n=%d", n)
	}

	if buf.String() != "abcde" {
		t.Errorf("expected 'abcde', got %q", buf.String())
	}
	if !lw.truncated || lw.discarded != 5 {
		t.Errorf("expected truncated with 5 discarded, got truncated=%v discarded=%d", lw.truncated, lw.discarded)
	}
}

func TestConfig_Merge(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxTimeout = time.Minute
	cfg.MaxMemoryBytes = 2 << 30
	cfg.Sandbox = &SandboxConfig{Mode: SandboxDocker, Image: "osgeo/grass-gis"}

	limits := &ResourceLimits{TimeoutMs: int64(time.Hour / time.Millisecond)}
	merged := cfg.Merge(Command{Binary: "r3.to.rast", Limits: limits})

	if merged.WorkingDirectory != "." {
		t.Errorf("expected default working dir, got %q", merged.WorkingDirectory)
	}
	if merged.Limits.TimeoutMs != 60000 {
		t.Errorf("expected timeout capped to 60000ms, got %d", merged.Limits.TimeoutMs)
	}
	if merged.Limits.MaxOutputBytes != cfg.MaxOutputBytes {
		t.Errorf("expected default max output, got %d", merged.Limits.MaxOutputBytes)
	}
	if merged.Limits.MaxMemoryBytes != 2<<30 {
		t.Errorf("expected configured memory cap, got %d", merged.Limits.MaxMemoryBytes)
	}
	if limits.TimeoutMs != int64(time.Hour/time.Millisecond) || limits.MaxMemoryBytes != 0 {
		t.Errorf("Merge must not mutate the caller's limits: %+v", limits)
	}
	if merged.Sandbox == nil || merged.Sandbox.Image != "osgeo/grass-gis" {
		t.Errorf("expected default sandbox, got %+v", merged.Sandbox)
	}
	merged.Sandbox.Image = "changed"
	if cfg.Sandbox.Image != "osgeo/grass-gis" {
		t.Errorf("Merge must copy the default sandbox")
	}

	own := cfg.Merge(Command{Binary: "r.profile", Limits: &ResourceLimits{MaxMemoryBytes: 1 << 20}})
	if own.Limits.MaxMemoryBytes != 1<<20 {
		t.Errorf("command memory cap must win, got %d", own.Limits.MaxMemoryBytes)
	}
}

func TestDockerArgs_MemoryFromConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxMemoryBytes = 512 << 20
	cfg.Sandbox = &SandboxConfig{Mode: SandboxDocker, Image: "osgeo/grass-gis:8.4"}

	args := dockerArgs(cfg.Merge(Command{Binary: "g.list", Arguments: []string{"type=raster"}}), nil)
	want := []string{"run", "--rm", "--memory", "536870912", "osgeo/grass-gis:8.4", "g.list", "type=raster"}
	if diff := cmp.Diff(want, args); diff != "" {
		t.Errorf("docker args mismatch (-want +got):\n%s", diff)
	}
}

func TestDockerArgs(t *testing.T) {
	cmd := Command{
		Binary:           "grass",
		Arguments:        []string{"/data/nc/user1", "--exec", "r.in.ascii", "input=-"},
		WorkingDirectory: "/data",
		Stdin:            "north: 1\n",
		Environment:      []string{"GRASS_OVERWRITE=1"},
		Limits:           &ResourceLimits{MaxMemoryBytes: 1 << 30},
		Sandbox: &SandboxConfig{
			Mode:   SandboxDocker,
			Image:  "osgeo/grass-gis:8.4",
			Mounts: []string{"/srv/grassdata:/data"},
			User:   "1000:1000",
		},
	}

	got := dockerArgs(cmd, []string{"LANG=C"})
	want := []string{
		"run", "--rm", "-i",
		"--user", "1000:1000",
		"-v", "/srv/grassdata:/data",
		"-w", "/data",
		"-e", "LANG=C",
		"-e", "GRASS_OVERWRITE=1",
		"--memory", "1073741824",
		"osgeo/grass-gis:8.4",
		"grass", "/data/nc/user1", "--exec", "r.in.ascii", "input=-",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("docker args mismatch (-want +got):\n%s", diff)
	}
}

func TestNew(t *testing.T) {
	exec, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New(direct) failed: %v", err)
	}
	if exec.Name() != "direct" {
		t.Errorf("expected direct executor, got %s", exec.Name())
	}

	cfg := DefaultConfig()
	cfg.Sandbox = &SandboxConfig{Mode: "firejail"}
	if _, err := New(cfg); err == nil {
		t.Error("expected error for unknown sandbox mode")
	}
}

func TestCommandString(t *testing.T) {
	cmd := Command{Binary: "g.list", Arguments: []string{"type=raster", "pattern=tmp_*"}}
	if got := cmd.CommandString(); got != "g.list type=raster pattern=tmp_*" {
		t.Errorf("unexpected command string %q", got)
	}
	if got := (Command{Binary: "g.region"}).CommandString(); got != "g.region" {
		t.Errorf("unexpected command string %q", got)
	}
}
