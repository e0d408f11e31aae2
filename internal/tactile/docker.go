package tactile

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"r3slice/internal/logging"
)

// DockerExecutor runs every command in a throwaway container. The GIS
// database must be reachable through the sandbox mounts.
type DockerExecutor struct {
	auditHook
	cfg    Config
	docker string
}

// NewDockerExecutor locates the docker CLI and checks that the daemon
// answers.
func NewDockerExecutor(cfg Config) (*DockerExecutor, error) {
	path, err := exec.LookPath("docker")
	if err != nil {
		return nil, fmt.Errorf("docker not found: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := exec.CommandContext(ctx, path, "version", "--format", "{{.Server.Version}}").Run(); err != nil {
		return nil, fmt.Errorf("docker daemon at %s not responding: %w", path, err)
	}

	logging.TactileDebug("docker executor: %s", path)
	return &DockerExecutor{cfg: cfg, docker: path}, nil
}

func (e *DockerExecutor) Name() string { return "docker" }

// Validate requires a docker sandbox with an image, from cmd or config.
func (e *DockerExecutor) Validate(cmd Command) error {
	if cmd.Binary == "" {
		return fmt.Errorf("binary is required")
	}
	sandbox := cmd.Sandbox
	if sandbox == nil {
		sandbox = e.cfg.Sandbox
	}
	switch {
	case sandbox == nil:
		return fmt.Errorf("docker executor needs a sandbox")
	case sandbox.Mode != SandboxDocker:
		return fmt.Errorf("docker executor cannot run a %s sandbox", sandbox.Mode)
	case sandbox.Image == "":
		return fmt.Errorf("docker sandbox without an image")
	}
	return nil
}

// Execute runs cmd with docker run --rm.
func (e *DockerExecutor) Execute(ctx context.Context, cmd Command) (*ExecutionResult, error) {
	if err := e.Validate(cmd); err != nil {
		return nil, err
	}
	cmd = e.cfg.Merge(cmd)
	timeout := commandTimeout(cmd)

	e.emit(AuditEvent{Type: AuditEventStart, Timestamp: time.Now(), Command: cmd, SessionID: cmd.SessionID, ExecutorName: e.Name()})

	args := dockerArgs(cmd, e.cfg.Environment)
	logging.TactileDebug("exec docker %s", strings.Join(args, " "))

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	execCmd := exec.CommandContext(execCtx, e.docker, args...)
	if cmd.Stdin != "" {
		execCmd.Stdin = strings.NewReader(cmd.Stdin)
	}

	result := &ExecutionResult{ExitCode: -1}
	event := runProcess(execCtx, execCmd, cmd.Limits.MaxOutputBytes, timeout, result)

	e.emit(AuditEvent{Type: event, Timestamp: time.Now(), Command: cmd, Result: result, SessionID: cmd.SessionID, ExecutorName: e.Name()})
	return result, nil
}

// dockerArgs builds the docker run arguments for an already merged cmd.
func dockerArgs(cmd Command, baseEnv []string) []string {
	sandbox := cmd.Sandbox
	if sandbox == nil {
		sandbox = &SandboxConfig{Mode: SandboxDocker}
	}

	args := []string{"run", "--rm"}
	if cmd.Stdin != "" {
		args = append(args, "-i")
	}
	if sandbox.User != "" {
		args = append(args, "--user", sandbox.User)
	}
	for _, m := range sandbox.Mounts {
		args = append(args, "-v", m)
	}
	if cmd.WorkingDirectory != "" && cmd.WorkingDirectory != "." {
		args = append(args, "-w", cmd.WorkingDirectory)
	}
	for _, env := range baseEnv {
		args = append(args, "-e", env)
	}
	for _, env := range cmd.Environment {
		args = append(args, "-e", env)
	}
	if cmd.Limits != nil && cmd.Limits.MaxMemoryBytes > 0 {
		args = append(args, "--memory", strconv.FormatInt(cmd.Limits.MaxMemoryBytes, 10))
	}

	args = append(args, sandbox.Image, cmd.Binary)
	return append(args, cmd.Arguments...)
}
