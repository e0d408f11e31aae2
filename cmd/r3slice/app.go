package main

import (
	"fmt"
	"time"

	"r3slice/internal/config"
	"r3slice/internal/grass"
	"r3slice/internal/ledger"
	"r3slice/internal/logging"
	"r3slice/internal/slice"
	"r3slice/internal/tactile"
)

// app wires config into an executor, a GRASS engine and the optional
// ledger.
type app struct {
	cfg      *config.Config
	executor *tactile.Audited
	engine   *grass.Engine
	ledger   *ledger.Ledger
}

func newApp(cfg *config.Config, overwrite bool) (*app, error) {
	executor, err := newExecutor(cfg)
	if err != nil {
		return nil, err
	}

	rt := &app{
		cfg:      cfg,
		executor: executor,
		engine:   grass.NewEngine(executor, engineOptions(cfg, overwrite)),
	}

	if cfg.Ledger.Enabled {
		l, err := ledger.Open(cfg.Ledger.Path)
		if err != nil {
			return nil, err
		}
		rt.ledger = l
		executor.Auditor().Subscribe(l.AuditCallback())
		logging.BootDebug("ledger at %s", cfg.Ledger.Path)
	}

	return rt, nil
}

// Slicer returns a slicer whose module calls are tagged with runID.
func (rt *app) Slicer(runID string) *slice.Slicer {
	opts := []slice.Option{
		slice.WithTempPrefix(rt.cfg.Grass.TempPrefix),
		slice.WithCleanupTimeout(rt.cfg.GetCleanupTimeout()),
	}
	if rt.ledger != nil {
		opts = append(opts, slice.WithObserver(rt.ledger.Observer()))
	}
	return slice.NewSlicer(rt.engine.WithSession(runID), opts...)
}

func (rt *app) Close() {
	if rt.ledger != nil {
		if err := rt.ledger.Close(); err != nil {
			logging.LedgerWarn("closing ledger: %v", err)
		}
	}
}

// Stats returns the totals of the modules run so far.
func (rt *app) Stats() tactile.Stats {
	return rt.executor.Auditor().Stats()
}

func newExecutor(cfg *config.Config) (*tactile.Audited, error) {
	base, err := tactile.New(executorConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("create %s executor: %w", cfg.Execution.Mode, err)
	}
	logging.BootDebug("running modules with the %s executor", base.Name())

	audited := tactile.NewAudited(base)
	audited.Auditor().Subscribe(func(e tactile.AuditEvent) {
		if e.Type == tactile.AuditEventStart {
			return
		}
		logging.TactileDebug("[%s] %s %s: %s", e.SessionID, e.ExecutorName, e.Type, e.Command.CommandString())
		if e.Result != nil && e.Result.ResourceUsage != nil {
			logging.TactileDebug("[%s] %s used %dms cpu", e.SessionID, e.Command.Binary, e.Result.ResourceUsage.TotalCPUTimeMs())
		}
	})
	return audited, nil
}

func executorConfig(cfg *config.Config) tactile.Config {
	tc := tactile.DefaultConfig()
	tc.DefaultTimeout = cfg.GetExecutionTimeout()
	if tc.MaxTimeout < tc.DefaultTimeout {
		tc.MaxTimeout = tc.DefaultTimeout
	}
	if cfg.Execution.WorkingDirectory != "" {
		tc.WorkingDir = cfg.Execution.WorkingDirectory
	}
	if len(cfg.Execution.AllowedEnvVars) > 0 {
		tc.AllowedEnvironment = cfg.Execution.AllowedEnvVars
	}
	if cfg.Execution.MaxOutputBytes > 0 {
		tc.MaxOutputBytes = cfg.Execution.MaxOutputBytes
	}

	if cfg.Execution.Mode == config.ModeDocker {
		docker := cfg.Execution.Docker
		tc.MaxMemoryBytes = docker.MaxMemoryBytes
		tc.Sandbox = &tactile.SandboxConfig{
			Mode:   tactile.SandboxDocker,
			Image:  docker.Image,
			Mounts: docker.Mounts,
			User:   docker.User,
		}
	}
	return tc
}

// formatStats summarizes module executions for the run report.
func formatStats(st tactile.Stats) string {
	noun := "modules"
	if st.Commands == 1 {
		noun = "module"
	}
	s := fmt.Sprintf("%d GRASS %s in %s", st.Commands, noun, st.Elapsed.Round(time.Millisecond))
	if st.CPU > 0 {
		s += fmt.Sprintf(" (%s cpu)", st.CPU.Round(time.Millisecond))
	}
	if st.Failed > 0 {
		s += fmt.Sprintf(", %d failed", st.Failed)
	}
	if st.Killed > 0 {
		s += fmt.Sprintf(", %d killed", st.Killed)
	}
	return s
}

func engineOptions(cfg *config.Config, overwrite bool) grass.Options {
	var env []string
	if cfg.Grass.GISBase != "" {
		env = append(env, "GISBASE="+cfg.Grass.GISBase)
	}
	if cfg.Grass.GISRC != "" {
		env = append(env, "GISRC="+cfg.Grass.GISRC)
	}

	return grass.Options{
		Launcher:    cfg.Grass.Launcher,
		Environment: env,
		CellType:    cfg.Grass.CellType,
		Overwrite:   overwrite,
		Quiet:       cfg.Grass.Quiet,
		Timeout:     cfg.GetExecutionTimeout(),
	}
}
