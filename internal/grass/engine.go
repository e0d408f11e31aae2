// Package grass runs GRASS GIS modules through a tactile executor and
// implements slice.Engine on top of them.
package grass

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"r3slice/internal/logging"
	"r3slice/internal/slice"
	"r3slice/internal/tactile"
)

// Options configures an Engine.
type Options struct {
	// Launcher is prepended to every module, e.g. grass <mapset> --exec.
	Launcher []string

	// Environment is added to every module's environment (GISRC, GISBASE).
	Environment []string

	// CellType of imported grids. Defaults to FCELL.
	CellType string

	// Overwrite passes --overwrite to modules that create maps.
	Overwrite bool

	// Quiet passes --quiet to every module.
	Quiet bool

	// Timeout per module. Zero uses the executor default.
	Timeout time.Duration

	// SessionID tags audit events, typically the run id.
	SessionID string
}

// Engine is a slice.Engine backed by GRASS modules.
type Engine struct {
	executor tactile.Executor
	opts     Options
}

var _ slice.Engine = (*Engine)(nil)

// NewEngine creates an engine running modules through executor.
func NewEngine(executor tactile.Executor, opts Options) *Engine {
	if opts.CellType == "" {
		opts.CellType = "FCELL"
	}
	return &Engine{executor: executor, opts: opts}
}

// WithSession returns a copy of the engine whose commands carry sessionID.
func (e *Engine) WithSession(sessionID string) *Engine {
	opts := e.opts
	opts.SessionID = sessionID
	return &Engine{executor: e.executor, opts: opts}
}

// Command builds the executor command for inv.
func (e *Engine) Command(inv Invocation) tactile.Command {
	args := inv.Args(e.opts.Quiet, e.opts.Overwrite)

	cmd := tactile.Command{
		Binary:      inv.Module,
		Arguments:   args,
		Environment: e.opts.Environment,
		Stdin:       inv.Stdin,
		SessionID:   e.opts.SessionID,
	}
	if len(e.opts.Launcher) > 0 {
		cmd.Binary = e.opts.Launcher[0]
		cmd.Arguments = append(append(append([]string{}, e.opts.Launcher[1:]...), inv.Module), args...)
	}
	if e.opts.Timeout > 0 {
		cmd.Limits = &tactile.ResourceLimits{TimeoutMs: e.opts.Timeout.Milliseconds()}
	}
	return cmd
}

// Run executes one module and returns its stdout. A non-zero exit or a
// kill is reported as *ModuleError; cancellation of ctx as ctx.Err().
func (e *Engine) Run(ctx context.Context, inv Invocation) (string, error) {
	cmd := e.Command(inv)
	logging.GrassDebug("running %s", inv)

	result, err := e.executor.Execute(ctx, cmd)
	if err != nil {
		return "", fmt.Errorf("run %s: %w", inv.Module, err)
	}

	switch {
	case result.Killed:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("%s: %w", inv.Module, ctxErr)
		}
		return "", &ModuleError{Module: inv.Module, ExitCode: result.ExitCode, Stderr: result.Stderr, KillReason: result.KillReason}
	case result.IsError():
		return "", fmt.Errorf("run %s: %s", inv.Module, result.Error)
	case result.IsNonZeroExit():
		merr := &ModuleError{Module: inv.Module, ExitCode: result.ExitCode, Stderr: result.Stderr}
		logging.GrassWarn("%v", merr)
		return "", merr
	}

	if result.Truncated {
		return "", fmt.Errorf("%s output exceeded the capture limit (%d bytes dropped)", inv.Module, result.TruncatedBytes)
	}

	logging.GrassDebug("%s finished in %s", inv.Module, result.Duration)
	return result.Stdout, nil
}

func (e *Engine) FlattenVolume(ctx context.Context, volume, prefix string) error {
	_, err := e.Run(ctx, Invocation{
		Module:  "r3.to.rast",
		Params:  []Param{P("input", volume), P("output", prefix)},
		Creates: true,
	})
	return err
}

func (e *Engine) ListRasters(ctx context.Context, pattern string) ([]string, error) {
	out, err := e.Run(ctx, Invocation{
		Module: "g.list",
		Params: []Param{P("type", "raster"), P("pattern", pattern)},
	})
	if err != nil {
		return nil, err
	}
	return ParseList(out), nil
}

func (e *Engine) Region(ctx context.Context) (slice.Region, error) {
	out, err := e.Run(ctx, Invocation{Module: "g.region", Flags: "3g"})
	if err != nil {
		return slice.Region{}, err
	}
	return ParseRegion(out)
}

func (e *Engine) SampleProfile(ctx context.Context, raster string, from, to slice.Point, resolution float64) ([]float64, error) {
	params := []Param{
		P("input", raster),
		P("output", "-"),
		P("coordinates", FormatCoordinates(from, to)),
	}
	if resolution > 0 {
		params = append(params, P("resolution", strconv.FormatFloat(resolution, 'f', -1, 64)))
	}
	out, err := e.Run(ctx, Invocation{Module: "r.profile", Params: params})
	if err != nil {
		return nil, err
	}
	return ParseProfile(out)
}

func (e *Engine) ImportGrid(ctx context.Context, payload, output string) error {
	_, err := e.Run(ctx, Invocation{
		Module:  "r.in.ascii",
		Params:  []Param{P("input", "-"), P("output", output), P("type", strings.ToUpper(e.opts.CellType))},
		Stdin:   payload,
		Creates: true,
	})
	return err
}

func (e *Engine) CopyColors(ctx context.Context, raster, volume string) error {
	_, err := e.Run(ctx, Invocation{
		Module: "r.colors",
		Params: []Param{P("map", raster), P("raster_3d", volume)},
	})
	return err
}

func (e *Engine) ImportVector(ctx context.Context, payload, output string) error {
	_, err := e.Run(ctx, Invocation{
		Module:  "v.in.ascii",
		Flags:   "n",
		Params:  []Param{P("input", "-"), P("output", output), P("format", "standard")},
		Stdin:   payload,
		Creates: true,
	})
	return err
}

func (e *Engine) AddTable(ctx context.Context, vector string, layer int, columns string) error {
	_, err := e.Run(ctx, Invocation{
		Module: "v.db.addtable",
		Params: []Param{P("map", vector), P("layer", layer), P("columns", columns)},
	})
	return err
}

func (e *Engine) ExecuteSQL(ctx context.Context, sql string) error {
	_, err := e.Run(ctx, Invocation{
		Module: "db.execute",
		Params: []Param{P("input", "-")},
		Stdin:  sql,
	})
	return err
}

func (e *Engine) RemoveRasters(ctx context.Context, pattern string) error {
	_, err := e.Run(ctx, Invocation{
		Module: "g.remove",
		Flags:  "f",
		Params: []Param{P("type", "raster"), P("pattern", pattern)},
	})
	return err
}
