package slice

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"r3slice/internal/logging"
)

// DefaultTempPrefix prefixes temporary raster names; the run id follows it.
const DefaultTempPrefix = "r3_to_rast_tmp_"

// Request describes one slice.
type Request struct {
	// Volume is the input 3D raster.
	Volume string

	// Output is the 2D raster to create.
	Output string

	// Line is the slice line in the order the user gave it.
	Line Line

	// SliceLine, if set, names a vector to receive the slice line.
	SliceLine string

	// Axes, if set, names a vector to receive the labelled axes frame.
	Axes  string
	Units Units

	Offset Offset
}

// Validate checks the request without touching the engine.
func (r Request) Validate() error {
	if r.Volume == "" {
		return fmt.Errorf("%w: input volume is required", ErrInvalidInput)
	}
	if r.Output == "" {
		return fmt.Errorf("%w: output raster is required", ErrInvalidInput)
	}
	if r.Line.Degenerate() {
		logging.SliceWarn("slice line endpoints coincide at (%g, %g)", r.Line.From.X, r.Line.From.Y)
	}
	return nil
}

// Run describes a slice run to an Observer.
type Run struct {
	ID     string
	Prefix string
	Volume string
	Output string
}

// Observer is notified as a run progresses. Calls are made synchronously
// from the pipeline.
type Observer interface {
	RunStarted(ctx context.Context, run Run)
	RunImported(ctx context.Context, run Run)
	RunFailed(ctx context.Context, run Run, err error)
	RunCleaned(ctx context.Context, run Run)
}

type nopObserver struct{}

func (nopObserver) RunStarted(context.Context, Run)       {}
func (nopObserver) RunImported(context.Context, Run)      {}
func (nopObserver) RunFailed(context.Context, Run, error) {}
func (nopObserver) RunCleaned(context.Context, Run)       {}

// Result is what a successful run produced.
type Result struct {
	Run    Run
	Layers []string
	Region Region
	Grid   *Grid
	Labels []string
}

// Slicer runs slice requests against an Engine.
type Slicer struct {
	engine         Engine
	tempPrefix     string
	cleanupTimeout time.Duration
	observer       Observer
}

// Option configures a Slicer.
type Option func(*Slicer)

// WithTempPrefix overrides DefaultTempPrefix.
func WithTempPrefix(prefix string) Option {
	return func(s *Slicer) {
		if prefix != "" {
			s.tempPrefix = prefix
		}
	}
}

// WithCleanupTimeout overrides DefaultCleanupTimeout.
func WithCleanupTimeout(d time.Duration) Option {
	return func(s *Slicer) {
		if d > 0 {
			s.cleanupTimeout = d
		}
	}
}

// WithObserver registers an observer for run progress.
func WithObserver(obs Observer) Option {
	return func(s *Slicer) {
		if obs != nil {
			s.observer = obs
		}
	}
}

// NewSlicer creates a Slicer.
func NewSlicer(engine Engine, opts ...Option) *Slicer {
	s := &Slicer{
		engine:         engine,
		tempPrefix:     DefaultTempPrefix,
		cleanupTimeout: DefaultCleanupTimeout,
		observer:       nopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TempPattern returns the wildcard matching the temporary rasters of runID.
func (s *Slicer) TempPattern(runID string) string {
	return s.tempPrefix + runID + "*"
}

// Run executes a slice request. Temporary rasters are scoped by runID and
// removed before Run returns, whatever the outcome.
func (s *Slicer) Run(ctx context.Context, runID string, req Request) (res *Result, err error) {
	if runID == "" {
		return nil, fmt.Errorf("%w: run id is required", ErrInvalidInput)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	timer := logging.StartTimer(logging.CategorySlice, "slice "+req.Volume)
	defer timer.StopWithInfo()

	run := Run{
		ID:     runID,
		Prefix: s.tempPrefix + runID,
		Volume: req.Volume,
		Output: req.Output,
	}
	s.observer.RunStarted(ctx, run)

	scratch := NewScratch(s.engine, run.Prefix, s.cleanupTimeout)
	defer func() {
		if err != nil {
			s.observer.RunFailed(ctx, run, err)
		}
		if cerr := scratch.Close(ctx); cerr != nil {
			logging.SliceError("cleanup failed: %v", cerr)
			return
		}
		s.observer.RunCleaned(ctx, run)
	}()

	res, err = s.run(ctx, run, scratch, req)
	return res, err
}

func (s *Slicer) run(ctx context.Context, run Run, scratch *Scratch, req Request) (*Result, error) {
	logging.Slice("flattening %s into %s", req.Volume, scratch.Pattern())
	if err := s.engine.FlattenVolume(ctx, req.Volume, scratch.Prefix()); err != nil {
		return nil, fmt.Errorf("flatten volume %s: %w", req.Volume, err)
	}

	layers, err := s.engine.ListRasters(ctx, scratch.Pattern())
	if err != nil {
		return nil, fmt.Errorf("list layers: %w", err)
	}
	if len(layers) == 0 {
		return nil, fmt.Errorf("%s: %w", req.Volume, ErrNoLayers)
	}
	SortLayers(layers)

	region, err := s.engine.Region(ctx)
	if err != nil {
		return nil, fmt.Errorf("read region: %w", err)
	}

	line := req.Line.Normalized()
	res := region.HorizontalRes()
	logging.SliceDebug("sampling %d layers from (%g, %g) to (%g, %g) every %g",
		len(layers), line.From.X, line.From.Y, line.To.X, line.To.Y, res)

	profiles := make([][]float64, 0, len(layers))
	for _, layer := range layers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		profile, err := s.engine.SampleProfile(ctx, layer, line.From, line.To, res)
		if err != nil {
			return nil, fmt.Errorf("sample %s: %w", layer, err)
		}
		profiles = append(profiles, profile)
	}

	grid, err := AssembleGrid(profiles, res, region.TBRes, req.Offset)
	if err != nil {
		return nil, err
	}
	logging.SliceDebug("assembled %dx%d grid, extent n=%g s=%g e=%g w=%g",
		grid.Rows(), grid.Cols(), grid.Extent.North, grid.Extent.South, grid.Extent.East, grid.Extent.West)

	if err := s.engine.ImportGrid(ctx, grid.Payload(), req.Output); err != nil {
		return nil, fmt.Errorf("import %s: %w", req.Output, err)
	}
	if err := s.engine.CopyColors(ctx, req.Output, req.Volume); err != nil {
		return nil, fmt.Errorf("copy colors to %s: %w", req.Output, err)
	}
	s.observer.RunImported(ctx, run)

	result := &Result{
		Run:    run,
		Layers: layers,
		Region: region,
		Grid:   grid,
	}

	if req.SliceLine != "" {
		if err := s.engine.ImportVector(ctx, SliceLineASCII(req.Line), req.SliceLine); err != nil {
			return nil, fmt.Errorf("import slice line %s: %w", req.SliceLine, err)
		}
	}

	if req.Axes != "" {
		labels, err := s.writeAxes(ctx, req, grid.Extent, region)
		if err != nil {
			return nil, err
		}
		result.Labels = labels
	}

	return result, nil
}

func (s *Slicer) writeAxes(ctx context.Context, req Request, ext Extent, region Region) ([]string, error) {
	if err := s.engine.ImportVector(ctx, AxesASCII(ext), req.Axes); err != nil {
		return nil, fmt.Errorf("import axes %s: %w", req.Axes, err)
	}
	if err := s.engine.AddTable(ctx, req.Axes, 1, AxesLabelColumns); err != nil {
		return nil, fmt.Errorf("add table to %s: %w", req.Axes, err)
	}

	labels := AxisLabels(ext, region, req.Units)
	if err := s.engine.ExecuteSQL(ctx, LabelSQL(TableName(req.Axes), labels)); err != nil {
		return nil, fmt.Errorf("label axes %s: %w", req.Axes, err)
	}
	return labels[:], nil
}

// SortLayers orders flattened layer names bottom to top by their numeric
// suffix. Names without one sort lexicographically after those with one.
func SortLayers(layers []string) {
	sort.SliceStable(layers, func(i, j int) bool {
		a, aok := levelSuffix(layers[i])
		b, bok := levelSuffix(layers[j])
		switch {
		case aok && bok && a != b:
			return a < b
		case aok != bok:
			return aok
		default:
			return layers[i] < layers[j]
		}
	})
}

func levelSuffix(name string) (int, bool) {
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	i := strings.LastIndexByte(name, '_')
	if i < 0 || i == len(name)-1 {
		return 0, false
	}
	n, err := strconv.Atoi(name[i+1:])
	if err != nil {
		return 0, false
	}
	return n, true
}

// IsInputError reports whether err was caused by user input.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
