package slice

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

type profileCall struct {
	Raster     string
	From, To   Point
	Resolution float64
}

// fakeEngine is an in-memory GRASS location holding flattened layers.
type fakeEngine struct {
	region Region

	// profiles by 1-based level
	profiles map[int][]float64

	rasters  map[string]bool
	grids    map[string]string
	vectors  map[string]string
	tables   []string
	sql      []string
	colors   map[string]string
	sampled  []profileCall
	calls    []string
	failOn   string
	failWith error

	// cancelOn cancels the run context when the named method is entered.
	cancelOn string
	cancel   func()

	// removeBudget is the time left on the context RemoveRasters received.
	removeBudget time.Duration
}

func newFakeEngine(region Region, profiles ...[]float64) *fakeEngine {
	f := &fakeEngine{
		region:   region,
		profiles: make(map[int][]float64),
		rasters:  make(map[string]bool),
		grids:    make(map[string]string),
		vectors:  make(map[string]string),
		colors:   make(map[string]string),
	}
	for i, p := range profiles {
		f.profiles[i+1] = p
	}
	return f
}

func (f *fakeEngine) enter(ctx context.Context, method string) error {
	f.calls = append(f.calls, method)
	if f.cancelOn == method && f.cancel != nil {
		f.cancel()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.failOn == method {
		if f.failWith != nil {
			return f.failWith
		}
		return fmt.Errorf("%s failed", method)
	}
	return nil
}

func (f *fakeEngine) FlattenVolume(ctx context.Context, volume, prefix string) error {
	if err := f.enter(ctx, "FlattenVolume"); err != nil {
		return err
	}
	for level := range f.profiles {
		f.rasters[fmt.Sprintf("%s_%05d", prefix, level)] = true
	}
	return nil
}

func (f *fakeEngine) ListRasters(ctx context.Context, pattern string) ([]string, error) {
	if err := f.enter(ctx, "ListRasters"); err != nil {
		return nil, err
	}
	var names []string
	for name := range f.rasters {
		if matches(pattern, name) {
			names = append(names, name)
		}
	}
	// Reverse order so callers have to sort.
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

func (f *fakeEngine) Region(ctx context.Context) (Region, error) {
	if err := f.enter(ctx, "Region"); err != nil {
		return Region{}, err
	}
	return f.region, nil
}

func (f *fakeEngine) SampleProfile(ctx context.Context, raster string, from, to Point, resolution float64) ([]float64, error) {
	if err := f.enter(ctx, "SampleProfile"); err != nil {
		return nil, err
	}
	f.sampled = append(f.sampled, profileCall{Raster: raster, From: from, To: to, Resolution: resolution})
	if !f.rasters[raster] {
		return nil, fmt.Errorf("raster <%s> not found", raster)
	}
	level, ok := levelSuffix(raster)
	if !ok {
		return nil, fmt.Errorf("unexpected raster name %s", raster)
	}
	return f.profiles[level], nil
}

func (f *fakeEngine) ImportGrid(ctx context.Context, payload, output string) error {
	if err := f.enter(ctx, "ImportGrid"); err != nil {
		return err
	}
	f.grids[output] = payload
	f.rasters[output] = true
	return nil
}

func (f *fakeEngine) CopyColors(ctx context.Context, raster, volume string) error {
	if err := f.enter(ctx, "CopyColors"); err != nil {
		return err
	}
	f.colors[raster] = volume
	return nil
}

func (f *fakeEngine) ImportVector(ctx context.Context, payload, output string) error {
	if err := f.enter(ctx, "ImportVector"); err != nil {
		return err
	}
	f.vectors[output] = payload
	return nil
}

func (f *fakeEngine) AddTable(ctx context.Context, vector string, layer int, columns string) error {
	if err := f.enter(ctx, "AddTable"); err != nil {
		return err
	}
	f.tables = append(f.tables, fmt.Sprintf("%s:%d:%s", vector, layer, columns))
	return nil
}

func (f *fakeEngine) ExecuteSQL(ctx context.Context, sql string) error {
	if err := f.enter(ctx, "ExecuteSQL"); err != nil {
		return err
	}
	f.sql = append(f.sql, sql)
	return nil
}

func (f *fakeEngine) RemoveRasters(ctx context.Context, pattern string) error {
	if deadline, ok := ctx.Deadline(); ok {
		f.removeBudget = time.Until(deadline)
	}
	if err := f.enter(ctx, "RemoveRasters"); err != nil {
		return err
	}
	for name := range f.rasters {
		if matches(pattern, name) {
			delete(f.rasters, name)
		}
	}
	return nil
}

// remaining returns the rasters that match pattern.
func (f *fakeEngine) remaining(pattern string) []string {
	var names []string
	for name := range f.rasters {
		if matches(pattern, name) {
			names = append(names, name)
		}
	}
	return names
}

// matches supports the trailing-wildcard patterns the pipeline uses.
func matches(pattern, name string) bool {
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(name, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == name
}

var nan = math.NaN()

type recordingObserver struct {
	events []string
	err    error
}

func (o *recordingObserver) RunStarted(_ context.Context, run Run) {
	o.events = append(o.events, "started:"+run.Prefix)
}

func (o *recordingObserver) RunImported(_ context.Context, run Run) {
	o.events = append(o.events, "imported:"+run.Output)
}

func (o *recordingObserver) RunFailed(_ context.Context, run Run, err error) {
	o.events = append(o.events, "failed")
	o.err = err
}

func (o *recordingObserver) RunCleaned(_ context.Context, run Run) {
	o.events = append(o.events, "cleaned")
}
