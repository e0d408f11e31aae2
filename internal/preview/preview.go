// Package preview renders an assembled slice grid as a heatmap image.
package preview

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"r3slice/internal/logging"
	"r3slice/internal/slice"
)

// ErrNoData is returned when every cell of the grid is null.
var ErrNoData = errors.New("grid has no non-null cells")

// Options controls the rendered image.
type Options struct {
	Title  string
	Width  vg.Length
	Height vg.Length

	// Colors is the palette size.
	Colors int
}

// DefaultOptions returns a 10x4 inch image with a 64 step heat palette.
func DefaultOptions() Options {
	return Options{
		Width:  10 * vg.Inch,
		Height: 4 * vg.Inch,
		Colors: 64,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	if o.Colors <= 1 {
		o.Colors = d.Colors
	}
	return o
}

// Render builds a heatmap plot of grid.
func Render(grid *slice.Grid, opts Options) (*plot.Plot, error) {
	opts = opts.withDefaults()

	g, err := NewGridXYZ(grid)
	if err != nil {
		return nil, err
	}

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = "Distance along slice"
	p.Y.Label.Text = "Height"

	hm := plotter.NewHeatMap(g, palette.Heat(opts.Colors, 1))
	hm.Min, hm.Max = g.Min(), g.Max()
	hm.NaN = color.Transparent
	p.Add(hm)

	p.X.Min, p.X.Max = grid.Extent.West, grid.Extent.East
	p.Y.Min, p.Y.Max = grid.Extent.South, grid.Extent.North

	return p, nil
}

// Save renders grid to path. The format follows the file extension
// (png, svg, pdf, ...).
func Save(grid *slice.Grid, path string, opts Options) error {
	opts = opts.withDefaults()

	timer := logging.StartTimer(logging.CategoryPreview, "render preview")
	defer timer.Stop()

	p, err := Render(grid, opts)
	if err != nil {
		return err
	}
	if err := p.Save(opts.Width, opts.Height, path); err != nil {
		return fmt.Errorf("save preview %s: %w", path, err)
	}
	logging.PreviewDebug("wrote %dx%d preview to %s", grid.Cols(), grid.Rows(), path)
	return nil
}

// Write renders grid in format ("png", "svg", ...) to w.
func Write(w io.Writer, grid *slice.Grid, format string, opts Options) error {
	opts = opts.withDefaults()

	p, err := Render(grid, opts)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(opts.Width, opts.Height, format)
	if err != nil {
		return fmt.Errorf("preview format %s: %w", format, err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write preview: %w", err)
	}
	return nil
}

// GridXYZ exposes a slice grid as a plotter.GridXYZ. Row 0 is the bottom
// layer and cell centres are placed inside the grid extent.
type GridXYZ struct {
	grid     *slice.Grid
	min, max float64
}

var _ plotter.GridXYZ = (*GridXYZ)(nil)

// NewGridXYZ wraps grid. It fails with ErrNoData when all cells are null.
func NewGridXYZ(grid *slice.Grid) (*GridXYZ, error) {
	if grid == nil || grid.Rows() == 0 || grid.Cols() == 0 {
		return nil, ErrNoData
	}

	min, max := math.Inf(1), math.Inf(-1)
	for _, row := range grid.Values {
		for _, v := range row {
			if math.IsNaN(v) {
				continue
			}
			min = math.Min(min, v)
			max = math.Max(max, v)
		}
	}
	if math.IsInf(min, 1) {
		return nil, ErrNoData
	}
	if min == max {
		// A flat grid still needs a non-empty colour range.
		max = min + 1
	}
	return &GridXYZ{grid: grid, min: min, max: max}, nil
}

func (g *GridXYZ) Dims() (c, r int) { return g.grid.Cols(), g.grid.Rows() }

func (g *GridXYZ) Z(c, r int) float64 {
	return g.grid.Values[g.grid.Rows()-1-r][c]
}

func (g *GridXYZ) X(c int) float64 {
	ext := g.grid.Extent
	return ext.West + (float64(c)+0.5)*ext.Width()/float64(g.grid.Cols())
}

func (g *GridXYZ) Y(r int) float64 {
	ext := g.grid.Extent
	return ext.South + (float64(r)+0.5)*ext.Height()/float64(g.grid.Rows())
}

// Min and Max bound the colour scale.
func (g *GridXYZ) Min() float64 { return g.min }
func (g *GridXYZ) Max() float64 { return g.max }
