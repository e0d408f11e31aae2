package slice

import "context"

// Point is a horizontal location in map units.
type Point struct {
	X float64
	Y float64
}

// Region is a snapshot of the active 3D region.
type Region struct {
	North  float64
	South  float64
	East   float64
	West   float64
	Top    float64
	Bottom float64

	NSRes float64
	EWRes float64
	TBRes float64

	Rows   int
	Cols   int
	Depths int
}

// HorizontalRes is the average horizontal cell size, used as the sampling
// step along the slice line.
func (r Region) HorizontalRes() float64 {
	return (r.EWRes + r.NSRes) / 2
}

// Engine is the set of GRASS capabilities the slicer needs.
// Implementations must block until the underlying module has finished.
type Engine interface {
	// FlattenVolume writes one 2D raster per depth of volume, named
	// prefix followed by a zero-padded level suffix.
	FlattenVolume(ctx context.Context, volume, prefix string) error

	// ListRasters returns raster names matching a wildcard pattern.
	ListRasters(ctx context.Context, pattern string) ([]string, error)

	// Region returns the current 3D region.
	Region(ctx context.Context) (Region, error)

	// SampleProfile samples raster along from->to every resolution map units.
	// Null cells are returned as NaN.
	SampleProfile(ctx context.Context, raster string, from, to Point, resolution float64) ([]float64, error)

	// ImportGrid materializes an ASCII grid payload as raster output.
	ImportGrid(ctx context.Context, payload, output string) error

	// CopyColors copies the color table of a 3D raster onto a 2D raster.
	CopyColors(ctx context.Context, raster, volume string) error

	// ImportVector materializes a standard-format vector ASCII payload.
	ImportVector(ctx context.Context, payload, output string) error

	// AddTable attaches a new attribute table to a vector layer.
	AddTable(ctx context.Context, vector string, layer int, columns string) error

	// ExecuteSQL runs statements against the current database driver.
	ExecuteSQL(ctx context.Context, sql string) error

	// RemoveRasters deletes every raster matching a wildcard pattern.
	RemoveRasters(ctx context.Context, pattern string) error
}
