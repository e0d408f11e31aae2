// Package slice computes a vertical slice of a 3D raster along a line
// between two horizontal points.
//
// The volume is flattened into one temporary 2D raster per depth, each layer
// is profiled along the line and the profiles are stacked into an ASCII grid
// anchored at (0, 0):
//
//	north: 30
//	south: 0
//	east: 50
//	west: 0
//	rows: 3
//	cols: 5
//	<top layer samples>
//	...
//	<bottom layer samples>
//
// The grid is imported as a raster, optionally accompanied by a vector of the
// slice line and a labelled axes frame. Every interaction with GRASS goes
// through Engine, so the pipeline can run against an in-memory fake.
//
// Temporary rasters share a run-scoped prefix and are removed by Scratch on
// every exit path.
package slice
