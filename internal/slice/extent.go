package slice

// Extent is the bounding box of the slice grid in output raster space.
type Extent struct {
	North float64
	South float64
	East  float64
	West  float64
}

// BaseExtent anchors a grid of rows x cols cells at south = west = 0.
func BaseExtent(rows, cols int, res, tbres float64) Extent {
	return Extent{
		North: float64(rows) * tbres,
		South: 0,
		East:  float64(cols) * res,
		West:  0,
	}
}

// Width is east - west.
func (e Extent) Width() float64 { return e.East - e.West }

// Height is north - south.
func (e Extent) Height() float64 { return e.North - e.South }

// Translate shifts all four bounds by a fraction of the extent's width and
// height. Width and height are unchanged.
func (e Extent) Translate(off Offset) Extent {
	dx := e.Width() * off.X
	dy := e.Height() * off.Y
	return Extent{
		North: e.North + dy,
		South: e.South + dy,
		East:  e.East + dx,
		West:  e.West + dx,
	}
}
