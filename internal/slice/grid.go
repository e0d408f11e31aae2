package slice

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Grid is an assembled slice. Values holds one row per layer, top layer first.
type Grid struct {
	Extent Extent
	Values [][]float64
}

// AssembleGrid stacks per-layer profiles into a grid. Profiles are ordered
// bottom layer first, the order layers are flattened in. Every profile must
// have the same number of samples.
func AssembleGrid(profiles [][]float64, res, tbres float64, off Offset) (*Grid, error) {
	if len(profiles) == 0 {
		return nil, ErrNoLayers
	}

	cols := len(profiles[0])
	if cols == 0 {
		return nil, ErrEmptyProfile
	}

	rows := len(profiles)
	values := make([][]float64, 0, rows)
	for i := rows - 1; i >= 0; i-- {
		if len(profiles[i]) != cols {
			return nil, fmt.Errorf("%w: layer %d has %d samples, expected %d", ErrRaggedProfile, i+1, len(profiles[i]), cols)
		}
		values = append(values, profiles[i])
	}

	return &Grid{
		Extent: BaseExtent(rows, cols, res, tbres).Translate(off),
		Values: values,
	}, nil
}

// Rows returns the number of layers.
func (g *Grid) Rows() int { return len(g.Values) }

// Cols returns the number of samples per layer.
func (g *Grid) Cols() int {
	if len(g.Values) == 0 {
		return 0
	}
	return len(g.Values[0])
}

// Payload renders the grid in the r.in.ascii format. Null cells are written
// as "*".
func (g *Grid) Payload() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "north: %s\n", formatNumber(g.Extent.North))
	fmt.Fprintf(&sb, "south: %s\n", formatNumber(g.Extent.South))
	fmt.Fprintf(&sb, "east: %s\n", formatNumber(g.Extent.East))
	fmt.Fprintf(&sb, "west: %s\n", formatNumber(g.Extent.West))
	fmt.Fprintf(&sb, "rows: %d\n", g.Rows())
	fmt.Fprintf(&sb, "cols: %d\n", g.Cols())

	for _, row := range g.Values {
		for i, v := range row {
			if i > 0 {
				sb.WriteByte(' ')
			}
			if math.IsNaN(v) {
				sb.WriteByte('*')
				continue
			}
			sb.WriteString(formatNumber(v))
		}
		sb.WriteByte('\n')
	}

	return sb.String()
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
