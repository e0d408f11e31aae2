package slice

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// AxesLabelColumns is the attribute table schema of the axes vector.
const AxesLabelColumns = "label varchar(50)"

// SliceLineASCII renders the slice line as a standard-format vector with a
// single line of category 1.
func SliceLineASCII(line Line) string {
	var sb strings.Builder
	sb.WriteString("L 2 1\n")
	writeVertex(&sb, line.From.X, line.From.Y)
	writeVertex(&sb, line.To.X, line.To.Y)
	sb.WriteString("1 1\n")
	return sb.String()
}

// AxesASCII renders the axes frame around a grid extent: a horizontal line
// above the grid and a vertical line to its right, each with its two
// endpoints as points.
//
// Layer 1 carries the label categories: 1 on the horizontal line, 2 and 3 on
// the top and bottom points of the vertical line. Layer 2 numbers the
// remaining features.
func AxesASCII(ext Extent) string {
	top := ext.North + 0.1*ext.Height()
	right := ext.East + 0.05*ext.Width()

	var sb strings.Builder

	sb.WriteString("L 2 1\n")
	writeVertex(&sb, ext.West, top)
	writeVertex(&sb, ext.East, top)
	sb.WriteString("1 1\n")
	writePoint(&sb, ext.West, top, 2, 1)
	writePoint(&sb, ext.East, top, 2, 2)

	sb.WriteString("L 2 1\n")
	writeVertex(&sb, right, ext.North)
	writeVertex(&sb, right, ext.South)
	sb.WriteString("2 3\n")
	writePoint(&sb, right, ext.North, 1, 2)
	writePoint(&sb, right, ext.South, 1, 3)

	return sb.String()
}

// AxisLabels returns the label texts for categories 1, 2 and 3: grid width,
// region top and region bottom, truncated to integers.
func AxisLabels(ext Extent, region Region, units Units) [3]string {
	return [3]string{
		label(ext.Width(), units.Horizontal),
		label(region.Top, units.Vertical),
		label(region.Bottom, units.Vertical),
	}
}

// LabelSQL renders the UPDATE statements that fill the label column of table.
func LabelSQL(table string, labels [3]string) string {
	var sb strings.Builder
	for i, l := range labels {
		fmt.Fprintf(&sb, "UPDATE %s SET label = '%s' WHERE cat = %d;\n",
			table, strings.ReplaceAll(l, "'", "''"), i+1)
	}
	return sb.String()
}

// TableName returns the attribute table name GRASS creates for layer 1 of a
// vector, which is the map name without its mapset.
func TableName(vector string) string {
	if i := strings.IndexByte(vector, '@'); i >= 0 {
		return vector[:i]
	}
	return vector
}

func label(v float64, unit string) string {
	return strconv.FormatInt(int64(math.Trunc(v)), 10) + " " + unit
}

func writeVertex(sb *strings.Builder, x, y float64) {
	sb.WriteString(formatNumber(x))
	sb.WriteByte(' ')
	sb.WriteString(formatNumber(y))
	sb.WriteByte('\n')
}

func writePoint(sb *strings.Builder, x, y float64, layer, cat int) {
	sb.WriteString("P 1 1\n")
	writeVertex(sb, x, y)
	fmt.Fprintf(sb, "%d %d\n", layer, cat)
}
