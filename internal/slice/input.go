package slice

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Line is the slice line as given by the user.
type Line struct {
	From Point
	To   Point
}

// Normalized returns the line with the westmost point first.
func (l Line) Normalized() Line {
	if l.From.X > l.To.X {
		return Line{From: l.To, To: l.From}
	}
	return l
}

// Degenerate reports whether both points coincide.
func (l Line) Degenerate() bool {
	return l.From == l.To
}

// ParseCoordinates parses "x1,y1,x2,y2". Leading and trailing commas are
// ignored; anything other than four numbers is an ErrInvalidInput.
func ParseCoordinates(s string) (Line, error) {
	parts := strings.Split(strings.Trim(strings.TrimSpace(s), ","), ",")
	if len(parts) != 4 {
		return Line{}, fmt.Errorf("%w: expected 2 coordinates (x1,y1,x2,y2), got %d values", ErrInvalidInput, len(parts))
	}

	values, err := parseFloats(parts, "coordinate")
	if err != nil {
		return Line{}, err
	}

	return Line{
		From: Point{X: values[0], Y: values[1]},
		To:   Point{X: values[2], Y: values[3]},
	}, nil
}

// Offset translates the slice grid by a fraction of its width and height.
type Offset struct {
	X float64
	Y float64
}

// IsZero reports whether the offset leaves the grid in place.
func (o Offset) IsZero() bool {
	return o.X == 0 && o.Y == 0
}

// ParseOffset parses "x,y" given in percent. An empty string means no offset.
func ParseOffset(s string) (Offset, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Offset{}, nil
	}

	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Offset{}, fmt.Errorf("%w: offset needs 2 percentages (x,y), got %d values", ErrInvalidInput, len(parts))
	}

	values, err := parseFloats(parts, "offset")
	if err != nil {
		return Offset{}, err
	}
	return Offset{X: values[0] / 100, Y: values[1] / 100}, nil
}

// Units are the axis label suffixes.
type Units struct {
	Horizontal string
	Vertical   string
}

// ParseUnits parses "unit1,unit2". Anything other than exactly two values
// yields empty units.
func ParseUnits(s string) Units {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Units{}
	}
	return Units{
		Horizontal: strings.TrimSpace(parts[0]),
		Vertical:   strings.TrimSpace(parts[1]),
	}
}

func parseFloats(parts []string, what string) ([]float64, error) {
	values := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: %s %q is not a number", ErrInvalidInput, what, p)
		}
		values[i] = v
	}
	return values, nil
}
