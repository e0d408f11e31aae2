package grass

import (
	"math"
	"strconv"
	"strings"

	"r3slice/internal/slice"
)

// NullValue is how r.profile and r.in.ascii spell a null cell.
const NullValue = "*"

// ParseKeyValues parses shell-style key=value output as printed by
// "g.region -g". Lines without '=' are skipped.
func ParseKeyValues(out string) map[string]string {
	kv := make(map[string]string)
	for _, line := range strings.Split(out, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		kv[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return kv
}

// ParseRegion parses "g.region -3 -g" output.
func ParseRegion(out string) (slice.Region, error) {
	kv := ParseKeyValues(out)

	var region slice.Region
	floats := []struct {
		key string
		dst *float64
	}{
		{"n", &region.North},
		{"s", &region.South},
		{"e", &region.East},
		{"w", &region.West},
		{"t", &region.Top},
		{"b", &region.Bottom},
		{"nsres", &region.NSRes},
		{"ewres", &region.EWRes},
		{"tbres", &region.TBRes},
	}
	for _, f := range floats {
		raw, ok := kv[f.key]
		if !ok {
			return slice.Region{}, &ParseError{Module: "g.region", Reason: "missing " + f.key + " (is the 3D region set?)"}
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return slice.Region{}, &ParseError{Module: "g.region", Text: f.key + "=" + raw, Reason: "not a number"}
		}
		*f.dst = v
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"rows", &region.Rows},
		{"cols", &region.Cols},
		{"depths", &region.Depths},
	}
	for _, f := range ints {
		if raw, ok := kv[f.key]; ok {
			if v, err := strconv.Atoi(raw); err == nil {
				*f.dst = v
			}
		}
	}

	if region.TBRes <= 0 || region.NSRes <= 0 || region.EWRes <= 0 {
		return slice.Region{}, &ParseError{Module: "g.region", Reason: "resolutions must be positive"}
	}
	return region, nil
}

// ParseList parses "g.list" output, one map name per line.
func ParseList(out string) []string {
	var names []string
	for _, line := range strings.Split(out, "\n") {
		if name := strings.TrimSpace(line); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// ParseProfile parses "r.profile output=-" lines of the form
// "distance value". Null samples become NaN.
func ParseProfile(out string) ([]float64, error) {
	var values []float64
	for i, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, &ParseError{Module: "r.profile", Line: i + 1, Text: line, Reason: "expected distance and value"}
		}

		if fields[1] == NullValue {
			values = append(values, math.NaN())
			continue
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, &ParseError{Module: "r.profile", Line: i + 1, Text: line, Reason: "value is not a number"}
		}
		values = append(values, v)
	}
	return values, nil
}

// FormatCoordinates renders a line as r.profile's coordinates option.
func FormatCoordinates(from, to slice.Point) string {
	return strings.Join([]string{
		formatFloat(from.X), formatFloat(from.Y),
		formatFloat(to.X), formatFloat(to.Y),
	}, ",")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
