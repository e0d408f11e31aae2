package slice

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseExtent(t *testing.T) {
	for rows := 1; rows <= 4; rows++ {
		for cols := 1; cols <= 6; cols++ {
			ext := BaseExtent(rows, cols, 12.5, 2)
			assert.Equal(t, 0.0, ext.South)
			assert.Equal(t, 0.0, ext.West)
			assert.Equal(t, float64(cols)*12.5, ext.Width())
			assert.Equal(t, float64(rows)*2, ext.Height())
		}
	}
}

func TestExtent_Translate(t *testing.T) {
	base := BaseExtent(3, 5, 10, 10)
	moved := base.Translate(Offset{X: 0.1, Y: 0.2})

	assert.Equal(t, Extent{North: 36, South: 6, East: 55, West: 5}, moved)
	assert.Equal(t, base.Width(), moved.Width())
	assert.Equal(t, base.Height(), moved.Height())

	assert.Equal(t, base, base.Translate(Offset{}))
}

func TestAssembleGrid_RoundTrip(t *testing.T) {
	// bottom layer first
	profiles := [][]float64{
		{1, 2, 3},
		{4, 5, 6},
		{7, 8, 9},
	}

	grid, err := AssembleGrid(profiles, 10, 10, Offset{})
	require.NoError(t, err)

	assert.Equal(t, 3, grid.Rows())
	assert.Equal(t, 3, grid.Cols())

	want := "north: 30\n" +
		"south: 0\n" +
		"east: 30\n" +
		"west: 0\n" +
		"rows: 3\n" +
		"cols: 3\n" +
		"7 8 9\n" +
		"4 5 6\n" +
		"1 2 3\n"
	if diff := cmp.Diff(want, grid.Payload()); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestAssembleGrid_Offset(t *testing.T) {
	profiles := [][]float64{{0.5, 1.25}, {2, 3}}

	grid, err := AssembleGrid(profiles, 2.5, 4, Offset{X: 0.5, Y: 1})
	require.NoError(t, err)

	want := "north: 16\n" +
		"south: 8\n" +
		"east: 7.5\n" +
		"west: 2.5\n" +
		"rows: 2\n" +
		"cols: 2\n" +
		"2 3\n" +
		"0.5 1.25\n"
	if diff := cmp.Diff(want, grid.Payload()); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestGrid_PayloadNulls(t *testing.T) {
	grid, err := AssembleGrid([][]float64{{nan, 1, nan}}, 1, 1, Offset{})
	require.NoError(t, err)
	assert.Contains(t, grid.Payload(), "cols: 3\n* 1 *\n")
}

func TestGrid_PayloadShape(t *testing.T) {
	profiles := make([][]float64, 7)
	for i := range profiles {
		profiles[i] = make([]float64, 11)
	}
	grid, err := AssembleGrid(profiles, 1, 1, Offset{})
	require.NoError(t, err)

	lines := splitLines(grid.Payload())
	require.Len(t, lines, 6+7)
	for _, row := range lines[6:] {
		assert.Len(t, splitFields(row), 11)
	}
}

func TestAssembleGrid_Errors(t *testing.T) {
	_, err := AssembleGrid(nil, 1, 1, Offset{})
	assert.ErrorIs(t, err, ErrNoLayers)

	_, err = AssembleGrid([][]float64{{}, {}}, 1, 1, Offset{})
	assert.ErrorIs(t, err, ErrEmptyProfile)

	_, err = AssembleGrid([][]float64{{1, 2, 3}, {4, 5}, {6, 7, 8}}, 1, 1, Offset{})
	assert.ErrorIs(t, err, ErrRaggedProfile)
	assert.Contains(t, err.Error(), "layer 2 has 2 samples, expected 3")
}
