package passage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cavecraft.ai/internal/cave/grid"
	"cavecraft.ai/internal/sim/logic/mathx"
)

func TestLineHorizontal(t *testing.T) {
	got := Line(grid.Coord{X: 1, Y: 2}, grid.Coord{X: 5, Y: 2})
	assert.Equal(t, []grid.Coord{{X: 1, Y: 2}, {X: 2, Y: 2}, {X: 3, Y: 2}, {X: 4, Y: 2}}, got)
}

func TestLineSteepNegative(t *testing.T) {
	got := Line(grid.Coord{X: 0, Y: 0}, grid.Coord{X: -2, Y: -4})
	assert.Equal(t, []grid.Coord{{X: 0, Y: 0}, {X: -1, Y: -1}, {X: -1, Y: -2}, {X: -2, Y: -3}}, got)
}

func TestLineDegenerate(t *testing.T) {
	assert.Empty(t, Line(grid.Coord{X: 3, Y: 3}, grid.Coord{X: 3, Y: 3}))
}

func TestLineStepsAreUnit(t *testing.T) {
	from := grid.Coord{X: 2, Y: 9}
	to := grid.Coord{X: 17, Y: -3}
	line := Line(from, to)
	require.Len(t, line, 15)
	for i := 1; i < len(line); i++ {
		assert.LessOrEqual(t, mathx.AbsInt(line[i].X-line[i-1].X), 1)
		assert.LessOrEqual(t, mathx.AbsInt(line[i].Y-line[i-1].Y), 1)
	}
	last := line[len(line)-1]
	assert.LessOrEqual(t, grid.SqDist(last, to), 2)
}

func TestLineKeepsDepth(t *testing.T) {
	for _, c := range Line(grid.Coord{X: 0, Y: 0, Z: 3}, grid.Coord{X: 6, Y: 2, Z: 9}) {
		assert.Equal(t, 3, c.Z)
	}
}

func TestStampDiscClipped(t *testing.T) {
	f := grid.New2D(10, 10)
	for i := range f.Cells() {
		f.Cells()[i] = grid.Wall
	}
	opened := Stamp(f, grid.Coord{X: 0, Y: 0}, 2)
	// Quarter disc of radius 2 including axes: (0..2, 0..2) with x*x+y*y <= 4.
	assert.Equal(t, 6, opened)
	assert.Equal(t, grid.Open, f.Get(grid.Coord{X: 2, Y: 0}))
	assert.Equal(t, grid.Wall, f.Get(grid.Coord{X: 2, Y: 1}))
	assert.Zero(t, Stamp(f, grid.Coord{X: 0, Y: 0}, 2))
}

func TestStampSphere(t *testing.T) {
	f := grid.New3D(7, 7, 7)
	for i := range f.Cells() {
		f.Cells()[i] = grid.Wall
	}
	opened := Stamp(f, grid.Coord{X: 3, Y: 3, Z: 3}, 1)
	assert.Equal(t, 7, opened)
	assert.Equal(t, grid.Open, f.Get(grid.Coord{X: 3, Y: 3, Z: 4}))
	assert.Equal(t, grid.Wall, f.Get(grid.Coord{X: 4, Y: 4, Z: 3}))
}

func TestCarveOpensCorridor(t *testing.T) {
	f := grid.New2D(30, 12)
	for i := range f.Cells() {
		f.Cells()[i] = grid.Wall
	}
	Carve(f, grid.Coord{X: 3, Y: 5}, grid.Coord{X: 25, Y: 6}, 1)
	for x := 3; x < 25; x++ {
		open := f.Get(grid.Coord{X: x, Y: 5}) == grid.Open || f.Get(grid.Coord{X: x, Y: 6}) == grid.Open
		assert.True(t, open, "column %d closed", x)
	}
}
