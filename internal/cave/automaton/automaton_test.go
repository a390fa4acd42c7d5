package automaton

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cavecraft.ai/internal/cave/grid"
	"cavecraft.ai/internal/sim/rng"
)

func TestFillForcesBoundary(t *testing.T) {
	for _, f := range []*grid.Field{grid.New2D(12, 9), grid.New3D(6, 7, 5)} {
		Fill(f, 0, rng.FromString("x"))
		f.Each(func(c grid.Coord, v grid.Cell) {
			if f.OnBoundary(c) {
				require.Equal(t, grid.Wall, v, "%v", c)
			} else {
				require.Equal(t, grid.Open, v, "%v", c)
			}
		})
	}
}

func TestFillFullPercent(t *testing.T) {
	f := grid.New2D(10, 10)
	Fill(f, 100, rng.FromString("x"))
	assert.Equal(t, f.Len(), f.Count(grid.Wall))
}

func TestFillDeterministic(t *testing.T) {
	a := grid.New2D(40, 30)
	b := grid.New2D(40, 30)
	Fill(a, 45, rng.FromString("abc"))
	Fill(b, 45, rng.FromString("abc"))
	assert.True(t, a.Equal(b))

	c := grid.New2D(40, 30)
	Fill(c, 45, rng.FromString("abd"))
	assert.False(t, a.Equal(c))
}

func TestSurroundingWallsCountsOutOfBounds(t *testing.T) {
	f := grid.New2D(3, 3)
	assert.Equal(t, 3, SurroundingWalls(f, grid.Coord{X: 0, Y: 1}))
	assert.Equal(t, 5, SurroundingWalls(f, grid.Coord{X: 0, Y: 0}))
	assert.Equal(t, 0, SurroundingWalls(f, grid.Coord{X: 1, Y: 1}))

	f3 := grid.New3D(3, 3, 3)
	assert.Equal(t, 19, SurroundingWalls(f3, grid.Coord{X: 0, Y: 0, Z: 0}))
}

func TestSmoothReadsOnlyPreviousSnapshot(t *testing.T) {
	// A vertical wall bar: an in-place pass would cascade from left to right.
	f := grid.New2D(7, 7)
	for y := 0; y < 7; y++ {
		f.Set(grid.Coord{X: 3, Y: y}, grid.Wall)
	}
	before := f.Clone()
	next := Smooth(f, 4)
	assert.True(t, f.Equal(before), "input mutated")

	expect := before.Clone()
	before.Each(func(c grid.Coord, _ grid.Cell) {
		w := SurroundingWalls(before, c)
		if w > 4 {
			expect.Set(c, grid.Wall)
		} else if w < 4 {
			expect.Set(c, grid.Open)
		}
	})
	assert.True(t, next.Equal(expect))
}

func TestSmoothEqualLimitLeavesCell(t *testing.T) {
	f := grid.New2D(3, 3)
	// Centre has exactly 4 walls around it.
	f.Set(grid.Coord{X: 0, Y: 0}, grid.Wall)
	f.Set(grid.Coord{X: 0, Y: 1}, grid.Wall)
	f.Set(grid.Coord{X: 0, Y: 2}, grid.Wall)
	f.Set(grid.Coord{X: 1, Y: 0}, grid.Wall)
	require.Equal(t, 4, SurroundingWalls(f, grid.Coord{X: 1, Y: 1}))
	next := Smooth(f, 4)
	assert.Equal(t, grid.Open, next.Get(grid.Coord{X: 1, Y: 1}))
	f.Set(grid.Coord{X: 1, Y: 1}, grid.Wall)
	next = Smooth(f, 4)
	assert.Equal(t, grid.Wall, next.Get(grid.Coord{X: 1, Y: 1}))
}

func TestSmoothNZeroIterations(t *testing.T) {
	f := grid.New2D(5, 5)
	assert.Same(t, f, SmoothN(f, 0, 4))
}
