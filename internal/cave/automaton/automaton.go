// Package automaton fills and smooths occupancy fields.
package automaton

import (
	"cavecraft.ai/internal/cave/grid"
	"cavecraft.ai/internal/sim/rng"
)

// Fill sets every boundary cell to wall and every interior cell to wall with
// probability wallPercent/100. One draw per interior cell, in scan order.
func Fill(f *grid.Field, wallPercent int, r *rng.Rand) {
	f.Each(func(c grid.Coord, _ grid.Cell) {
		if f.OnBoundary(c) {
			f.Set(c, grid.Wall)
			return
		}
		if r.Intn(100) < wallPercent {
			f.Set(c, grid.Wall)
		} else {
			f.Set(c, grid.Open)
		}
	})
}

// SurroundingWalls counts walls in the Moore neighbourhood of c. Neighbours
// outside the field count as walls.
func SurroundingWalls(f *grid.Field, c grid.Coord) int {
	n := 0
	for _, o := range grid.MooreOffsets(f.Rank()) {
		if f.IsWall(c.Add(o)) {
			n++
		}
	}
	return n
}

// Smooth runs one majority-rule pass. The result is computed entirely from f;
// f itself is never written.
func Smooth(f *grid.Field, limit int) *grid.Field {
	next := f.Clone()
	f.Each(func(c grid.Coord, _ grid.Cell) {
		walls := SurroundingWalls(f, c)
		switch {
		case walls > limit:
			next.Set(c, grid.Wall)
		case walls < limit:
			next.Set(c, grid.Open)
		}
	})
	return next
}

// SmoothN swaps in each pass only after it completes.
func SmoothN(f *grid.Field, iterations, limit int) *grid.Field {
	for i := 0; i < iterations; i++ {
		f = Smooth(f, limit)
	}
	return f
}
