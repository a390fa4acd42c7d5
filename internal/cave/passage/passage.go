// Package passage carves corridors between rooms.
package passage

import (
	"cavecraft.ai/internal/cave/grid"
	"cavecraft.ai/internal/sim/logic/mathx"
)

// DefaultRadius is the corridor radius stamped along a passage line.
const DefaultRadius = 5

// Line rasterizes from -> to with an integer gradient accumulator. The
// endpoint itself is not included.
//
// Only X and Y are stepped; Z stays at from.Z for the whole line, so 3D
// passages run on a constant-depth plane. Kept as-is because changing it
// changes every generated 3D cave.
func Line(from, to grid.Coord) []grid.Coord {
	x, y, z := from.X, from.Y, from.Z
	dx := to.X - from.X
	dy := to.Y - from.Y

	inverted := false
	step := mathx.Sign(dx)
	gradientStep := mathx.Sign(dy)
	longest := mathx.AbsInt(dx)
	shortest := mathx.AbsInt(dy)
	if longest < shortest {
		inverted = true
		longest, shortest = shortest, longest
		step, gradientStep = gradientStep, step
	}

	line := make([]grid.Coord, 0, longest)
	acc := longest / 2
	for i := 0; i < longest; i++ {
		line = append(line, grid.Coord{X: x, Y: y, Z: z})
		if inverted {
			y += step
		} else {
			x += step
		}
		acc += shortest
		if acc >= longest {
			if inverted {
				x += gradientStep
			} else {
				y += gradientStep
			}
			acc -= longest
		}
	}
	return line
}

// Stamp opens every in-bounds cell within radius of c: a disc in 2D, a sphere
// in 3D. Returns how many cells changed.
func Stamp(f *grid.Field, c grid.Coord, radius int) int {
	zr := 0
	if f.Rank() == 3 {
		zr = radius
	}
	r2 := radius * radius
	opened := 0
	for x := -radius; x <= radius; x++ {
		for y := -radius; y <= radius; y++ {
			for z := -zr; z <= zr; z++ {
				if x*x+y*y+z*z > r2 {
					continue
				}
				p := grid.Coord{X: c.X + x, Y: c.Y + y, Z: c.Z + z}
				if !f.InBounds(p) || f.Get(p) == grid.Open {
					continue
				}
				f.Set(p, grid.Open)
				opened++
			}
		}
	}
	return opened
}

// Carve stamps along the line from a to b.
func Carve(f *grid.Field, a, b grid.Coord, radius int) int {
	opened := 0
	for _, c := range Line(a, b) {
		opened += Stamp(f, c, radius)
	}
	return opened
}
