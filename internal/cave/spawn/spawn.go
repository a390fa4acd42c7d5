// Package spawn finds where a player placeholder can be dropped into a
// finished cave.
package spawn

import (
	"cavecraft.ai/internal/cave/grid"
	"cavecraft.ai/internal/mesh"
)

type Point struct {
	Cell grid.Coord
	Pos  mesh.Vec3
}

// Find scans the padded field from its centre towards the far corner (x
// outer, then y, then z) and returns the first open cell. 2D positions use
// the marching-squares layout for squareSize; 3D positions are in cell units
// relative to the centred chunk origin.
func Find(f *grid.Field, squareSize float32) (Point, bool) {
	w, h, d := f.Width(), f.Height(), f.Depth()
	for x := w / 2; x < w; x++ {
		for y := h / 2; y < h; y++ {
			for z := d / 2; z < d; z++ {
				c := grid.Coord{X: x, Y: y, Z: z}
				if f.Get(c) != grid.Open {
					continue
				}
				return Point{Cell: c, Pos: Position(f, c, squareSize)}, true
			}
		}
	}
	return Point{}, false
}

// Position maps a cell of f into mesh space.
func Position(f *grid.Field, c grid.Coord, squareSize float32) mesh.Vec3 {
	if f.Rank() == 2 {
		mapW := float32(f.Width()) * squareSize
		mapH := float32(f.Height()) * squareSize
		return mesh.Vec3{
			X: -mapW/2 + float32(c.X)*squareSize + squareSize/2,
			Z: -mapH/2 + float32(c.Y)*squareSize + squareSize/2,
		}
	}
	return mesh.Vec3{
		X: -float32(f.Width()/2) + float32(c.X),
		Y: -float32(f.Height()/2) + float32(c.Y),
		Z: -float32(f.Depth()/2) + float32(c.Z),
	}
}
