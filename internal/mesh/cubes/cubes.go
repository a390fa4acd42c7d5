// Package cubes extracts the 3D cave surface with marching cubes.
package cubes

import (
	"cavecraft.ai/internal/cave/grid"
	"cavecraft.ai/internal/mesh"
)

// DefaultMaxVertices is the per-chunk vertex budget hosts commonly accept.
const DefaultMaxVertices = 60000

// Config returns the case index of the cube whose minimum corner is c.
// Bit i is set when corner i is a wall.
func Config(f *grid.Field, c grid.Coord) int {
	cfg := 0
	for i, off := range cornerOffsets {
		if f.Get(c.Add(off)) == grid.Wall {
			cfg |= 1 << i
		}
	}
	return cfg
}

// Polygonize walks every cube of f and emits an unindexed triangle soup in
// cell units with vertices on edge midpoints. Triangle k uses vertices
// 3k, 3k+1, 3k+2.
func Polygonize(f *grid.Field) mesh.Mesh {
	var m mesh.Mesh
	w, h, d := f.Width(), f.Height(), f.Depth()
	for x := 0; x < w-1; x++ {
		for y := 0; y < h-1; y++ {
			for z := 0; z < d-1; z++ {
				c := grid.Coord{X: x, Y: y, Z: z}
				row := triTable[Config(f, c)]
				for k := 0; k+2 < len(row) && row[k] != -1; k += 3 {
					a := m.AddVertex(edgeMidpoint(c, int(row[k])))
					b := m.AddVertex(edgeMidpoint(c, int(row[k+1])))
					v := m.AddVertex(edgeMidpoint(c, int(row[k+2])))
					m.AddTriangle(a, b, v)
				}
			}
		}
	}
	return m
}

func edgeMidpoint(c grid.Coord, edge int) mesh.Vec3 {
	a := c.Add(cornerOffsets[edgeCorners[edge][0]])
	b := c.Add(cornerOffsets[edgeCorners[edge][1]])
	return mesh.Vec3{
		X: float32(a.X+b.X) / 2,
		Y: float32(a.Y+b.Y) / 2,
		Z: float32(a.Z+b.Z) / 2,
	}
}

// Result is the full surface plus its host-sized chunks.
type Result struct {
	Surface mesh.Mesh
	Chunks  []mesh.Mesh
}

// Generate polygonizes f, centres it on the origin (integer halves of the
// dims) and splits the surface into chunks of at most maxVertices vertices.
func Generate(f *grid.Field, maxVertices int) *Result {
	if maxVertices <= 0 {
		maxVertices = DefaultMaxVertices
	}
	surface := Polygonize(f)
	surface.Origin = mesh.Vec3{
		X: -float32(f.Width() / 2),
		Y: -float32(f.Height() / 2),
		Z: -float32(f.Depth() / 2),
	}
	return &Result{Surface: surface, Chunks: mesh.Split(surface, maxVertices)}
}
