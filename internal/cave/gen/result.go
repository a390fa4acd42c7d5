package gen

import (
	"time"

	"cavecraft.ai/internal/cave/grid"
	"cavecraft.ai/internal/cave/rooms"
	"cavecraft.ai/internal/cave/spawn"
	"cavecraft.ai/internal/mesh"
	"cavecraft.ai/internal/sim/tuning"
)

type Result struct {
	ID        string
	CreatedAt time.Time
	Rank      int
	// Seed is the effective seed, including one drawn from the clock.
	Seed   string
	Config tuning.Cave

	// Field is the carved field before padding.
	Field  *grid.Field
	Padded *grid.Field
	Graph  *rooms.Graph

	// Floor is the marching-squares floor in 2D and the full surface in 3D.
	Floor    mesh.Mesh
	Walls    mesh.Mesh
	Outlines [][]int
	Chunks   []mesh.Mesh

	// Spawn is nil when the scan found no open cell.
	Spawn *spawn.Point
	Stats Stats
}

type Stats struct {
	Rooms       int     `json:"rooms"`
	Links       int     `json:"links"`
	CarvedCells int     `json:"carved_cells"`
	OpenCells   int     `json:"open_cells"`
	WallCells   int     `json:"wall_cells"`
	Vertices    int     `json:"vertices"`
	Triangles   int     `json:"triangles"`
	Chunks      int     `json:"chunks"`
	Configs     [16]int `json:"configs"`
}

// Colliders are the meshes a physics host builds collision from: the wall
// mesh in 2D, every chunk in 3D.
func (r *Result) Colliders() []mesh.Mesh {
	if r.Rank == 3 {
		return r.Chunks
	}
	if r.Walls.Empty() {
		return nil
	}
	return []mesh.Mesh{r.Walls}
}

// Meshes are the renderable pieces: floor and walls in 2D, chunks in 3D.
func (r *Result) Meshes() []mesh.Mesh {
	if r.Rank == 3 {
		return r.Chunks
	}
	var out []mesh.Mesh
	if !r.Floor.Empty() {
		out = append(out, r.Floor)
	}
	if !r.Walls.Empty() {
		out = append(out, r.Walls)
	}
	return out
}
