package spawn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cavecraft.ai/internal/cave/grid"
	"cavecraft.ai/internal/mesh"
)

func walls(f *grid.Field) *grid.Field {
	for i := range f.Cells() {
		f.Cells()[i] = grid.Wall
	}
	return f
}

func TestFindCentreFirst(t *testing.T) {
	f := grid.New2D(10, 10)
	p, ok := Find(f, 1)
	require.True(t, ok)
	assert.Equal(t, grid.Coord{X: 5, Y: 5}, p.Cell)
	assert.Equal(t, mesh.Vec3{X: 0.5, Z: 0.5}, p.Pos)
}

func TestFindScansUpward(t *testing.T) {
	f := walls(grid.New2D(10, 10))
	f.Set(grid.Coord{X: 2, Y: 2}, grid.Open)
	f.Set(grid.Coord{X: 6, Y: 8}, grid.Open)
	f.Set(grid.Coord{X: 7, Y: 5}, grid.Open)

	p, ok := Find(f, 2)
	require.True(t, ok)
	assert.Equal(t, grid.Coord{X: 6, Y: 8}, p.Cell)
	assert.Equal(t, mesh.Vec3{X: 3, Z: 7}, p.Pos)
}

func TestFindNothingOpen(t *testing.T) {
	f := walls(grid.New2D(6, 6))
	f.Set(grid.Coord{X: 1, Y: 1}, grid.Open)
	_, ok := Find(f, 1)
	assert.False(t, ok)
}

func TestFind3D(t *testing.T) {
	f := walls(grid.New3D(8, 8, 8))
	f.Set(grid.Coord{X: 4, Y: 5, Z: 6}, grid.Open)
	p, ok := Find(f, 1)
	require.True(t, ok)
	assert.Equal(t, grid.Coord{X: 4, Y: 5, Z: 6}, p.Cell)
	assert.Equal(t, mesh.Vec3{X: 0, Y: 1, Z: 2}, p.Pos)
}

func TestFind3DOddDimsMatchChunkOrigin(t *testing.T) {
	f := walls(grid.New3D(5, 5, 5))
	f.Set(grid.Coord{X: 2, Y: 2, Z: 2}, grid.Open)
	p, ok := Find(f, 1)
	require.True(t, ok)
	// Chunks sit at -(dim/2) with integer halves, so the centre cell is the origin.
	assert.Equal(t, mesh.Vec3{}, p.Pos)
}
