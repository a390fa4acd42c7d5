package cubes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cavecraft.ai/internal/cave/grid"
	"cavecraft.ai/internal/mesh"
)

func solid(w, h, d int) *grid.Field {
	f := grid.New3D(w, h, d)
	for i := range f.Cells() {
		f.Cells()[i] = grid.Wall
	}
	return f
}

func TestTriTableUsesExactlyTheCutEdges(t *testing.T) {
	for cfg := 0; cfg < 256; cfg++ {
		cut := map[int]bool{}
		for e, ends := range edgeCorners {
			if (cfg>>ends[0])&1 != (cfg>>ends[1])&1 {
				cut[e] = true
			}
		}
		used := map[int]bool{}
		row := triTable[cfg]
		n := 0
		for n < len(row) && row[n] != -1 {
			used[int(row[n])] = true
			n++
		}
		require.Zerof(t, n%3, "config %d has a partial triangle", cfg)
		for _, v := range row[n:] {
			require.EqualValuesf(t, -1, v, "config %d continues after terminator", cfg)
		}
		assert.Equalf(t, cut, used, "config %d", cfg)
	}
}

func TestUniformFieldsProduceNoSurface(t *testing.T) {
	open := Polygonize(grid.New3D(4, 4, 4))
	assert.True(t, open.Empty())
	closed := Polygonize(solid(4, 4, 4))
	assert.True(t, closed.Empty())
}

func TestSingleOpenCellIsEnclosed(t *testing.T) {
	f := solid(3, 3, 3)
	f.Set(grid.Coord{X: 1, Y: 1, Z: 1}, grid.Open)

	m := Polygonize(f)
	require.Equal(t, 8, m.TriangleCount())
	require.Equal(t, 24, m.VertexCount())
	for i, idx := range m.Triangles {
		assert.Equal(t, i, idx)
	}
	lo, hi := m.Bounds()
	assert.Equal(t, float32(0.5), lo.X)
	assert.Equal(t, float32(1.5), hi.X)
	assert.Equal(t, float32(0.5), lo.Z)
	assert.Equal(t, float32(1.5), hi.Z)
}

func TestConfigBitsFollowCornerOrder(t *testing.T) {
	f := grid.New3D(2, 2, 2)
	f.Set(grid.Coord{X: 1, Y: 1, Z: 0}, grid.Wall)
	assert.Equal(t, 1<<2, Config(f, grid.Coord{}))
	f.Set(grid.Coord{X: 0, Y: 1, Z: 1}, grid.Wall)
	assert.Equal(t, 1<<2|1<<7, Config(f, grid.Coord{}))
}

func TestGenerateCentresAndChunks(t *testing.T) {
	f := solid(6, 4, 8)
	for x := 1; x < 5; x++ {
		for y := 1; y < 3; y++ {
			for z := 1; z < 7; z++ {
				f.Set(grid.Coord{X: x, Y: y, Z: z}, grid.Open)
			}
		}
	}
	res := Generate(f, 30)
	require.False(t, res.Surface.Empty())
	assert.Equal(t, float32(-3), res.Surface.Origin.X)
	assert.Equal(t, float32(-2), res.Surface.Origin.Y)
	assert.Equal(t, float32(-4), res.Surface.Origin.Z)

	total := 0
	for _, c := range res.Chunks {
		assert.LessOrEqual(t, c.VertexCount(), 30)
		assert.Equal(t, res.Surface.Origin, c.Origin)
		total += c.TriangleCount()
	}
	assert.Equal(t, res.Surface.TriangleCount(), total)
	assert.Greater(t, len(res.Chunks), 1)
}

func TestGenerateOddDimsUseIntegerHalves(t *testing.T) {
	f := solid(5, 5, 5)
	f.Set(grid.Coord{X: 2, Y: 2, Z: 2}, grid.Open)
	res := Generate(f, 0)
	require.NotEmpty(t, res.Chunks)
	want := mesh.Vec3{X: -2, Y: -2, Z: -2}
	assert.Equal(t, want, res.Surface.Origin)
	for _, c := range res.Chunks {
		assert.Equal(t, want, c.Origin)
	}
}

func TestGenerateDefaultsBudget(t *testing.T) {
	res := Generate(grid.New3D(2, 2, 2), 0)
	assert.Empty(t, res.Chunks)
}
