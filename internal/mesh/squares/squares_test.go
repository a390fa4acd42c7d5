package squares

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zyedidia/generic/mapset"

	"cavecraft.ai/internal/cave/automaton"
	"cavecraft.ai/internal/cave/grid"
	"cavecraft.ai/internal/mesh"
	"cavecraft.ai/internal/sim/rng"
)

func square2x2(walls ...grid.Coord) *grid.Field {
	f := grid.New2D(2, 2)
	for _, c := range walls {
		f.Set(c, grid.Wall)
	}
	return f
}

func TestConfigTableShape(t *testing.T) {
	for cfg, pts := range configPoints {
		if cfg == 0 {
			assert.Empty(t, pts)
			continue
		}
		assert.GreaterOrEqual(t, len(pts), 3, "config %d", cfg)
		assert.LessOrEqual(t, len(pts), 6, "config %d", cfg)
		// Every active corner appears, no inactive corner does.
		weights := map[int]int{topLeft: 8, topRight: 4, bottomRight: 2, bottomLeft: 1}
		got := 0
		for _, p := range pts {
			got += weights[p]
		}
		assert.Equal(t, cfg, got, "config %d", cfg)
	}
}

func TestEmptySquare(t *testing.T) {
	res := Generate(square2x2(), 1, 5)
	assert.Equal(t, 1, res.Configs[0])
	assert.Zero(t, res.Floor.TriangleCount())
	assert.Zero(t, res.Floor.VertexCount())
	assert.Empty(t, res.Outlines)
	assert.True(t, res.Walls.Empty())
}

func TestFullSquare(t *testing.T) {
	f := square2x2(grid.Coord{X: 0, Y: 0}, grid.Coord{X: 1, Y: 0}, grid.Coord{X: 0, Y: 1}, grid.Coord{X: 1, Y: 1})
	m := &mesher{checked: mapset.New[int]()}
	res := Generate(f, 1, 5)
	require.Equal(t, 1, res.Configs[15])
	assert.Equal(t, 2, res.Floor.TriangleCount())
	assert.Equal(t, 4, res.Floor.VertexCount())
	assert.Empty(t, res.Outlines)

	// Same square driven directly so the checked set is observable.
	n := func(x, y float32, active bool) *controlNode {
		return newControlNode(mesh.Vec3{X: x, Z: y}, active, 1)
	}
	m.triangulate(newSquare(n(0, 1, true), n(1, 1, true), n(1, 0, true), n(0, 0, true)))
	for v := 0; v < 4; v++ {
		assert.True(t, m.checked.Has(v), "vertex %d", v)
	}
	assert.Equal(t, 4, m.checked.Size())
}

func TestSingleCornerConfigs(t *testing.T) {
	cases := map[int]grid.Coord{
		8: {X: 0, Y: 1},
		4: {X: 1, Y: 1},
		2: {X: 1, Y: 0},
		1: {X: 0, Y: 0},
	}
	for cfg, c := range cases {
		res := Generate(square2x2(c), 1, 5)
		require.Equal(t, 1, res.Configs[cfg], "config %d", cfg)
		assert.Equal(t, 1, TriangleCount(cfg))
		assert.Equal(t, 1, res.Floor.TriangleCount(), "config %d", cfg)
		require.Len(t, res.Outlines, 1)
		assert.Equal(t, []int{0, 1, 2, 0}, res.Outlines[0])
		assert.Equal(t, 12, res.Walls.VertexCount())
		assert.Equal(t, 6, res.Walls.TriangleCount())
	}
}

func TestTriangleCounts(t *testing.T) {
	want := [16]int{0, 1, 1, 2, 1, 4, 2, 3, 1, 2, 4, 3, 2, 3, 3, 2}
	for cfg, n := range want {
		assert.Equal(t, n, TriangleCount(cfg), "config %d", cfg)
	}
}

func TestVerticesSharedBetweenSquares(t *testing.T) {
	f := grid.New2D(3, 2)
	for i := range f.Cells() {
		f.Cells()[i] = grid.Wall
	}
	res := Generate(f, 1, 5)
	assert.Equal(t, 2, res.Configs[15])
	assert.Equal(t, 6, res.Floor.VertexCount())
	assert.Equal(t, 4, res.Floor.TriangleCount())
}

func TestNodePositionsCentred(t *testing.T) {
	res := Generate(square2x2(grid.Coord{X: 0, Y: 0}), 2, 5)
	// Config 1 emits centre-left, centre-bottom, bottom-left.
	assert.Equal(t, []mesh.Vec3{
		{X: -1, Z: 0},
		{X: 0, Z: -1},
		{X: -1, Z: -1},
	}, res.Floor.Vertices)
}

func caveField(t *testing.T, seed string) *grid.Field {
	t.Helper()
	f := grid.New2D(60, 40)
	automaton.Fill(f, 47, rng.FromString(seed))
	return automaton.SmoothN(f, 4, 4).Pad(2)
}

func TestOutlinesClosedAndWallsMatch(t *testing.T) {
	res := Generate(caveField(t, "outline"), 1, 5)
	require.NotEmpty(t, res.Outlines)
	edges := 0
	for _, o := range res.Outlines {
		require.GreaterOrEqual(t, len(o), 3)
		assert.Equal(t, o[0], o[len(o)-1])
		edges += len(o) - 1
	}
	assert.Equal(t, edges*4, res.Walls.VertexCount())
	assert.Equal(t, edges*2, res.Walls.TriangleCount())
	assert.Same(t, &res.Walls, res.Collider())
	for i, v := range res.Walls.Vertices {
		if i%4 >= 2 {
			assert.Equal(t, float32(-5), v.Y)
		} else {
			assert.Equal(t, float32(0), v.Y)
		}
	}
}

func TestEveryVertexHasTriangles(t *testing.T) {
	f := caveField(t, "adjacency")
	m := &mesher{checked: mapset.New[int]()}
	nodes := make([][]*controlNode, f.Width())
	for i := range nodes {
		nodes[i] = make([]*controlNode, f.Height())
		for j := range nodes[i] {
			nodes[i][j] = newControlNode(mesh.Vec3{X: float32(i), Z: float32(j)}, f.Get(grid.Coord{X: i, Y: j}) == grid.Wall, 1)
		}
	}
	for i := 0; i < f.Width()-1; i++ {
		for j := 0; j < f.Height()-1; j++ {
			m.triangulate(newSquare(nodes[i][j+1], nodes[i+1][j+1], nodes[i+1][j], nodes[i][j]))
		}
	}
	require.Len(t, m.adjacency, m.floor.VertexCount())
	for v, tris := range m.adjacency {
		assert.NotEmpty(t, tris, "vertex %d", v)
	}

	m.traceOutlines()
	for _, o := range m.outlines {
		for _, v := range o {
			assert.True(t, m.checked.Has(v))
		}
	}
}

func TestGenerateIsIdempotent(t *testing.T) {
	f := caveField(t, "idem")
	a := Generate(f, 1, 5)
	b := Generate(f, 1, 5)
	assert.Equal(t, a.Floor, b.Floor)
	assert.Equal(t, a.Walls, b.Walls)
	assert.Equal(t, a.Outlines, b.Outlines)
	assert.Equal(t, a.Configs, b.Configs)
}
