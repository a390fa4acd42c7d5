package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexRoundTrip(t *testing.T) {
	f := New3D(4, 5, 6)
	for i := 0; i < f.Len(); i++ {
		c := f.CoordAt(i)
		require.True(t, f.InBounds(c))
		require.Equal(t, i, f.Index(c))
	}
}

func TestEachFollowsScanOrder(t *testing.T) {
	f := New2D(3, 2)
	var got []Coord
	f.Each(func(c Coord, _ Cell) { got = append(got, c) })
	assert.Equal(t, []Coord{{0, 0, 0}, {0, 1, 0}, {1, 0, 0}, {1, 1, 0}, {2, 0, 0}, {2, 1, 0}}, got)
}

func TestIsWallOutOfBounds(t *testing.T) {
	f := New2D(3, 3)
	assert.False(t, f.IsWall(Coord{X: 1, Y: 1}))
	assert.True(t, f.IsWall(Coord{X: -1, Y: 1}))
	assert.True(t, f.IsWall(Coord{X: 1, Y: 3}))
	assert.True(t, f.IsWall(Coord{X: 1, Y: 1, Z: 1}))
}

func TestPad2D(t *testing.T) {
	f := New2D(2, 3)
	p := f.Pad(2)
	require.Equal(t, [3]int{6, 7, 1}, p.Dims())
	p.Each(func(c Coord, v Cell) {
		inner := c.X >= 2 && c.X < 4 && c.Y >= 2 && c.Y < 5
		if inner {
			assert.Equal(t, Open, v, "%v", c)
		} else {
			assert.Equal(t, Wall, v, "%v", c)
		}
	})
}

func TestPad3D(t *testing.T) {
	f := New3D(2, 2, 2)
	p := f.Pad(1)
	require.Equal(t, [3]int{4, 4, 4}, p.Dims())
	assert.Equal(t, 8, p.Count(Open))
	assert.Equal(t, Open, p.Get(Coord{1, 1, 1}))
	assert.Equal(t, Wall, p.Get(Coord{1, 1, 0}))
}

func TestNeighbourhoodSizes(t *testing.T) {
	assert.Len(t, AxisOffsets(2), 4)
	assert.Len(t, AxisOffsets(3), 6)
	assert.Len(t, MooreOffsets(2), 8)
	assert.Len(t, MooreOffsets(3), 26)
	for _, o := range MooreOffsets(2) {
		assert.Zero(t, o.Z)
	}
}

func TestFromCellsValidates(t *testing.T) {
	_, err := FromCells(2, 2, 2, 2, make([]Cell, 8))
	assert.Error(t, err)
	_, err = FromCells(3, 2, 2, 2, make([]Cell, 7))
	assert.Error(t, err)
	f, err := FromCells(3, 2, 2, 2, []Cell{1, 0, 0, 0, 0, 0, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, Wall, f.Get(Coord{0, 0, 0}))
	assert.Equal(t, Wall, f.Get(Coord{1, 1, 1}))
}

func TestDigestTracksContent(t *testing.T) {
	a := New2D(4, 4)
	b := a.Clone()
	assert.Equal(t, a.Digest(), b.Digest())
	assert.True(t, a.Equal(b))
	b.Set(Coord{X: 1, Y: 2}, Wall)
	assert.NotEqual(t, a.Digest(), b.Digest())
	assert.False(t, a.Equal(b))
	assert.NotEqual(t, New2D(2, 8).Digest(), New2D(8, 2).Digest())
}
