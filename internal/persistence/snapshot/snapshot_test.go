package snapshot

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cavecraft.ai/internal/cave/gen"
	"cavecraft.ai/internal/sim/tuning"
)

func generate(t *testing.T, rank int) *gen.Result {
	t.Helper()
	tn := tuning.Defaults()
	tn.Cave2D.Width, tn.Cave2D.Height = 48, 32
	tn.Cave3D.Width, tn.Cave3D.Height, tn.Cave3D.Depth = 16, 16, 16
	l := logrus.New()
	l.SetOutput(io.Discard)
	res, err := gen.New(tn, l).Generate(context.Background(), rank, gen.Options{Seed: "snap"})
	require.NoError(t, err)
	return res
}

func TestRoundTrip2D(t *testing.T) {
	res := generate(t, 2)
	path := filepath.Join(t.TempDir(), "caves", res.ID+".snap.zst")
	require.NoError(t, WriteSnapshot(path, FromResult(res)))

	got, err := ReadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, Version, got.Header.Version)
	assert.Equal(t, res.ID, got.Header.GenID)
	assert.Equal(t, "snap", got.Header.Seed)
	assert.Equal(t, res.Config, got.Config)
	assert.Equal(t, res.Stats, got.Stats)
	assert.Len(t, got.Rooms, len(res.Graph.Rooms))
	assert.Len(t, got.Links, len(res.Graph.Links))

	f, err := got.Field()
	require.NoError(t, err)
	assert.True(t, f.Equal(res.Padded))

	floor := got.Floor.Mesh()
	assert.Equal(t, res.Floor.Vertices, floor.Vertices)
	assert.Equal(t, res.Floor.Triangles, floor.Triangles)
	walls := got.Walls.Mesh()
	assert.Equal(t, res.Walls.TriangleCount(), walls.TriangleCount())

	if res.Spawn != nil {
		require.NotNil(t, got.Spawn)
		assert.Equal(t, [3]int{res.Spawn.Cell.X, res.Spawn.Cell.Y, 0}, got.Spawn.Cell)
	}

	h, err := ReadHeader(path)
	require.NoError(t, err)
	assert.Equal(t, got.Header, h)
}

func TestRoundTrip3DChunks(t *testing.T) {
	res := generate(t, 3)
	path := filepath.Join(t.TempDir(), "cave3d.snap.zst")
	require.NoError(t, WriteSnapshot(path, FromResult(res)))

	got, err := ReadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Header.Rank)
	require.Len(t, got.Chunks, len(res.Chunks))
	for i, c := range got.Chunks {
		m := c.Mesh()
		assert.Equal(t, res.Chunks[i].Origin, m.Origin)
		assert.Equal(t, res.Chunks[i].TriangleCount(), m.TriangleCount())
	}
	f, err := got.Field()
	require.NoError(t, err)
	assert.Equal(t, res.Padded.Dims(), f.Dims())
}

func TestFieldDetectsTampering(t *testing.T) {
	snap := FromResult(generate(t, 2))
	snap.Cells[0] ^= 1
	_, err := snap.Field()
	assert.ErrorIs(t, err, ErrDigestMismatch)
}

func TestDigestFile(t *testing.T) {
	dir := t.TempDir()
	a, b := filepath.Join(dir, "a.zst"), filepath.Join(dir, "b.zst")
	require.NoError(t, WriteSnapshot(a, FromResult(generate(t, 2))))
	require.NoError(t, WriteSnapshot(b, FromResult(generate(t, 3))))
	da, err := DigestFile(a)
	require.NoError(t, err)
	db, err := DigestFile(b)
	require.NoError(t, err)
	assert.Len(t, da, 64)
	assert.NotEqual(t, da, db)
}

func TestReadMissing(t *testing.T) {
	_, err := ReadSnapshot(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
