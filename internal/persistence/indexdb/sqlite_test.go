package indexdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cavecraft.ai/internal/persistence/snapshot"
	"cavecraft.ai/internal/sim/catalogs"
	"cavecraft.ai/internal/sim/tuning"
)

func caveSnap(id, createdAt string, rooms int) snapshot.CaveV1 {
	snap := snapshot.CaveV1{
		Header: snapshot.Header{Version: 1, GenID: id, Rank: 2, Seed: "abc", CreatedAt: createdAt, FieldDigest: "d-" + id},
		Dims:   [3]int{20, 12, 1},
		Spawn:  &snapshot.SpawnV1{Cell: [3]int{10, 6, 0}},
	}
	for i := 0; i < rooms; i++ {
		r := snapshot.RoomV1{ID: i, Size: 100 - i, EdgeTiles: 10, Main: i == 0, Accessible: true}
		if i > 0 {
			r.Connected = []int{0}
			snap.Links = append(snap.Links, snapshot.LinkV1{A: i, B: 0, TileA: [3]int{i, 1, 0}, TileB: [3]int{0, 1, 0}})
		}
		snap.Rooms = append(snap.Rooms, r)
	}
	snap.Stats.CarvedCells = 7
	return snap
}

func openTemp(t *testing.T) *SQLiteIndex {
	t.Helper()
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "index", "generations.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestRecordAndQueryGenerations(t *testing.T) {
	idx := openTemp(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	idx.RecordGeneration("snaps/g1.snap.zst", caveSnap("g1", "2024-05-01T10:00:00Z", 3))
	idx.RecordGeneration("", caveSnap("g2", "2024-05-01T11:00:00Z", 1))
	require.NoError(t, idx.Flush(ctx))

	got, err := idx.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "g2", got[0].GenID)
	assert.Equal(t, "g1", got[1].GenID)
	assert.Equal(t, 3, got[1].Rooms)
	assert.Equal(t, 2, got[1].Links)
	assert.Equal(t, 7, got[1].CarvedCells)
	assert.Equal(t, [3]int{20, 12, 1}, got[1].Dims)
	assert.Equal(t, "snaps/g1.snap.zst", got[1].SnapshotPath)
	assert.Empty(t, got[0].SnapshotPath)
	require.NotNil(t, got[1].Spawn)
	assert.Equal(t, [3]int{10, 6, 0}, *got[1].Spawn)

	rooms, err := idx.Rooms(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, rooms, 3)
	assert.True(t, rooms[0].Main)
	assert.Equal(t, []int{0}, rooms[2].Connected)

	one, err := idx.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)
}

func TestUpsertCatalogs(t *testing.T) {
	idx := openTemp(t)
	configDir := filepath.Join("..", "..", "..", "configs")
	cats, err := catalogs.Load(configDir)
	require.NoError(t, err)
	require.NoError(t, idx.UpsertCatalogs(configDir, cats, tuning.Defaults()))

	var digest string
	require.NoError(t, idx.db.QueryRow(`SELECT digest FROM catalogs WHERE name='placeholders'`).Scan(&digest))
	assert.Equal(t, cats.Placeholders.Digest, digest)

	var n int
	require.NoError(t, idx.db.QueryRow(`SELECT COUNT(*) FROM catalogs WHERE name='tuning'`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestQueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqGeneration}

	s.RecordGeneration("", caveSnap("g", "t", 1))
	err := s.Flush(context.Background())
	require.Error(t, err)

	st := s.Stats()
	assert.Equal(t, uint64(1), st.DropGenerationTotal)
	assert.Equal(t, uint64(1), st.DropFlushTotal)
	assert.Equal(t, 1, st.QueueDepth)
	assert.Equal(t, 1, st.QueueCapacity)
}

func TestClosedIndexIgnoresWrites(t *testing.T) {
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "x.sqlite"))
	require.NoError(t, err)
	require.NoError(t, idx.Close())
	idx.RecordGeneration("", caveSnap("late", "t", 1))
	assert.NoError(t, idx.Flush(context.Background()))
	assert.NoError(t, idx.Close())
}
