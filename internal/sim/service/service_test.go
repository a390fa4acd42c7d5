package service

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cavecraft.ai/internal/persistence/indexdb"
	"cavecraft.ai/internal/persistence/snapshot"
	"cavecraft.ai/internal/sim/catalogs"
	"cavecraft.ai/internal/sim/scene"
	"cavecraft.ai/internal/sim/tuning"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testCatalogs() *catalogs.Catalogs {
	def := catalogs.PlaceholderDef{ID: "capsule_player", Kind: "CAPSULE", Radius: 0.5, Height: 2}
	return &catalogs.Catalogs{Placeholders: catalogs.PlaceholderCatalog{
		Palette: []string{def.ID},
		Defs:    map[string]catalogs.PlaceholderDef{def.ID: def},
		Digest:  "digest",
	}}
}

func testTuning(t *testing.T) tuning.Tuning {
	dir := t.TempDir()
	tu := tuning.Defaults()
	tu.Cave2D.Width, tu.Cave2D.Height = 64, 40
	tu.Cave3D.Width, tu.Cave3D.Height, tu.Cave3D.Depth = 16, 16, 16
	tu.Output.SnapshotDir = filepath.Join(dir, "snapshots")
	tu.Output.LogDir = filepath.Join(dir, "logs")
	tu.Output.ArchiveDir = filepath.Join(dir, "archives")
	tu.Output.IndexPath = filepath.Join(dir, "index", "generations.sqlite")
	return tu
}

type recordingMirror struct {
	mu    sync.Mutex
	paths []string
}

func (m *recordingMirror) Enqueue(p string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths = append(m.paths, p)
}

func newService(t *testing.T, cfg Config) *Service {
	t.Helper()
	if cfg.Catalogs == nil {
		cfg.Catalogs = testCatalogs()
	}
	cfg.Logger = quietLogger()
	s, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRegenerateAppliesSceneAndPersists(t *testing.T) {
	tu := testTuning(t)
	idx, err := indexdb.OpenSQLite(tu.Output.IndexPath)
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	host := scene.NewMemoryHost()
	mirror := &recordingMirror{}
	s := newService(t, Config{Tuning: tu, Host: host, Index: idx, Mirror: mirror, WriteSnapshots: true})

	out, err := s.Regenerate(context.Background(), Request{Rank: 2, Seed: "alpha"})
	require.NoError(t, err)
	require.NotNil(t, out.Result.Spawn)
	assert.Equal(t, "alpha", out.Result.Seed)
	assert.Same(t, out, s.Current())

	assert.Equal(t, 1, host.Count(scene.KindPlaceholder))
	ph, ok := host.Get(s.Stage().Placeholder())
	require.True(t, ok)
	assert.Equal(t, out.Result.Spawn.Pos, ph.Position)
	assert.Equal(t, "capsule_player", ph.Template.ID)

	require.FileExists(t, out.Snapshot)
	snap, err := snapshot.ReadSnapshot(out.Snapshot)
	require.NoError(t, err)
	assert.Equal(t, out.Result.ID, snap.Header.GenID)
	assert.Equal(t, []string{out.Snapshot}, mirror.paths)

	logs, err := filepath.Glob(filepath.Join(tu.Output.LogDir, "generations", "*.jsonl.zst"))
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	require.NoError(t, idx.Flush(context.Background()))
	recent, err := idx.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, out.Result.ID, recent[0].GenID)
	assert.Equal(t, out.Snapshot, recent[0].SnapshotPath)
}

func TestRegenerateReleasesPreviousCave(t *testing.T) {
	host := scene.NewMemoryHost()
	s := newService(t, Config{Tuning: testTuning(t), Host: host, DisableLog: true})

	first, err := s.Regenerate(context.Background(), Request{Rank: 2, Seed: "one"})
	require.NoError(t, err)
	firstPlaceholder := s.Stage().Placeholder()

	second, err := s.Regenerate(context.Background(), Request{Rank: 3, Seed: "two"})
	require.NoError(t, err)
	assert.NotEqual(t, first.Result.ID, second.Result.ID)

	_, ok := host.Get(firstPlaceholder)
	assert.False(t, ok)
	assert.LessOrEqual(t, host.Count(scene.KindPlaceholder), 1)
	assert.Equal(t, len(second.Result.Chunks), host.Count(scene.KindCollider))
	assert.Empty(t, second.Snapshot)
}

func TestTryRegenerateReportsBusy(t *testing.T) {
	s := newService(t, Config{Tuning: testTuning(t), DisableLog: true})

	s.rebuild.Lock()
	_, err := s.TryRegenerate(context.Background(), Request{Rank: 2})
	s.rebuild.Unlock()
	assert.ErrorIs(t, err, ErrBusy)

	_, err = s.TryRegenerate(context.Background(), Request{Rank: 2})
	assert.NoError(t, err)
}

func TestRegenerateIgnoresCallerCancellation(t *testing.T) {
	host := scene.NewMemoryHost()
	s := newService(t, Config{Tuning: testTuning(t), Host: host, DisableLog: true})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err := s.Regenerate(ctx, Request{Rank: 3, Seed: "gone"})
	require.NoError(t, err)
	assert.Same(t, out, s.Current())
	assert.Equal(t, len(out.Result.Chunks), host.Count(scene.KindCollider))
}

func TestConcurrentRegenerateIsSerialized(t *testing.T) {
	host := scene.NewMemoryHost()
	s := newService(t, Config{Tuning: testTuning(t), Host: host, DisableLog: true})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Regenerate(context.Background(), Request{Rank: 2, UseRandomSeed: true})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, host.Count(scene.KindPlaceholder), 1)
	assert.Len(t, host.Objects(), len(s.Stage().Meshes())+len(s.Stage().Colliders())+host.Count(scene.KindPlaceholder))
}

func TestPin(t *testing.T) {
	s := newService(t, Config{Tuning: testTuning(t), DisableLog: true})
	_, err := s.Regenerate(context.Background(), Request{Rank: 2, Pin: true})
	assert.ErrorIs(t, err, ErrPinWithoutSnapshot)

	tu := testTuning(t)
	s = newService(t, Config{Tuning: tu, DisableLog: true, WriteSnapshots: true})
	out, err := s.Regenerate(context.Background(), Request{Rank: 2, Seed: "keep me", Pin: true})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tu.Output.ArchiveDir, "2d", "keep_me", filepath.Base(out.Snapshot)), out.Pinned)
	_, err = os.Stat(out.Pinned)
	assert.NoError(t, err)
}

func TestInvalidRequestKeepsCurrent(t *testing.T) {
	s := newService(t, Config{Tuning: testTuning(t), DisableLog: true})
	out, err := s.Regenerate(context.Background(), Request{Rank: 2})
	require.NoError(t, err)

	_, err = s.Regenerate(context.Background(), Request{Rank: 5})
	assert.ErrorIs(t, err, tuning.ErrInvalidConfig)
	assert.Same(t, out, s.Current())
}

func TestNewRejectsUnknownPlaceholder(t *testing.T) {
	tu := testTuning(t)
	tu.Output.Placeholder = "ghost"
	_, err := New(Config{Tuning: tu, Catalogs: testCatalogs(), Logger: quietLogger()})
	assert.Error(t, err)

	_, err = New(Config{Tuning: tu, Logger: quietLogger()})
	assert.Error(t, err)
}
