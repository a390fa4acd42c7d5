package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLines(t *testing.T, path string) []GenerationEntry {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	dec, err := zstd.NewReader(f)
	require.NoError(t, err)
	defer dec.Close()

	var out []GenerationEntry
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var e GenerationEntry
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		out = append(out, e)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestWriterRotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, "generations")
	now := time.Date(2024, 5, 1, 10, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	require.NoError(t, w.Write(GenerationEntry{GenID: "a"}))
	require.NoError(t, w.Write(GenerationEntry{GenID: "b"}))
	now = now.Add(2 * time.Minute)
	require.NoError(t, w.Write(GenerationEntry{GenID: "c"}))
	require.NoError(t, w.Close())

	first := readLines(t, filepath.Join(dir, "generations-2024-05-01-10.jsonl.zst"))
	second := readLines(t, filepath.Join(dir, "generations-2024-05-01-11.jsonl.zst"))
	require.Len(t, first, 2)
	require.Len(t, second, 1)
	assert.Equal(t, "a", first[0].GenID)
	assert.Equal(t, "c", second[0].GenID)
}

func TestGenerationLoggerLayout(t *testing.T) {
	dir := t.TempDir()
	l := NewGenerationLogger(dir)
	spawn := [3]int{4, 5, 0}
	require.NoError(t, l.WriteGeneration(GenerationEntry{GenID: "g1", Rank: 2, Seed: "abc", Rooms: 3, Spawn: &spawn}))
	require.NoError(t, l.Close())

	matches, err := filepath.Glob(filepath.Join(dir, "generations", "generations-*.jsonl.zst"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	got := readLines(t, matches[0])
	require.Len(t, got, 1)
	assert.Equal(t, "abc", got[0].Seed)
	require.NotNil(t, got[0].Spawn)
	assert.Equal(t, spawn, *got[0].Spawn)
}
