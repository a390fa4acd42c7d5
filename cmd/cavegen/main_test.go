package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cavecraft.ai/internal/cave/gen"
	"cavecraft.ai/internal/persistence/snapshot"
	"cavecraft.ai/internal/sim/tuning"
)

func TestInspectSnapshot(t *testing.T) {
	lg := logrus.New()
	lg.SetOutput(io.Discard)
	tu := tuning.Defaults()
	tu.Cave2D.Width, tu.Cave2D.Height = 30, 20

	res, err := gen.New(tu, lg).Generate(context.Background(), 2, gen.Options{Seed: "inspect"})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "c.snap.zst")
	require.NoError(t, snapshot.WriteSnapshot(path, snapshot.FromResult(res)))

	var buf bytes.Buffer
	require.NoError(t, inspectSnapshot(&buf, path, true))
	out := buf.String()
	assert.Contains(t, out, res.ID)
	assert.Contains(t, out, `2D "inspect"`)
	assert.Contains(t, out, "dims       [40 30 1]")

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	grid := lines[len(lines)-30:]
	assert.Equal(t, strings.Repeat("#", 40), grid[0])
	assert.Equal(t, strings.Repeat("#", 40), grid[29])
}

func TestInspectMissingSnapshot(t *testing.T) {
	assert.Error(t, inspectSnapshot(io.Discard, filepath.Join(t.TempDir(), "nope"), false))
}
