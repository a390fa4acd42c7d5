package tuning

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestDefaultsAreValid(t *testing.T) {
	d := Defaults()
	d.Normalize()
	require.NoError(t, d.Validate())
}

func TestLoadRepoConfigMatchesDefaults(t *testing.T) {
	got, err := Load(filepath.Join("..", "..", "..", "configs", "tuning.yaml"))
	require.NoError(t, err)
	want := Defaults()
	want.Normalize()
	assert.Equal(t, want, got)
}

func TestLoadEmptyPath(t *testing.T) {
	got, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 128, got.Cave2D.Width)
}

func TestLoadOverridesOnTopOfDefaults(t *testing.T) {
	p := writeYAML(t, "cave_2d:\n  width: 10\n  height: 10\n  seed: abc\n  wall_percent: 45\n")
	got, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Cave2D.Width)
	assert.Equal(t, "abc", got.Cave2D.Seed)
	assert.Equal(t, 4, got.Cave2D.SmoothLimit)
	assert.Equal(t, 1, got.Cave2D.Depth)
	assert.Equal(t, 48, got.Cave3D.Depth)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"width":                  "cave_2d:\n  width: 0\n",
		"border_size":            "cave_2d:\n  border_size: -1\n",
		"wall_percent":           "cave_3d:\n  wall_percent: 41\n",
		"wall_percent_range":     "cave_2d:\n  wall_percent_range: {min: 0, max: 101}\n",
		"smooth_limit":           "cave_2d:\n  smooth_limit: 9\n",
		"smooth_iterations":      "cave_3d:\n  smooth_iterations: -2\n",
		"depth":                  "cave_3d:\n  depth: 0\n",
		"max_vertices_per_chunk": "cave_3d:\n  max_vertices_per_chunk: 100\n",
		"room_threshold":         "pruning:\n  room_threshold: 0\n",
		"radius":                 "passage:\n  radius: -1\n",
		"seed":                   "cave_2d:\n  seed: \"  \"\n",
	}
	for field, body := range cases {
		t.Run(field, func(t *testing.T) {
			_, err := Load(writeYAML(t, body))
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), field)
			assert.Contains(t, err.Error(), "tuning.yaml")
		})
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	_, err := Load(writeYAML(t, "cave_2d: [\n"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidConfig)
}

func TestFor(t *testing.T) {
	d := Defaults()
	c, err := d.For(3)
	require.NoError(t, err)
	assert.Equal(t, 13, c.SmoothLimit)
	_, err = d.For(4)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
