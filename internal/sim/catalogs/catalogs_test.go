package catalogs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRepoCatalogs(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "..", "configs"))
	require.NoError(t, err)

	assert.Equal(t, []string{"box_marker", "capsule_player", "sphere_probe"}, c.Placeholders.Palette)
	assert.Len(t, c.Placeholders.Digest, 64)

	d, ok := c.Placeholders.Lookup("capsule_player")
	require.True(t, ok)
	assert.Equal(t, "CAPSULE", d.Kind)
	assert.Equal(t, float32(2), d.Height)

	_, ok = c.Placeholders.Lookup("dragon")
	assert.False(t, ok)
}

func TestLoadRejectsBadTemplates(t *testing.T) {
	cases := map[string]string{
		"empty id":  `[{"id":"","kind":"BOX","radius":1}]`,
		"duplicate": `[{"id":"a","kind":"BOX","radius":1},{"id":"a","kind":"BOX","radius":1}]`,
		"kind":      `[{"id":"a","kind":"CONE","radius":1}]`,
		"radius":    `[{"id":"a","kind":"BOX","radius":0}]`,
		"syntax":    `[{`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, "placeholders.json"), []byte(body), 0o644))
			_, err := Load(dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "placeholders.json")
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.ErrorIs(t, err, os.ErrNotExist)
}
