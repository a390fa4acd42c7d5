package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

type Catalogs struct {
	Placeholders PlaceholderCatalog
}

// PlaceholderCatalog holds the templates a scene host instantiates at the
// spawn point.
type PlaceholderCatalog struct {
	Palette []string
	Defs    map[string]PlaceholderDef
	Digest  string
}

type PlaceholderDef struct {
	ID     string  `json:"id"`
	Kind   string  `json:"kind"` // "CAPSULE","SPHERE","BOX"
	Radius float32 `json:"radius"`
	Height float32 `json:"height,omitempty"`
}

var validKinds = map[string]bool{"CAPSULE": true, "SPHERE": true, "BOX": true}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	if err := loadPlaceholders(filepath.Join(configDir, "placeholders.json"), &c.Placeholders); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c PlaceholderCatalog) Lookup(id string) (PlaceholderDef, bool) {
	d, ok := c.Defs[id]
	return d, ok
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadPlaceholders(path string, out *PlaceholderCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []PlaceholderDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("placeholders.json: %w", err)
	}
	out.Defs = map[string]PlaceholderDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("placeholders.json: empty id")
		}
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("placeholders.json: duplicate id %q", d.ID)
		}
		if !validKinds[d.Kind] {
			return fmt.Errorf("placeholders.json: %s: unknown kind %q", d.ID, d.Kind)
		}
		if d.Radius <= 0 {
			return fmt.Errorf("placeholders.json: %s: radius must be > 0", d.ID)
		}
		out.Defs[d.ID] = d
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out.Palette = ids
	return nil
}
