package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cavecraft.ai/internal/persistence/snapshot"
)

type PinMeta struct {
	GenID       string `json:"gen_id"`
	Rank        int    `json:"rank"`
	Seed        string `json:"seed"`
	Dims        [3]int `json:"dims"`
	Rooms       int    `json:"rooms"`
	FieldDigest string `json:"field_digest"`
	Snapshot    string `json:"snapshot"`
	PinnedAt    string `json:"pinned_at"`
}

// Pin copies a snapshot into `archiveDir/<rank>d/<seed>/` next to a
// meta.json. Pinning the same seed again replaces the previous copy.
func Pin(archiveDir, snapshotPath string, snap snapshot.CaveV1) (string, error) {
	if snapshotPath == "" {
		return "", fmt.Errorf("pin: no snapshot to archive")
	}
	dir := filepath.Join(archiveDir, fmt.Sprintf("%dd", snap.Header.Rank), SeedDir(snap.Header.Seed))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	dst := filepath.Join(dir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return "", fmt.Errorf("pin: %w", err)
	}

	meta := PinMeta{
		GenID:       snap.Header.GenID,
		Rank:        snap.Header.Rank,
		Seed:        snap.Header.Seed,
		Dims:        snap.Dims,
		Rooms:       len(snap.Rooms),
		FieldDigest: snap.Header.FieldDigest,
		Snapshot:    filepath.Base(dst),
		PinnedAt:    time.Now().UTC().Format(time.RFC3339Nano),
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, "meta.json"), b, 0o644); err != nil {
		return "", err
	}
	return dst, nil
}

// ReadPin loads the meta.json of a pinned seed.
func ReadPin(archiveDir string, rank int, seed string) (PinMeta, error) {
	var meta PinMeta
	b, err := os.ReadFile(filepath.Join(archiveDir, fmt.Sprintf("%dd", rank), SeedDir(seed), "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(b, &meta); err != nil {
		return meta, fmt.Errorf("meta.json: %w", err)
	}
	return meta, nil
}

// SeedDir maps a seed to a directory name; anything outside [A-Za-z0-9._-]
// becomes '_'.
func SeedDir(seed string) string {
	var b strings.Builder
	for _, r := range seed {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == '.' && b.Len() > 0:
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
