package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"cavecraft.ai/internal/persistence/snapshot"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "current":
			currentCmd(os.Args[2:])
			return
		case "regenerate":
			regenerateCmd(os.Args[2:])
			return
		case "snapshots":
			listCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

type snapshotFile struct {
	path   string
	size   int64
	header snapshot.Header
}

// listCmd prints snapshot headers under the snapshot dir, newest first.
func listCmd(args []string) {
	fs := flag.NewFlagSet("snapshots", flag.ExitOnError)
	dir := fs.String("dir", "./data/snapshots", "snapshot directory")
	rank := fs.Int("rank", 0, "only this rank (2 or 3)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	files, err := listSnapshots(*dir, *rank)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	if *limit > 0 && len(files) > *limit {
		files = files[:*limit]
	}
	for _, f := range files {
		fmt.Printf("%s  %dD  %-24q  %8s  %s\n", f.header.CreatedAt, f.header.Rank, f.header.Seed, humanize.Bytes(uint64(f.size)), f.path)
	}
}

func listSnapshots(dir string, rank int) ([]snapshotFile, error) {
	var out []snapshotFile
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".snap.zst") {
			return nil
		}
		h, err := snapshot.ReadHeader(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "skip %s: %v\n", path, err)
			return nil
		}
		if rank != 0 && h.Rank != rank {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		out = append(out, snapshotFile{path: path, size: info.Size(), header: h})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].header.CreatedAt > out[j].header.CreatedAt })
	return out, nil
}
