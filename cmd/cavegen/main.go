// Command cavegen builds a cave offline and writes it as a snapshot, or
// prints what an existing snapshot holds.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"cavecraft.ai/internal/cave/gen"
	"cavecraft.ai/internal/cave/grid"
	"cavecraft.ai/internal/persistence/archive"
	"cavecraft.ai/internal/persistence/snapshot"
	"cavecraft.ai/internal/sim/tuning"
)

func main() {
	var (
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		rank       = flag.Int("rank", 2, "2 or 3")
		seed       = flag.String("seed", "", "seed override")
		random     = flag.Bool("random", false, "draw the seed from the clock")
		out        = flag.String("out", "", "snapshot path (default: <snapshot_dir>/<rank>d/<gen_id>.snap.zst)")
		pin        = flag.Bool("pin", false, "also copy the snapshot into the archive dir")
		inspect    = flag.String("inspect", "", "print a snapshot instead of generating")
		ascii      = flag.Bool("ascii", false, "print the padded 2D field")
		logLevel   = flag.String("log_level", "info", "log level")
	)
	flag.Parse()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if lvl, err := logrus.ParseLevel(*logLevel); err == nil {
		logger.SetLevel(lvl)
	}

	if *inspect != "" {
		if err := inspectSnapshot(os.Stdout, *inspect, *ascii); err != nil {
			logger.Fatalf("inspect: %v", err)
		}
		return
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		logger.Fatalf("load tuning: %v", err)
	}

	res, err := gen.New(tune, logger).Generate(context.Background(), *rank, gen.Options{Seed: *seed, UseRandomSeed: *random})
	if err != nil {
		logger.Fatalf("generate: %v", err)
	}

	path := *out
	if path == "" {
		path = filepath.Join(tune.Output.SnapshotDir, fmt.Sprintf("%dd", res.Rank), res.ID+".snap.zst")
	}
	snap := snapshot.FromResult(res)
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		logger.Fatalf("write snapshot: %v", err)
	}
	if *pin {
		pinned, err := archive.Pin(tune.Output.ArchiveDir, path, snap)
		if err != nil {
			logger.Fatalf("pin: %v", err)
		}
		logger.WithField("path", pinned).Info("pinned")
	}
	if err := inspectSnapshot(os.Stdout, path, *ascii); err != nil {
		logger.Fatalf("inspect: %v", err)
	}
}

func inspectSnapshot(w io.Writer, path string, ascii bool) error {
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		return err
	}
	f, err := snap.Field()
	if err != nil {
		return err
	}
	size := "?"
	if st, err := os.Stat(path); err == nil {
		size = humanize.Bytes(uint64(st.Size()))
	}

	fmt.Fprintf(w, "snapshot   %s (%s)\n", path, size)
	fmt.Fprintf(w, "gen_id     %s\n", snap.Header.GenID)
	fmt.Fprintf(w, "created    %s\n", snap.Header.CreatedAt)
	fmt.Fprintf(w, "rank/seed  %dD %q\n", snap.Header.Rank, snap.Header.Seed)
	fmt.Fprintf(w, "dims       %v (%s cells, %s open)\n", snap.Dims, humanize.Comma(int64(f.Len())), humanize.Comma(int64(f.Count(grid.Open))))
	fmt.Fprintf(w, "rooms      %d, connections %d, carved %s cells\n", len(snap.Rooms), len(snap.Links), humanize.Comma(int64(snap.Stats.CarvedCells)))
	fmt.Fprintf(w, "mesh       %s vertices, %s triangles, %d chunks\n",
		humanize.Comma(int64(snap.Stats.Vertices)), humanize.Comma(int64(snap.Stats.Triangles)), len(snap.Chunks))
	if snap.Spawn != nil {
		fmt.Fprintf(w, "spawn      cell %v pos %v\n", snap.Spawn.Cell, snap.Spawn.Pos)
	} else {
		fmt.Fprintf(w, "spawn      none\n")
	}
	rooms, _ := json.Marshal(snap.Rooms)
	fmt.Fprintf(w, "room table %s\n", rooms)

	if ascii && f.Rank() == 2 {
		printField(w, f)
	}
	return nil
}

// printField draws the top row last so the picture matches mesh space.
func printField(w io.Writer, f *grid.Field) {
	for y := f.Height() - 1; y >= 0; y-- {
		var b strings.Builder
		for x := 0; x < f.Width(); x++ {
			if f.IsWall(grid.Coord{X: x, Y: y}) {
				b.WriteByte('#')
			} else {
				b.WriteByte('.')
			}
		}
		fmt.Fprintln(w, b.String())
	}
}
