// Package service owns the live cave: it serializes rebuilds, hands each
// result to the scene host and records it in the persistence layers.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"cavecraft.ai/internal/cave/gen"
	"cavecraft.ai/internal/persistence/archive"
	"cavecraft.ai/internal/persistence/indexdb"
	genlog "cavecraft.ai/internal/persistence/log"
	"cavecraft.ai/internal/persistence/snapshot"
	"cavecraft.ai/internal/sim/catalogs"
	"cavecraft.ai/internal/sim/scene"
	"cavecraft.ai/internal/sim/tuning"
)

var (
	// ErrBusy is returned by TryRegenerate while another rebuild runs.
	ErrBusy = errors.New("service: rebuild in progress")
	// ErrPinWithoutSnapshot is returned when a pin is requested but
	// snapshots are disabled.
	ErrPinWithoutSnapshot = errors.New("service: pin requires snapshots")
)

// Index is implemented by indexdb.SQLiteIndex and indexdb.D1Index.
type Index interface {
	RecordGeneration(path string, snap snapshot.CaveV1)
	UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error
	Close() error
}

var (
	_ Index = (*indexdb.SQLiteIndex)(nil)
	_ Index = (*indexdb.D1Index)(nil)
)

// Mirror receives every snapshot path after it is written.
type Mirror interface {
	Enqueue(localPath string)
}

type Config struct {
	Tuning   tuning.Tuning
	Catalogs *catalogs.Catalogs
	// ConfigDir is recorded with the catalogs in the index.
	ConfigDir string

	Host   scene.Host
	Index  Index
	Mirror Mirror
	Logger logrus.FieldLogger

	// WriteSnapshots stores every generation under Tuning.Output.SnapshotDir.
	WriteSnapshots bool
	// DisableLog skips the JSONL generation log.
	DisableLog bool
}

type Request struct {
	Rank          int
	Seed          string
	UseRandomSeed bool
	Pin           bool
}

// Outcome is one finished rebuild.
type Outcome struct {
	Result   *gen.Result
	Snapshot string
	Pinned   string
	Duration time.Duration
}

type Service struct {
	cfg   Config
	log   logrus.FieldLogger
	gen   *gen.Generator
	tpl   catalogs.PlaceholderDef
	glog  *genlog.GenerationLogger
	stage *scene.Stage

	// rebuild serializes Regenerate; one pass completes before the next starts.
	rebuild sync.Mutex

	mu      sync.RWMutex
	current *Outcome

	now func() time.Time
}

func New(cfg Config) (*Service, error) {
	if cfg.Catalogs == nil {
		return nil, fmt.Errorf("service: catalogs required")
	}
	if err := cfg.Tuning.Validate(); err != nil {
		return nil, err
	}
	tpl, ok := cfg.Catalogs.Placeholders.Lookup(cfg.Tuning.Output.Placeholder)
	if !ok {
		return nil, fmt.Errorf("service: unknown placeholder %q", cfg.Tuning.Output.Placeholder)
	}
	if cfg.Host == nil {
		cfg.Host = scene.NewMemoryHost()
	}
	lg := cfg.Logger
	if lg == nil {
		lg = logrus.StandardLogger()
	}

	s := &Service{
		cfg:   cfg,
		log:   lg.WithField("component", "service"),
		gen:   gen.New(cfg.Tuning, lg),
		tpl:   tpl,
		stage: scene.NewStage(cfg.Host),
		now:   time.Now,
	}
	if !cfg.DisableLog {
		s.glog = genlog.NewGenerationLogger(cfg.Tuning.Output.LogDir)
	}
	if cfg.Index != nil {
		if err := cfg.Index.UpsertCatalogs(cfg.ConfigDir, cfg.Catalogs, cfg.Tuning); err != nil {
			s.log.WithError(err).Warn("index catalogs upsert failed")
		}
	}
	return s, nil
}

func (s *Service) Tuning() tuning.Tuning { return s.cfg.Tuning }

func (s *Service) Catalogs() *catalogs.Catalogs { return s.cfg.Catalogs }

func (s *Service) Stage() *scene.Stage { return s.stage }

// Current is the last successful rebuild, or nil.
func (s *Service) Current() *Outcome {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Regenerate waits for any running rebuild, then builds a new cave and
// replaces the current one.
func (s *Service) Regenerate(ctx context.Context, req Request) (*Outcome, error) {
	s.rebuild.Lock()
	defer s.rebuild.Unlock()
	return s.regenerateLocked(ctx, req)
}

// TryRegenerate is Regenerate without waiting: it fails with ErrBusy if a
// rebuild is already running.
func (s *Service) TryRegenerate(ctx context.Context, req Request) (*Outcome, error) {
	if !s.rebuild.TryLock() {
		return nil, ErrBusy
	}
	defer s.rebuild.Unlock()
	return s.regenerateLocked(ctx, req)
}

func (s *Service) regenerateLocked(ctx context.Context, req Request) (*Outcome, error) {
	if req.Pin && !s.cfg.WriteSnapshots {
		return nil, ErrPinWithoutSnapshot
	}
	start := s.now()
	res, err := s.gen.Generate(ctx, req.Rank, gen.Options{Seed: req.Seed, UseRandomSeed: req.UseRandomSeed})
	if err != nil {
		return nil, err
	}
	if err := s.stage.Apply(res, s.tpl); err != nil {
		return nil, err
	}
	out := &Outcome{Result: res, Duration: s.now().Sub(start)}

	var snap snapshot.CaveV1
	if s.cfg.WriteSnapshots || s.cfg.Index != nil {
		snap = snapshot.FromResult(res)
	}
	if s.cfg.WriteSnapshots {
		if err := s.writeSnapshot(out, snap); err != nil {
			s.log.WithError(err).WithField("gen_id", res.ID).Error("snapshot write failed")
		}
	}
	if req.Pin && out.Snapshot != "" {
		pinned, err := archive.Pin(s.cfg.Tuning.Output.ArchiveDir, out.Snapshot, snap)
		if err != nil {
			s.log.WithError(err).WithField("gen_id", res.ID).Error("pin failed")
		} else {
			out.Pinned = pinned
			if s.cfg.Mirror != nil {
				s.cfg.Mirror.Enqueue(pinned)
				s.cfg.Mirror.Enqueue(filepath.Join(filepath.Dir(pinned), "meta.json"))
			}
		}
	}
	if s.cfg.Index != nil {
		s.cfg.Index.RecordGeneration(out.Snapshot, snap)
	}
	s.writeLog(out)

	s.mu.Lock()
	s.current = out
	s.mu.Unlock()
	return out, nil
}

func (s *Service) writeSnapshot(out *Outcome, snap snapshot.CaveV1) error {
	res := out.Result
	path := filepath.Join(s.cfg.Tuning.Output.SnapshotDir, fmt.Sprintf("%dd", res.Rank), res.ID+".snap.zst")
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		return err
	}
	out.Snapshot = path

	fields := logrus.Fields{"gen_id": res.ID, "path": path}
	if digest, err := snapshot.DigestFile(path); err == nil {
		fields["digest"] = digest[:12]
	}
	if size, err := fileSize(path); err == nil {
		fields["size"] = humanize.Bytes(uint64(size))
	}
	s.log.WithFields(fields).Info("snapshot written")

	if s.cfg.Mirror != nil {
		s.cfg.Mirror.Enqueue(path)
	}
	return nil
}

func fileSize(path string) (int64, error) {
	st, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return st.Size(), nil
}

func (s *Service) writeLog(out *Outcome) {
	if s.glog == nil {
		return
	}
	res := out.Result
	e := genlog.GenerationEntry{
		Time:       res.CreatedAt.Format(time.RFC3339Nano),
		GenID:      res.ID,
		Rank:       res.Rank,
		Seed:       res.Seed,
		Dims:       res.Padded.Dims(),
		Rooms:      res.Stats.Rooms,
		Links:      res.Stats.Links,
		Carved:     res.Stats.CarvedCells,
		Vertices:   res.Stats.Vertices,
		Triangles:  res.Stats.Triangles,
		Chunks:     res.Stats.Chunks,
		DurationMs: out.Duration.Milliseconds(),
		Snapshot:   out.Snapshot,
	}
	if res.Spawn != nil {
		c := [3]int{res.Spawn.Cell.X, res.Spawn.Cell.Y, res.Spawn.Cell.Z}
		e.Spawn = &c
	}
	if err := s.glog.WriteGeneration(e); err != nil {
		s.log.WithError(err).Warn("generation log write failed")
	}
}

// Close releases the scene and the generation log. The index and mirror
// belong to the caller.
func (s *Service) Close() error {
	s.rebuild.Lock()
	defer s.rebuild.Unlock()
	var errs []error
	errs = append(errs, s.stage.Clear())
	if s.glog != nil {
		errs = append(errs, s.glog.Close())
	}
	return errors.Join(errs...)
}
