package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"cavecraft.ai/internal/persistence/snapshot"
	"cavecraft.ai/internal/sim/catalogs"
	"cavecraft.ai/internal/sim/tuning"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropGeneration atomic.Uint64
	dropFlush      atomic.Uint64
}

type reqKind int

const (
	reqGeneration reqKind = iota + 1
	reqFlush
)

type req struct {
	kind reqKind

	generation generationRow
	rooms      []snapshot.RoomV1
	links      []snapshot.LinkV1
	done       chan struct{}
}

type generationRow struct {
	GenID        string
	CreatedAt    string
	Rank         int
	Seed         string
	Dims         [3]int
	Rooms        int
	Links        int
	CarvedCells  int
	Vertices     int
	Triangles    int
	Chunks       int
	Spawn        *[3]int
	SnapshotPath string
	FieldDigest  string
}

// Stats reports queue pressure. Dropped requests are only in the JSONL log.
type Stats struct {
	QueueDepth          int
	QueueCapacity       int
	DropGenerationTotal uint64
	DropFlushTotal      uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 1024),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS generations (
			gen_id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			rank INTEGER NOT NULL,
			seed TEXT NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			depth INTEGER NOT NULL,
			rooms INTEGER NOT NULL,
			links INTEGER NOT NULL,
			carved_cells INTEGER NOT NULL,
			vertices INTEGER NOT NULL,
			triangles INTEGER NOT NULL,
			chunks INTEGER NOT NULL,
			spawn_json TEXT,
			snapshot_path TEXT,
			field_digest TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_generations_created ON generations(created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_generations_seed ON generations(seed, rank);`,
		`CREATE TABLE IF NOT EXISTS rooms (
			gen_id TEXT NOT NULL REFERENCES generations(gen_id) ON DELETE CASCADE,
			room_id INTEGER NOT NULL,
			size INTEGER NOT NULL,
			edge_tiles INTEGER NOT NULL,
			main INTEGER NOT NULL,
			accessible INTEGER NOT NULL,
			connected_json TEXT NOT NULL,
			PRIMARY KEY (gen_id, room_id)
		);`,
		`CREATE TABLE IF NOT EXISTS links (
			gen_id TEXT NOT NULL REFERENCES generations(gen_id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			room_a INTEGER NOT NULL,
			room_b INTEGER NOT NULL,
			tiles_json TEXT NOT NULL,
			PRIMARY KEY (gen_id, seq)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:          len(s.ch),
		QueueCapacity:       cap(s.ch),
		DropGenerationTotal: s.dropGeneration.Load(),
		DropFlushTotal:      s.dropFlush.Load(),
	}
}

// RecordGeneration queues snap for indexing. path is where the snapshot was
// written, or empty when snapshots are disabled.
func (s *SQLiteIndex) RecordGeneration(path string, snap snapshot.CaveV1) {
	if s == nil || s.closed.Load() {
		return
	}
	r := generationRow{
		GenID:        snap.Header.GenID,
		CreatedAt:    snap.Header.CreatedAt,
		Rank:         snap.Header.Rank,
		Seed:         snap.Header.Seed,
		Dims:         snap.Dims,
		Rooms:        len(snap.Rooms),
		Links:        len(snap.Links),
		CarvedCells:  snap.Stats.CarvedCells,
		Vertices:     snap.Stats.Vertices,
		Triangles:    snap.Stats.Triangles,
		Chunks:       len(snap.Chunks),
		SnapshotPath: path,
		FieldDigest:  snap.Header.FieldDigest,
	}
	if snap.Spawn != nil {
		c := snap.Spawn.Cell
		r.Spawn = &c
	}
	select {
	case s.ch <- req{kind: reqGeneration, generation: r, rooms: snap.Rooms, links: snap.Links}:
	default:
		// Drop if the indexer falls behind; JSONL logs remain the source of truth.
		s.dropGeneration.Add(1)
	}
}

// Flush waits until everything queued before it is committed.
func (s *SQLiteIndex) Flush(ctx context.Context) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	select {
	case s.ch <- req{kind: reqFlush, done: done}:
	default:
		s.dropFlush.Add(1)
		return fmt.Errorf("indexdb: queue full")
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SQLiteIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if configDir != "" && cats != nil {
		if b, err := os.ReadFile(filepath.Join(configDir, "placeholders.json")); err == nil {
			rows = append(rows, kv{name: "placeholders", digest: cats.Placeholders.Digest, json: b})
		}
	}

	// Tuning: store the values we actually apply (canonical JSON).
	{
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertGen, _ := s.db.Prepare(`INSERT OR REPLACE INTO generations(gen_id,created_at,rank,seed,width,height,depth,rooms,links,carved_cells,vertices,triangles,chunks,spawn_json,snapshot_path,field_digest) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	insertRoom, _ := s.db.Prepare(`INSERT OR REPLACE INTO rooms(gen_id,room_id,size,edge_tiles,main,accessible,connected_json) VALUES(?,?,?,?,?,?,?)`)
	insertLink, _ := s.db.Prepare(`INSERT OR REPLACE INTO links(gen_id,seq,room_a,room_b,tiles_json) VALUES(?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertGen, insertRoom, insertLink} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var tx *sql.Tx
	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
	}

	for r := range s.ch {
		switch r.kind {
		case reqFlush:
			commit()
			close(r.done)
			continue
		case reqGeneration:
			begin()
			if tx == nil || insertGen == nil {
				continue
			}
			if err := writeGeneration(tx, insertGen, insertRoom, insertLink, r); err != nil {
				rollback()
				continue
			}
		}
		// Readers share the single connection, so never hold a tx while idle.
		if len(s.ch) == 0 {
			commit()
		}
	}

	commit()
}

func writeGeneration(tx *sql.Tx, insertGen, insertRoom, insertLink *sql.Stmt, r req) error {
	g := r.generation
	var spawn any
	if g.Spawn != nil {
		b, _ := json.Marshal(g.Spawn)
		spawn = string(b)
	}
	if _, err := tx.Stmt(insertGen).Exec(
		g.GenID, g.CreatedAt, g.Rank, g.Seed,
		g.Dims[0], g.Dims[1], g.Dims[2],
		g.Rooms, g.Links, g.CarvedCells,
		g.Vertices, g.Triangles, g.Chunks,
		spawn, g.SnapshotPath, g.FieldDigest,
	); err != nil {
		return err
	}
	for _, room := range r.rooms {
		if insertRoom == nil {
			break
		}
		conn, _ := json.Marshal(room.Connected)
		if _, err := tx.Stmt(insertRoom).Exec(g.GenID, room.ID, room.Size, room.EdgeTiles, room.Main, room.Accessible, string(conn)); err != nil {
			return err
		}
	}
	for i, l := range r.links {
		if insertLink == nil {
			break
		}
		tiles, _ := json.Marshal([2][3]int{l.TileA, l.TileB})
		if _, err := tx.Stmt(insertLink).Exec(g.GenID, i, l.A, l.B, string(tiles)); err != nil {
			return err
		}
	}
	return nil
}
