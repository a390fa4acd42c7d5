package indexdb

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"cavecraft.ai/internal/persistence/snapshot"
	"cavecraft.ai/internal/sim/catalogs"
	"cavecraft.ai/internal/sim/tuning"
)

// D1Config points the index at an HTTP ingest endpoint (e.g. a worker in
// front of Cloudflare D1) that accepts {"events":[...]} batches.
type D1Config struct {
	Endpoint      string
	Token         string
	Source        string
	BatchSize     int
	FlushInterval time.Duration
	HTTPTimeout   time.Duration
	Logger        logrus.FieldLogger
}

type D1Index struct {
	cfg        D1Config
	httpClient *http.Client

	ch   chan d1Event
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	queueDroppedTotal atomic.Uint64
	flushFailTotal    atomic.Uint64
}

type D1Stats struct {
	QueueDepth        int
	QueueCapacity     int
	QueueDroppedTotal uint64
	FlushFailTotal    uint64
}

type d1Event struct {
	Kind    string `json:"kind"`
	Source  string `json:"source"`
	Payload any    `json:"payload"`
}

type d1GenerationPayload struct {
	GenID        string            `json:"gen_id"`
	CreatedAt    string            `json:"created_at"`
	Rank         int               `json:"rank"`
	Seed         string            `json:"seed"`
	Dims         [3]int            `json:"dims"`
	Rooms        []snapshot.RoomV1 `json:"rooms"`
	Links        []snapshot.LinkV1 `json:"links"`
	Vertices     int               `json:"vertices"`
	Triangles    int               `json:"triangles"`
	Chunks       int               `json:"chunks"`
	Spawn        *[3]int           `json:"spawn,omitempty"`
	SnapshotPath string            `json:"snapshot_path,omitempty"`
	FieldDigest  string            `json:"field_digest"`
}

type d1CatalogPayload struct {
	Name      string `json:"name"`
	Digest    string `json:"digest"`
	JSON      string `json:"json"`
	UpdatedAt string `json:"updated_at"`
}

func OpenD1(cfg D1Config) (*D1Index, error) {
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	cfg.Source = strings.TrimSpace(cfg.Source)
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("empty d1 ingest endpoint")
	}
	if cfg.Source == "" {
		return nil, fmt.Errorf("empty source id")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 500 * time.Millisecond
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}

	d := &D1Index{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		ch:         make(chan d1Event, 4096),
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.loop()
	}()
	return d, nil
}

func (d *D1Index) Close() error {
	if d == nil {
		return nil
	}
	d.once.Do(func() {
		d.closed.Store(true)
		close(d.ch)
		d.wg.Wait()
	})
	return nil
}

func (d *D1Index) Stats() D1Stats {
	if d == nil {
		return D1Stats{}
	}
	return D1Stats{
		QueueDepth:        len(d.ch),
		QueueCapacity:     cap(d.ch),
		QueueDroppedTotal: d.queueDroppedTotal.Load(),
		FlushFailTotal:    d.flushFailTotal.Load(),
	}
}

func (d *D1Index) RecordGeneration(path string, snap snapshot.CaveV1) {
	if d == nil || d.closed.Load() {
		return
	}
	p := d1GenerationPayload{
		GenID:        snap.Header.GenID,
		CreatedAt:    snap.Header.CreatedAt,
		Rank:         snap.Header.Rank,
		Seed:         snap.Header.Seed,
		Dims:         snap.Dims,
		Rooms:        snap.Rooms,
		Links:        snap.Links,
		Vertices:     snap.Stats.Vertices,
		Triangles:    snap.Stats.Triangles,
		Chunks:       len(snap.Chunks),
		SnapshotPath: path,
		FieldDigest:  snap.Header.FieldDigest,
	}
	if snap.Spawn != nil {
		c := snap.Spawn.Cell
		p.Spawn = &c
	}
	d.enqueue(d1Event{Kind: "generation", Source: d.cfg.Source, Payload: p})
}

func (d *D1Index) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if d == nil || d.closed.Load() || cats == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type row struct {
		name   string
		digest string
		data   []byte
	}
	var rows []row
	if configDir != "" {
		if b, err := os.ReadFile(filepath.Join(configDir, "placeholders.json")); err == nil {
			rows = append(rows, row{name: "placeholders", digest: cats.Placeholders.Digest, data: b})
		}
	}
	if b, err := json.Marshal(tune); err == nil && len(b) > 0 {
		sum := sha256.Sum256(b)
		rows = append(rows, row{name: "tuning", digest: hex.EncodeToString(sum[:]), data: b})
	}

	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.data) == 0 {
			continue
		}
		d.enqueue(d1Event{Kind: "catalog", Source: d.cfg.Source, Payload: d1CatalogPayload{
			Name:      r.name,
			Digest:    r.digest,
			JSON:      string(r.data),
			UpdatedAt: now,
		}})
	}
	return nil
}

func (d *D1Index) enqueue(ev d1Event) {
	if d == nil || d.closed.Load() {
		return
	}
	select {
	case d.ch <- ev:
	default:
		d.queueDroppedTotal.Add(1)
		d.logger().WithField("kind", ev.Kind).Warn("d1 index queue full; dropping event")
	}
}

func (d *D1Index) loop() {
	ticker := time.NewTicker(d.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]d1Event, 0, d.cfg.BatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := d.sendBatch(batch); err != nil {
			d.flushFailTotal.Add(1)
			d.logger().WithError(err).WithField("batch", len(batch)).Warn("d1 index flush failed; retaining batch")
			return
		}
		batch = batch[:0]
	}

	for {
		select {
		case ev, ok := <-d.ch:
			if !ok {
				flush()
				return
			}
			batch = append(batch, ev)
			if len(batch) >= d.cfg.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (d *D1Index) sendBatch(events []d1Event) error {
	body := struct {
		Events []d1Event `json:"events"`
	}{Events: events}
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, d.cfg.Endpoint, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("content-type", "application/json")
	if d.cfg.Token != "" {
		req.Header.Set("x-cc-index-token", d.cfg.Token)
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 16*1024))
	_ = resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(respBody)))
}

func (d *D1Index) logger() logrus.FieldLogger {
	if d.cfg.Logger != nil {
		return d.cfg.Logger
	}
	return logrus.StandardLogger()
}
