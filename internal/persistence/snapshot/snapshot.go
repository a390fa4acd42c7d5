package snapshot

import (
	"bufio"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"cavecraft.ai/internal/cave/gen"
	"cavecraft.ai/internal/cave/grid"
	"cavecraft.ai/internal/mesh"
	"cavecraft.ai/internal/sim/tuning"
)

const Version = 1

var ErrDigestMismatch = errors.New("snapshot: field digest mismatch")

type Header struct {
	Version     int    `json:"version"`
	GenID       string `json:"gen_id"`
	Rank        int    `json:"rank"`
	Seed        string `json:"seed"`
	CreatedAt   string `json:"created_at"`
	FieldDigest string `json:"field_digest"`
}

type CaveV1 struct {
	Header Header `json:"header"`

	Config tuning.Cave `json:"config"`

	// Padded field, scan order.
	Dims  [3]int `json:"dims"`
	Cells []byte `json:"cells"`

	Rooms  []RoomV1  `json:"rooms"`
	Links  []LinkV1  `json:"links"`
	Floor  MeshV1    `json:"floor"`
	Walls  MeshV1    `json:"walls"`
	Chunks []MeshV1  `json:"chunks,omitempty"`
	Spawn  *SpawnV1  `json:"spawn,omitempty"`
	Stats  gen.Stats `json:"stats"`
}

type RoomV1 struct {
	ID         int   `json:"id"`
	Size       int   `json:"size"`
	EdgeTiles  int   `json:"edge_tiles"`
	Main       bool  `json:"main"`
	Accessible bool  `json:"accessible"`
	Connected  []int `json:"connected"`
}

type LinkV1 struct {
	A     int    `json:"a"`
	B     int    `json:"b"`
	TileA [3]int `json:"tile_a"`
	TileB [3]int `json:"tile_b"`
}

type MeshV1 struct {
	Origin    [3]float32 `json:"origin"`
	Vertices  []float32  `json:"vertices"` // xyz triples
	Triangles []int32    `json:"triangles"`
}

type SpawnV1 struct {
	Cell [3]int     `json:"cell"`
	Pos  [3]float32 `json:"pos"`
}

func coordV1(c grid.Coord) [3]int { return [3]int{c.X, c.Y, c.Z} }

func vecV1(v mesh.Vec3) [3]float32 { return [3]float32{v.X, v.Y, v.Z} }

func digestHex(f *grid.Field) string {
	d := f.Digest()
	return hex.EncodeToString(d[:])
}

func MeshToV1(m mesh.Mesh) MeshV1 {
	out := MeshV1{
		Origin:    vecV1(m.Origin),
		Vertices:  make([]float32, 0, 3*len(m.Vertices)),
		Triangles: make([]int32, len(m.Triangles)),
	}
	for _, v := range m.Vertices {
		out.Vertices = append(out.Vertices, v.X, v.Y, v.Z)
	}
	for i, t := range m.Triangles {
		out.Triangles[i] = int32(t)
	}
	return out
}

func (m MeshV1) Mesh() mesh.Mesh {
	out := mesh.Mesh{Origin: mesh.Vec3{X: m.Origin[0], Y: m.Origin[1], Z: m.Origin[2]}}
	for i := 0; i+2 < len(m.Vertices); i += 3 {
		out.AddVertex(mesh.Vec3{X: m.Vertices[i], Y: m.Vertices[i+1], Z: m.Vertices[i+2]})
	}
	for _, t := range m.Triangles {
		out.Triangles = append(out.Triangles, int(t))
	}
	return out
}

// FromResult captures everything a host needs to rebuild a generation
// without rerunning it.
func FromResult(res *gen.Result) CaveV1 {
	snap := CaveV1{
		Header: Header{
			Version:     Version,
			GenID:       res.ID,
			Rank:        res.Rank,
			Seed:        res.Seed,
			CreatedAt:   res.CreatedAt.UTC().Format(time.RFC3339Nano),
			FieldDigest: digestHex(res.Padded),
		},
		Config: res.Config,
		Dims:   res.Padded.Dims(),
		Cells:  make([]byte, res.Padded.Len()),
		Floor:  MeshToV1(res.Floor),
		Walls:  MeshToV1(res.Walls),
		Stats:  res.Stats,
	}
	for i, c := range res.Padded.Cells() {
		snap.Cells[i] = byte(c)
	}
	for _, r := range res.Graph.Rooms {
		rv := RoomV1{ID: r.ID, Size: r.Size(), EdgeTiles: len(r.EdgeTiles), Main: r.Main, Accessible: r.Accessible}
		for _, o := range r.Connected() {
			rv.Connected = append(rv.Connected, o.ID)
		}
		snap.Rooms = append(snap.Rooms, rv)
	}
	for _, l := range res.Graph.Links {
		snap.Links = append(snap.Links, LinkV1{A: l.A, B: l.B, TileA: coordV1(l.TileA), TileB: coordV1(l.TileB)})
	}
	for _, c := range res.Chunks {
		snap.Chunks = append(snap.Chunks, MeshToV1(c))
	}
	if res.Spawn != nil {
		snap.Spawn = &SpawnV1{Cell: coordV1(res.Spawn.Cell), Pos: vecV1(res.Spawn.Pos)}
	}
	return snap
}

// Field rebuilds the padded field and checks it against the header digest.
func (s CaveV1) Field() (*grid.Field, error) {
	cells := make([]grid.Cell, len(s.Cells))
	for i, b := range s.Cells {
		cells[i] = grid.Cell(b)
	}
	f, err := grid.FromCells(s.Header.Rank, s.Dims[0], s.Dims[1], s.Dims[2], cells)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	if got := digestHex(f); got != s.Header.FieldDigest {
		return nil, fmt.Errorf("%w: header %s, cells %s", ErrDigestMismatch, s.Header.FieldDigest, got)
	}
	return f, nil
}

// DigestFile hashes a snapshot file as stored on disk.
func DigestFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

func WriteSnapshot(path string, snap CaveV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := encode(f, snap); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func encode(f *os.File, snap CaveV1) error {
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return enc.Close()
}

func ReadSnapshot(path string) (CaveV1, error) {
	var snap CaveV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// The header line is for tools that only peek; gob carries it too.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("snapshot: unsupported version %d", snap.Header.Version)
	}
	return snap, nil
}

// ReadHeader decodes only the leading JSON line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("header: %w", err)
	}
	return h, nil
}
