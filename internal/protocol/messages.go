package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id"`
	Ranks           []int          `json:"ranks"`
	Catalogs        CatalogDigests `json:"catalogs"`
	// Current is the generation the server is showing, if any.
	Current string `json:"current_gen_id,omitempty"`
}

type CatalogDigests struct {
	Placeholders DigestRef `json:"placeholders"`
	TuningDigest string    `json:"tuning_digest,omitempty"`
}

type DigestRef struct {
	Digest string `json:"digest"`
	Count  int    `json:"count"`
}

// REGENERATE (client -> server). An empty Seed keeps the configured one.
type RegenerateMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	RequestID       string `json:"request_id,omitempty"`
	Rank            int    `json:"rank"`
	Seed            string `json:"seed,omitempty"`
	UseRandomSeed   bool   `json:"use_random_seed,omitempty"`
	IncludeMesh     bool   `json:"include_mesh,omitempty"`
	Pin             bool   `json:"pin,omitempty"`
}

// GENERATED (server -> client)
type GeneratedMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	RequestID       string       `json:"request_id,omitempty"`
	GenID           string       `json:"gen_id"`
	Rank            int          `json:"rank"`
	Seed            string       `json:"seed"`
	Dims            [3]int       `json:"dims"`
	Rooms           []RoomInfo   `json:"rooms"`
	Connections     []Connection `json:"connections"`
	Spawn           *SpawnInfo   `json:"spawn,omitempty"`
	Mesh            MeshStats    `json:"mesh"`
	Floor           *MeshBuffer  `json:"floor,omitempty"`
	Walls           *MeshBuffer  `json:"walls,omitempty"`
	Chunks          []MeshBuffer `json:"chunks,omitempty"`
	// CellsRLE is the padded field in scan order, run-length packed.
	CellsRLE        string       `json:"cells_rle,omitempty"`
	Snapshot        string       `json:"snapshot,omitempty"`
	Pinned          string       `json:"pinned,omitempty"`
	DurationMs      int64        `json:"duration_ms"`
}

type RoomInfo struct {
	ID         int   `json:"id"`
	Size       int   `json:"size"`
	Main       bool  `json:"main,omitempty"`
	Accessible bool  `json:"accessible"`
	Connected  []int `json:"connected"`
}

type Connection struct {
	A     int    `json:"a"`
	B     int    `json:"b"`
	TileA [3]int `json:"tile_a"`
	TileB [3]int `json:"tile_b"`
}

type SpawnInfo struct {
	Cell [3]int     `json:"cell"`
	Pos  [3]float32 `json:"pos"`
}

type MeshStats struct {
	Vertices  int `json:"vertices"`
	Triangles int `json:"triangles"`
	Chunks    int `json:"chunks"`
	Outlines  int `json:"outlines"`
}

// MeshBuffer is a flat vertex/index buffer; Vertices are xyz triples.
type MeshBuffer struct {
	Origin    [3]float32 `json:"origin"`
	Vertices  []float32  `json:"vertices"`
	Triangles []int32    `json:"triangles"`
}

type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	RequestID       string `json:"request_id,omitempty"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}
