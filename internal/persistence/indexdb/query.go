package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
)

// GenerationSummary is one row of the generations table.
type GenerationSummary struct {
	GenID        string  `json:"gen_id"`
	CreatedAt    string  `json:"created_at"`
	Rank         int     `json:"rank"`
	Seed         string  `json:"seed"`
	Dims         [3]int  `json:"dims"`
	Rooms        int     `json:"rooms"`
	Links        int     `json:"links"`
	CarvedCells  int     `json:"carved_cells"`
	Vertices     int     `json:"vertices"`
	Triangles    int     `json:"triangles"`
	Chunks       int     `json:"chunks"`
	Spawn        *[3]int `json:"spawn,omitempty"`
	SnapshotPath string  `json:"snapshot_path,omitempty"`
	FieldDigest  string  `json:"field_digest"`
}

type RoomSummary struct {
	RoomID     int   `json:"room_id"`
	Size       int   `json:"size"`
	EdgeTiles  int   `json:"edge_tiles"`
	Main       bool  `json:"main"`
	Accessible bool  `json:"accessible"`
	Connected  []int `json:"connected"`
}

// Recent returns up to n generations, newest first.
func (s *SQLiteIndex) Recent(ctx context.Context, n int) ([]GenerationSummary, error) {
	if n <= 0 {
		n = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT gen_id,created_at,rank,seed,width,height,depth,rooms,links,carved_cells,vertices,triangles,chunks,spawn_json,snapshot_path,field_digest
		FROM generations ORDER BY created_at DESC, rowid DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GenerationSummary
	for rows.Next() {
		var (
			g        GenerationSummary
			spawn    sql.NullString
			snapPath sql.NullString
		)
		if err := rows.Scan(
			&g.GenID, &g.CreatedAt, &g.Rank, &g.Seed,
			&g.Dims[0], &g.Dims[1], &g.Dims[2],
			&g.Rooms, &g.Links, &g.CarvedCells,
			&g.Vertices, &g.Triangles, &g.Chunks,
			&spawn, &snapPath, &g.FieldDigest,
		); err != nil {
			return nil, err
		}
		if spawn.Valid {
			var c [3]int
			if err := json.Unmarshal([]byte(spawn.String), &c); err == nil {
				g.Spawn = &c
			}
		}
		g.SnapshotPath = snapPath.String
		out = append(out, g)
	}
	return out, rows.Err()
}

// Rooms lists the rooms of one generation in id order.
func (s *SQLiteIndex) Rooms(ctx context.Context, genID string) ([]RoomSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT room_id,size,edge_tiles,main,accessible,connected_json FROM rooms WHERE gen_id=? ORDER BY room_id`, genID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RoomSummary
	for rows.Next() {
		var (
			r    RoomSummary
			conn string
		)
		if err := rows.Scan(&r.RoomID, &r.Size, &r.EdgeTiles, &r.Main, &r.Accessible, &conn); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(conn), &r.Connected)
		out = append(out, r)
	}
	return out, rows.Err()
}
