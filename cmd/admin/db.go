package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dbPath := fs.String("db", "./data/index/generations.sqlite", "sqlite index path")
	genID := fs.String("gen", "", "generation id (rooms, links)")
	seed := fs.String("seed", "", "seed filter (generations)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := "generations"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	if (q == "rooms" || q == "links") && *genID == "" {
		id, err := latestGeneration(db)
		if err != nil {
			fmt.Fprintln(os.Stderr, "latest generation:", err)
			os.Exit(1)
		}
		if id == "" {
			fmt.Fprintln(os.Stderr, "no generations found")
			os.Exit(2)
		}
		*genID = id
	}
	if *limit <= 0 {
		*limit = 20
	}

	switch q {
	case "generations":
		query := `SELECT gen_id,created_at,rank,seed,width,height,depth,rooms,links,vertices,triangles,chunks,COALESCE(snapshot_path,'') FROM generations ORDER BY created_at DESC LIMIT ?`
		qargs := []any{*limit}
		if strings.TrimSpace(*seed) != "" {
			query = `SELECT gen_id,created_at,rank,seed,width,height,depth,rooms,links,vertices,triangles,chunks,COALESCE(snapshot_path,'') FROM generations WHERE seed=? ORDER BY created_at DESC LIMIT ?`
			qargs = []any{strings.TrimSpace(*seed), *limit}
		}
		rows, err := db.Query(query, qargs...)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				GenID     string `json:"gen_id"`
				CreatedAt string `json:"created_at"`
				Rank      int    `json:"rank"`
				Seed      string `json:"seed"`
				Dims      [3]int `json:"dims"`
				Rooms     int    `json:"rooms"`
				Links     int    `json:"links"`
				Vertices  int    `json:"vertices"`
				Triangles int    `json:"triangles"`
				Chunks    int    `json:"chunks"`
				Snapshot  string `json:"snapshot,omitempty"`
			}
			if err := rows.Scan(&r.GenID, &r.CreatedAt, &r.Rank, &r.Seed, &r.Dims[0], &r.Dims[1], &r.Dims[2],
				&r.Rooms, &r.Links, &r.Vertices, &r.Triangles, &r.Chunks, &r.Snapshot); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "rooms":
		rows, err := db.Query(`SELECT room_id,size,edge_tiles,main,accessible,connected_json FROM rooms WHERE gen_id=? ORDER BY room_id`, *genID)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				GenID      string          `json:"gen_id"`
				RoomID     int             `json:"room_id"`
				Size       int             `json:"size"`
				EdgeTiles  int             `json:"edge_tiles"`
				Main       bool            `json:"main"`
				Accessible bool            `json:"accessible"`
				Connected  json.RawMessage `json:"connected"`
			}
			var connected string
			if err := rows.Scan(&r.RoomID, &r.Size, &r.EdgeTiles, &r.Main, &r.Accessible, &connected); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			r.GenID = *genID
			r.Connected = json.RawMessage(connected)
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "links":
		rows, err := db.Query(`SELECT seq,room_a,room_b,tiles_json FROM links WHERE gen_id=? ORDER BY seq`, *genID)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				GenID string          `json:"gen_id"`
				Seq   int             `json:"seq"`
				A     int             `json:"a"`
				B     int             `json:"b"`
				Tiles json.RawMessage `json:"tiles"`
			}
			var tiles string
			if err := rows.Scan(&r.Seq, &r.A, &r.B, &tiles); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			r.GenID = *genID
			r.Tiles = json.RawMessage(tiles)
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "catalogs":
		rows, err := db.Query(`SELECT name,digest,updated_at FROM catalogs ORDER BY name`)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Name      string `json:"name"`
				Digest    string `json:"digest"`
				UpdatedAt string `json:"updated_at"`
			}
			if err := rows.Scan(&r.Name, &r.Digest, &r.UpdatedAt); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q)
		fmt.Fprintln(os.Stderr, "usage: admin db [-db PATH] [-gen ID] [-seed S] generations|rooms|links|catalogs")
		os.Exit(2)
	}
}

func latestGeneration(db *sql.DB) (string, error) {
	if db == nil {
		return "", fmt.Errorf("nil db")
	}
	var id string
	err := db.QueryRow(`SELECT gen_id FROM generations ORDER BY created_at DESC LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return id, err
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
