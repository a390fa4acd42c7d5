// Package rooms turns surviving open regions into rooms and links them into a
// single graph reachable from the largest room.
package rooms

import (
	"slices"

	"cavecraft.ai/internal/cave/grid"
	"cavecraft.ai/internal/cave/region"
)

type Room struct {
	ID    int
	Tiles []grid.Coord
	// EdgeTiles holds one entry per (tile, walled axis neighbour); a tile
	// walled on two sides appears twice.
	EdgeTiles []grid.Coord

	Main       bool
	Accessible bool

	connected []*Room
}

func newRoom(tiles region.Region, f *grid.Field) *Room {
	r := &Room{Tiles: tiles}
	offsets := grid.AxisOffsets(f.Rank())
	for _, t := range tiles {
		for _, o := range offsets {
			if f.IsWall(t.Add(o)) {
				r.EdgeTiles = append(r.EdgeTiles, t)
			}
		}
	}
	return r
}

func (r *Room) Size() int { return len(r.Tiles) }

// Connected lists directly linked rooms in link order.
func (r *Room) Connected() []*Room { return r.connected }

func (r *Room) IsConnected(o *Room) bool {
	return slices.Contains(r.connected, o)
}
