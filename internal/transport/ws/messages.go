package ws

import (
	"cavecraft.ai/internal/mesh"
	"cavecraft.ai/internal/persistence/snapshot"
	"cavecraft.ai/internal/protocol"
	"cavecraft.ai/internal/sim/encoding"
	"cavecraft.ai/internal/sim/service"
)

// GeneratedMsg describes a finished rebuild. Mesh buffers and the packed
// field are only attached when includeMesh is set.
func GeneratedMsg(requestID string, out *service.Outcome, includeMesh bool) protocol.GeneratedMsg {
	res := out.Result
	msg := protocol.GeneratedMsg{
		Type:            protocol.TypeGenerated,
		ProtocolVersion: protocol.Version,
		RequestID:       requestID,
		GenID:           res.ID,
		Rank:            res.Rank,
		Seed:            res.Seed,
		Dims:            res.Padded.Dims(),
		Rooms:           []protocol.RoomInfo{},
		Connections:     []protocol.Connection{},
		Mesh: protocol.MeshStats{
			Vertices:  res.Stats.Vertices,
			Triangles: res.Stats.Triangles,
			Chunks:    res.Stats.Chunks,
			Outlines:  len(res.Outlines),
		},
		Snapshot:   out.Snapshot,
		Pinned:     out.Pinned,
		DurationMs: out.Duration.Milliseconds(),
	}
	for _, r := range res.Graph.Rooms {
		info := protocol.RoomInfo{ID: r.ID, Size: r.Size(), Main: r.Main, Accessible: r.Accessible, Connected: []int{}}
		for _, o := range r.Connected() {
			info.Connected = append(info.Connected, o.ID)
		}
		msg.Rooms = append(msg.Rooms, info)
	}
	for _, l := range res.Graph.Links {
		msg.Connections = append(msg.Connections, protocol.Connection{
			A:     l.A,
			B:     l.B,
			TileA: [3]int{l.TileA.X, l.TileA.Y, l.TileA.Z},
			TileB: [3]int{l.TileB.X, l.TileB.Y, l.TileB.Z},
		})
	}
	if res.Spawn != nil {
		p := res.Spawn
		msg.Spawn = &protocol.SpawnInfo{
			Cell: [3]int{p.Cell.X, p.Cell.Y, p.Cell.Z},
			Pos:  [3]float32{p.Pos.X, p.Pos.Y, p.Pos.Z},
		}
	}
	if !includeMesh {
		return msg
	}
	msg.CellsRLE = encoding.EncodeCells(res.Padded.Cells())
	if res.Rank == 3 {
		for _, c := range res.Chunks {
			msg.Chunks = append(msg.Chunks, buffer(c))
		}
		return msg
	}
	floor, walls := buffer(res.Floor), buffer(res.Walls)
	msg.Floor, msg.Walls = &floor, &walls
	return msg
}

func buffer(m mesh.Mesh) protocol.MeshBuffer {
	v := snapshot.MeshToV1(m)
	return protocol.MeshBuffer{Origin: v.Origin, Vertices: v.Vertices, Triangles: v.Triangles}
}
