package squares

import "cavecraft.ai/internal/mesh"

// isOutlineEdge: an edge lies on the boundary when exactly one triangle holds both ends.
func (m *mesher) isOutlineEdge(a, b int) bool {
	shared := 0
	for _, t := range m.adjacency[a] {
		if t.contains(b) {
			shared++
			if shared > 1 {
				break
			}
		}
	}
	return shared == 1
}

// nextOutlineVertex returns an unchecked vertex sharing a boundary edge with v, or -1.
func (m *mesher) nextOutlineVertex(v int) int {
	for _, t := range m.adjacency[v] {
		for _, u := range t {
			if u == v || m.checked.Has(u) {
				continue
			}
			if m.isOutlineEdge(v, u) {
				return u
			}
		}
	}
	return -1
}

func (m *mesher) traceOutlines() {
	for v := 0; v < len(m.floor.Vertices); v++ {
		if m.checked.Has(v) {
			continue
		}
		next := m.nextOutlineVertex(v)
		if next == -1 {
			continue
		}
		m.checked.Put(v)
		outline := []int{v}
		for next != -1 {
			outline = append(outline, next)
			m.checked.Put(next)
			next = m.nextOutlineVertex(next)
		}
		outline = append(outline, v)
		m.outlines = append(m.outlines, outline)
	}
}

// buildWalls emits one quad per outline edge, hanging wallHeight below the floor.
func buildWalls(verts []mesh.Vec3, outlines [][]int, wallHeight float32) mesh.Mesh {
	var walls mesh.Mesh
	drop := mesh.Up.Scale(wallHeight)
	for _, outline := range outlines {
		for i := 0; i+1 < len(outline); i++ {
			a := verts[outline[i]]
			b := verts[outline[i+1]]
			start := walls.AddVertex(a)
			walls.AddVertex(b)
			walls.AddVertex(a.Sub(drop))
			walls.AddVertex(b.Sub(drop))
			// Seen from inside the cave.
			walls.AddTriangle(start+0, start+2, start+3)
			walls.AddTriangle(start+3, start+1, start+0)
		}
	}
	return walls
}
