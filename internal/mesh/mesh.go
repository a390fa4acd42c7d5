// Package mesh holds the vertex/triangle buffers handed to renderers and
// physics hosts.
package mesh

type Vec3 struct {
	X, Y, Z float32
}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z} }

func (v Vec3) Scale(s float32) Vec3 { return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s} }

var Up = Vec3{Y: 1}

// Mesh is an indexed triangle list. Origin is where the host should place it.
type Mesh struct {
	Origin    Vec3
	Vertices  []Vec3
	Triangles []int
}

func (m *Mesh) AddVertex(v Vec3) int {
	m.Vertices = append(m.Vertices, v)
	return len(m.Vertices) - 1
}

func (m *Mesh) AddTriangle(a, b, c int) {
	m.Triangles = append(m.Triangles, a, b, c)
}

func (m *Mesh) VertexCount() int   { return len(m.Vertices) }
func (m *Mesh) TriangleCount() int { return len(m.Triangles) / 3 }
func (m *Mesh) Empty() bool        { return len(m.Triangles) == 0 }

// Bounds is the axis-aligned box of the vertices in local space.
func (m *Mesh) Bounds() (lo, hi Vec3) {
	if len(m.Vertices) == 0 {
		return Vec3{}, Vec3{}
	}
	lo, hi = m.Vertices[0], m.Vertices[0]
	for _, v := range m.Vertices[1:] {
		lo = Vec3{X: min(lo.X, v.X), Y: min(lo.Y, v.Y), Z: min(lo.Z, v.Z)}
		hi = Vec3{X: max(hi.X, v.X), Y: max(hi.Y, v.Y), Z: max(hi.Z, v.Z)}
	}
	return lo, hi
}

// Split groups whole triangles into meshes of at most maxVertices vertices
// each, remapping indices locally. Every chunk inherits m.Origin.
func Split(m Mesh, maxVertices int) []Mesh {
	if maxVertices < 3 {
		maxVertices = 3
	}
	var out []Mesh
	cur := Mesh{Origin: m.Origin}
	local := map[int]int{}
	for t := 0; t+2 < len(m.Triangles); t += 3 {
		tri := m.Triangles[t : t+3]
		need := 0
		for _, idx := range tri {
			if _, ok := local[idx]; !ok {
				need++
			}
		}
		if len(cur.Vertices) > 0 && len(cur.Vertices)+need > maxVertices {
			out = append(out, cur)
			cur = Mesh{Origin: m.Origin}
			local = map[int]int{}
		}
		for _, idx := range tri {
			li, ok := local[idx]
			if !ok {
				li = cur.AddVertex(m.Vertices[idx])
				local[idx] = li
			}
			cur.Triangles = append(cur.Triangles, li)
		}
	}
	if len(cur.Triangles) > 0 {
		out = append(out, cur)
	}
	return out
}
