// Package squares extracts the 2D cave mesh with marching squares and builds
// vertical wall geometry from its outlines.
package squares

import (
	"github.com/zyedidia/generic/mapset"

	"cavecraft.ai/internal/cave/grid"
	"cavecraft.ai/internal/mesh"
)

type node struct {
	pos    mesh.Vec3
	vertex int
}

// controlNode sits on a field cell and owns the midpoints above (+z) and to
// the right (+x) of it.
type controlNode struct {
	node
	active bool
	above  *node
	right  *node
}

func newControlNode(pos mesh.Vec3, active bool, size float32) *controlNode {
	return &controlNode{
		node:   node{pos: pos, vertex: -1},
		active: active,
		above:  &node{pos: pos.Add(mesh.Vec3{Z: size / 2}), vertex: -1},
		right:  &node{pos: pos.Add(mesh.Vec3{X: size / 2}), vertex: -1},
	}
}

// Point slots of a square, indexing square.points.
const (
	topLeft = iota
	topRight
	bottomRight
	bottomLeft
	centerTop
	centerRight
	centerBottom
	centerLeft
)

// configPoints is the polygon emitted for each configuration, fanned from its
// first point. Corner weights: top-left 8, top-right 4, bottom-right 2,
// bottom-left 1.
var configPoints = [16][]int{
	0:  nil,
	1:  {centerLeft, centerBottom, bottomLeft},
	2:  {bottomRight, centerBottom, centerRight},
	3:  {centerRight, bottomRight, bottomLeft, centerLeft},
	4:  {topRight, centerRight, centerTop},
	5:  {centerTop, topRight, centerRight, centerBottom, bottomLeft, centerLeft},
	6:  {centerTop, topRight, bottomRight, centerBottom},
	7:  {centerTop, topRight, bottomRight, bottomLeft, centerLeft},
	8:  {topLeft, centerTop, centerLeft},
	9:  {topLeft, centerTop, centerBottom, bottomLeft},
	10: {topLeft, centerTop, centerRight, bottomRight, centerBottom, centerLeft},
	11: {topLeft, centerTop, centerRight, bottomRight, bottomLeft},
	12: {topLeft, topRight, centerRight, centerLeft},
	13: {topLeft, topRight, centerRight, centerBottom, bottomLeft},
	14: {topLeft, topRight, bottomRight, centerBottom, centerLeft},
	15: {topLeft, topRight, bottomRight, bottomLeft},
}

// TriangleCount is how many triangles a configuration emits.
func TriangleCount(config int) int {
	n := len(configPoints[config])
	if n < 3 {
		return 0
	}
	return n - 2
}

type square struct {
	points [8]*node
	config int
}

func newSquare(tl, tr, br, bl *controlNode) square {
	s := square{points: [8]*node{
		topLeft:      &tl.node,
		topRight:     &tr.node,
		bottomRight:  &br.node,
		bottomLeft:   &bl.node,
		centerTop:    tl.right,
		centerRight:  br.above,
		centerBottom: bl.right,
		centerLeft:   bl.above,
	}}
	if tl.active {
		s.config += 8
	}
	if tr.active {
		s.config += 4
	}
	if br.active {
		s.config += 2
	}
	if bl.active {
		s.config += 1
	}
	return s
}

type triangle [3]int

func (t triangle) contains(v int) bool {
	return t[0] == v || t[1] == v || t[2] == v
}

// Result is everything one marching-squares pass produces.
type Result struct {
	Floor mesh.Mesh
	// Walls doubles as the collision proxy.
	Walls    mesh.Mesh
	Outlines [][]int
	// Configs counts squares per configuration.
	Configs [16]int
}

// Collider is the mesh a physics host should build its wall collider from.
func (r *Result) Collider() *mesh.Mesh { return &r.Walls }

// mesher is the per-pass state: vertex buffer, per-vertex triangle adjacency
// and the set of vertices already known not to start a new outline.
type mesher struct {
	floor     mesh.Mesh
	adjacency [][]triangle
	checked   mapset.Set[int]
	outlines  [][]int
	configs   [16]int
}

// Generate triangulates f (wall cells active) on the XZ plane centred on the
// origin, then traces outlines and extrudes walls wallHeight downwards.
func Generate(f *grid.Field, squareSize, wallHeight float32) *Result {
	m := &mesher{checked: mapset.New[int]()}

	w, h := f.Width(), f.Height()
	mapW := float32(w) * squareSize
	mapH := float32(h) * squareSize
	nodes := make([][]*controlNode, w)
	for i := 0; i < w; i++ {
		nodes[i] = make([]*controlNode, h)
		for j := 0; j < h; j++ {
			pos := mesh.Vec3{
				X: -mapW/2 + float32(i)*squareSize + squareSize/2,
				Z: -mapH/2 + float32(j)*squareSize + squareSize/2,
			}
			nodes[i][j] = newControlNode(pos, f.Get(grid.Coord{X: i, Y: j}) == grid.Wall, squareSize)
		}
	}

	for i := 0; i < w-1; i++ {
		for j := 0; j < h-1; j++ {
			m.triangulate(newSquare(nodes[i][j+1], nodes[i+1][j+1], nodes[i+1][j], nodes[i][j]))
		}
	}

	m.traceOutlines()
	return &Result{
		Floor:    m.floor,
		Walls:    buildWalls(m.floor.Vertices, m.outlines, wallHeight),
		Outlines: m.outlines,
		Configs:  m.configs,
	}
}

func (m *mesher) triangulate(s square) {
	m.configs[s.config]++
	slots := configPoints[s.config]
	if len(slots) == 0 {
		return
	}
	pts := make([]*node, len(slots))
	for i, slot := range slots {
		pts[i] = s.points[slot]
		if pts[i].vertex == -1 {
			pts[i].vertex = m.floor.AddVertex(pts[i].pos)
			m.adjacency = append(m.adjacency, nil)
		}
	}
	for k := 2; k < len(pts); k++ {
		m.addTriangle(pts[0].vertex, pts[k-1].vertex, pts[k].vertex)
	}
	if s.config == 15 {
		// A full square has no boundary edge at its corners.
		for _, slot := range slots {
			m.checked.Put(s.points[slot].vertex)
		}
	}
}

func (m *mesher) addTriangle(a, b, c int) {
	m.floor.AddTriangle(a, b, c)
	t := triangle{a, b, c}
	m.adjacency[a] = append(m.adjacency[a], t)
	m.adjacency[b] = append(m.adjacency[b], t)
	m.adjacency[c] = append(m.adjacency[c], t)
}
