package grid

// Coord addresses one cell. 2D fields always use Z == 0.
type Coord struct {
	X, Y, Z int
}

func (c Coord) Add(o Coord) Coord {
	return Coord{X: c.X + o.X, Y: c.Y + o.Y, Z: c.Z + o.Z}
}

// SqDist is the squared euclidean distance between two cells.
func SqDist(a, b Coord) int {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return dx*dx + dy*dy + dz*dz
}

var (
	axis2 = []Coord{{X: -1}, {Y: -1}, {Y: 1}, {X: 1}}
	axis3 = []Coord{{X: -1}, {Y: -1}, {Z: -1}, {Z: 1}, {Y: 1}, {X: 1}}

	moore2 = mooreOffsets(2)
	moore3 = mooreOffsets(3)
)

func mooreOffsets(rank int) []Coord {
	zr := 0
	if rank == 3 {
		zr = 1
	}
	var out []Coord
	for x := -1; x <= 1; x++ {
		for y := -1; y <= 1; y++ {
			for z := -zr; z <= zr; z++ {
				if x == 0 && y == 0 && z == 0 {
					continue
				}
				out = append(out, Coord{X: x, Y: y, Z: z})
			}
		}
	}
	return out
}

// AxisOffsets are the face neighbours (4 in 2D, 6 in 3D). Diagonals never
// join regions.
func AxisOffsets(rank int) []Coord {
	if rank == 3 {
		return axis3
	}
	return axis2
}

// MooreOffsets are the full neighbourhood (8 in 2D, 26 in 3D).
func MooreOffsets(rank int) []Coord {
	if rank == 3 {
		return moore3
	}
	return moore2
}
