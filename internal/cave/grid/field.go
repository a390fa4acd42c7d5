// Package grid holds the dense binary occupancy field the cave is carved from.
package grid

import (
	"crypto/sha256"
	"fmt"
)

type Cell uint8

const (
	Open Cell = 0
	Wall Cell = 1
)

// Opposite flips open and wall.
func (c Cell) Opposite() Cell {
	if c == Wall {
		return Open
	}
	return Wall
}

// Field is a rank-2 or rank-3 grid of cells. 2D fields have depth 1.
// Cells are stored in scan order: x outer, then y, then z.
type Field struct {
	rank  int
	w     int
	h     int
	d     int
	cells []Cell
}

func New2D(w, h int) *Field {
	return newField(2, w, h, 1)
}

func New3D(w, h, d int) *Field {
	return newField(3, w, h, d)
}

func newField(rank, w, h, d int) *Field {
	if w <= 0 || h <= 0 || d <= 0 {
		panic(fmt.Sprintf("grid: invalid dims %dx%dx%d", w, h, d))
	}
	return &Field{rank: rank, w: w, h: h, d: d, cells: make([]Cell, w*h*d)}
}

// FromCells rebuilds a field from raw scan-order cells (e.g. a snapshot).
func FromCells(rank, w, h, d int, cells []Cell) (*Field, error) {
	if rank != 2 && rank != 3 {
		return nil, fmt.Errorf("grid: unsupported rank %d", rank)
	}
	if rank == 2 && d != 1 {
		return nil, fmt.Errorf("grid: 2D field must have depth 1, got %d", d)
	}
	if w <= 0 || h <= 0 || d <= 0 {
		return nil, fmt.Errorf("grid: invalid dims %dx%dx%d", w, h, d)
	}
	if len(cells) != w*h*d {
		return nil, fmt.Errorf("grid: cells length mismatch: got %d want %d", len(cells), w*h*d)
	}
	f := &Field{rank: rank, w: w, h: h, d: d, cells: make([]Cell, len(cells))}
	copy(f.cells, cells)
	return f, nil
}

func (f *Field) Rank() int   { return f.rank }
func (f *Field) Width() int  { return f.w }
func (f *Field) Height() int { return f.h }
func (f *Field) Depth() int  { return f.d }
func (f *Field) Len() int    { return len(f.cells) }

// Dims returns width, height, depth.
func (f *Field) Dims() [3]int { return [3]int{f.w, f.h, f.d} }

// Cells exposes the scan-order backing slice. Callers must not resize it.
func (f *Field) Cells() []Cell { return f.cells }

func (f *Field) InBounds(c Coord) bool {
	return c.X >= 0 && c.X < f.w && c.Y >= 0 && c.Y < f.h && c.Z >= 0 && c.Z < f.d
}

func (f *Field) Index(c Coord) int {
	return (c.X*f.h+c.Y)*f.d + c.Z
}

func (f *Field) CoordAt(i int) Coord {
	z := i % f.d
	i /= f.d
	return Coord{X: i / f.h, Y: i % f.h, Z: z}
}

func (f *Field) Get(c Coord) Cell {
	return f.cells[f.Index(c)]
}

func (f *Field) Set(c Coord, v Cell) {
	f.cells[f.Index(c)] = v
}

// IsWall treats everything outside the field as wall.
func (f *Field) IsWall(c Coord) bool {
	if !f.InBounds(c) {
		return true
	}
	return f.cells[f.Index(c)] == Wall
}

// OnBoundary reports whether c lies on any face of the field.
func (f *Field) OnBoundary(c Coord) bool {
	if c.X == 0 || c.X == f.w-1 || c.Y == 0 || c.Y == f.h-1 {
		return true
	}
	return f.rank == 3 && (c.Z == 0 || c.Z == f.d-1)
}

// Each visits every cell in scan order.
func (f *Field) Each(fn func(c Coord, v Cell)) {
	i := 0
	for x := 0; x < f.w; x++ {
		for y := 0; y < f.h; y++ {
			for z := 0; z < f.d; z++ {
				fn(Coord{X: x, Y: y, Z: z}, f.cells[i])
				i++
			}
		}
	}
}

func (f *Field) Count(v Cell) int {
	n := 0
	for _, c := range f.cells {
		if c == v {
			n++
		}
	}
	return n
}

func (f *Field) Clone() *Field {
	out := &Field{rank: f.rank, w: f.w, h: f.h, d: f.d, cells: make([]Cell, len(f.cells))}
	copy(out.cells, f.cells)
	return out
}

func (f *Field) Equal(o *Field) bool {
	if o == nil || f.rank != o.rank || f.w != o.w || f.h != o.h || f.d != o.d {
		return false
	}
	for i := range f.cells {
		if f.cells[i] != o.cells[i] {
			return false
		}
	}
	return true
}

// Pad surrounds the field with border wall cells on every face (x/y only in 2D).
func (f *Field) Pad(border int) *Field {
	if border <= 0 {
		return f.Clone()
	}
	dz := 0
	if f.rank == 3 {
		dz = border
	}
	out := newField(f.rank, f.w+2*border, f.h+2*border, f.d+2*dz)
	for i := range out.cells {
		out.cells[i] = Wall
	}
	f.Each(func(c Coord, v Cell) {
		out.Set(Coord{X: c.X + border, Y: c.Y + border, Z: c.Z + dz}, v)
	})
	return out
}

// Digest hashes rank, dims and cells. Equal fields have equal digests.
func (f *Field) Digest() [32]byte {
	h := sha256.New()
	fmt.Fprintf(h, "%d:%d:%d:%d:", f.rank, f.w, f.h, f.d)
	b := make([]byte, len(f.cells))
	for i, c := range f.cells {
		b[i] = byte(c)
	}
	h.Write(b)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
