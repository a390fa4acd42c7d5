// Package region labels connected components of a field and prunes the small ones.
package region

import (
	"github.com/zyedidia/generic/queue"

	"cavecraft.ai/internal/cave/grid"
)

// DefaultThreshold is the minimum size a wall or open region needs to survive pruning.
const DefaultThreshold = 50

// Region is one axis-connected component of a single cell type, in BFS order.
type Region []grid.Coord

// Analyzer owns the visited scratch for one field. Reuse it across calls on the
// same field; each call resets it.
type Analyzer struct {
	f       *grid.Field
	visited []bool
}

func NewAnalyzer(f *grid.Field) *Analyzer {
	return &Analyzer{f: f, visited: make([]bool, f.Len())}
}

// Regions is a one-shot NewAnalyzer(f).Regions(t).
func Regions(f *grid.Field, t grid.Cell) []Region {
	return NewAnalyzer(f).Regions(t)
}

// Regions scans the field in order and flood-fills every unvisited cell of type t.
func (a *Analyzer) Regions(t grid.Cell) []Region {
	for i := range a.visited {
		a.visited[i] = false
	}
	var out []Region
	a.f.Each(func(c grid.Coord, v grid.Cell) {
		if v != t || a.visited[a.f.Index(c)] {
			return
		}
		out = append(out, a.flood(c, t))
	})
	return out
}

func (a *Analyzer) flood(start grid.Coord, t grid.Cell) Region {
	offsets := grid.AxisOffsets(a.f.Rank())
	var tiles Region

	q := queue.New[grid.Coord]()
	q.Enqueue(start)
	a.visited[a.f.Index(start)] = true
	for !q.Empty() {
		c := q.Dequeue()
		tiles = append(tiles, c)
		for _, o := range offsets {
			n := c.Add(o)
			if !a.f.InBounds(n) {
				continue
			}
			i := a.f.Index(n)
			if a.visited[i] || a.f.Get(n) != t {
				continue
			}
			a.visited[i] = true
			q.Enqueue(n)
		}
	}
	return tiles
}

// RemoveSmall flips every region of type t smaller than threshold to the
// opposite type and returns the regions that survived.
func (a *Analyzer) RemoveSmall(t grid.Cell, threshold int) []Region {
	var kept []Region
	for _, r := range a.Regions(t) {
		if len(r) >= threshold {
			kept = append(kept, r)
			continue
		}
		for _, c := range r {
			a.f.Set(c, t.Opposite())
		}
	}
	return kept
}

// Prune removes small wall regions first, then small open regions, and returns
// the open regions that remain. Those become rooms.
func (a *Analyzer) Prune(wallThreshold, roomThreshold int) []Region {
	a.RemoveSmall(grid.Wall, wallThreshold)
	return a.RemoveSmall(grid.Open, roomThreshold)
}

// Sizes lists region sizes in order.
func Sizes(rs []Region) []int {
	out := make([]int, len(rs))
	for i, r := range rs {
		out[i] = len(r)
	}
	return out
}
