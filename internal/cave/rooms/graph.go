package rooms

import (
	"sort"

	"github.com/zyedidia/generic/mapset"
	"github.com/zyedidia/generic/queue"

	"cavecraft.ai/internal/cave/grid"
	"cavecraft.ai/internal/cave/region"
)

// CarveFunc opens a passage between two edge tiles.
type CarveFunc func(a, b grid.Coord)

// Link is one undirected connection and the edge tiles it was carved between.
type Link struct {
	A, B         int
	TileA, TileB grid.Coord
}

type Graph struct {
	Rooms []*Room
	Main  *Room
	Links []Link
}

// Build wraps regions as rooms ordered by descending size. Equal sizes keep
// region scan order. The first room is the main room; an empty graph has none.
func Build(f *grid.Field, regions []region.Region) *Graph {
	g := &Graph{Rooms: make([]*Room, 0, len(regions))}
	for _, r := range regions {
		g.Rooms = append(g.Rooms, newRoom(r, f))
	}
	sort.SliceStable(g.Rooms, func(i, j int) bool {
		return g.Rooms[i].Size() > g.Rooms[j].Size()
	})
	for i, r := range g.Rooms {
		r.ID = i
	}
	if len(g.Rooms) > 0 {
		g.Main = g.Rooms[0]
		g.Main.Main = true
		g.Main.Accessible = true
	}
	return g
}

type candidate struct {
	dist         int
	a, b         *Room
	tileA, tileB grid.Coord
	found        bool
}

// consider folds every edge-tile pair of a x b into best. Strictly closer
// pairs replace the current best, so the first pair found wins ties.
func (best *candidate) consider(a, b *Room) {
	for _, ta := range a.EdgeTiles {
		for _, tb := range b.EdgeTiles {
			d := grid.SqDist(ta, tb)
			if best.found && d >= best.dist {
				continue
			}
			*best = candidate{dist: d, a: a, b: b, tileA: ta, tileB: tb, found: true}
		}
	}
}

// Connect links every room to the main room's component, carving a passage per link.
//
// First every room without a connection is linked to its nearest room. Then,
// while some room is still unreachable, the closest pair between the reachable
// and unreachable sets is linked. The second loop stops early when no pair is
// left, which only happens for rooms without edge tiles.
func (g *Graph) Connect(carve CarveFunc) {
	for _, a := range g.Rooms {
		if len(a.connected) > 0 {
			continue
		}
		var best candidate
		for _, b := range g.Rooms {
			if a == b || a.IsConnected(b) {
				continue
			}
			best.consider(a, b)
		}
		if best.found {
			g.link(best, carve)
		}
	}

	for {
		var reachable, unreachable []*Room
		for _, r := range g.Rooms {
			if r.Accessible {
				reachable = append(reachable, r)
			} else {
				unreachable = append(unreachable, r)
			}
		}
		if len(unreachable) == 0 || len(reachable) == 0 {
			return
		}
		var best candidate
		for _, a := range unreachable {
			for _, b := range reachable {
				if a.IsConnected(b) {
					continue
				}
				best.consider(a, b)
			}
		}
		if !best.found {
			return
		}
		g.link(best, carve)
	}
}

func (g *Graph) link(c candidate, carve CarveFunc) {
	switch {
	case c.a.Accessible:
		markAccessible(c.b)
	case c.b.Accessible:
		markAccessible(c.a)
	}
	c.a.connected = append(c.a.connected, c.b)
	c.b.connected = append(c.b.connected, c.a)
	g.Links = append(g.Links, Link{A: c.a.ID, B: c.b.ID, TileA: c.tileA, TileB: c.tileB})
	if carve != nil {
		carve(c.tileA, c.tileB)
	}
}

// markAccessible flags r and everything transitively connected to it.
func markAccessible(r *Room) {
	if r.Accessible {
		return
	}
	visited := mapset.New[*Room]()
	q := queue.New[*Room]()
	visited.Put(r)
	q.Enqueue(r)
	for !q.Empty() {
		cur := q.Dequeue()
		cur.Accessible = true
		for _, n := range cur.connected {
			if n.Accessible || visited.Has(n) {
				continue
			}
			visited.Put(n)
			q.Enqueue(n)
		}
	}
}

// ReachableFromMain walks connections from the main room, independent of the
// Accessible flags.
func (g *Graph) ReachableFromMain() mapset.Set[*Room] {
	seen := mapset.New[*Room]()
	if g.Main == nil {
		return seen
	}
	q := queue.New[*Room]()
	seen.Put(g.Main)
	q.Enqueue(g.Main)
	for !q.Empty() {
		cur := q.Dequeue()
		for _, n := range cur.connected {
			if seen.Has(n) {
				continue
			}
			seen.Put(n)
			q.Enqueue(n)
		}
	}
	return seen
}

// Unreachable lists rooms the main room cannot reach.
func (g *Graph) Unreachable() []*Room {
	seen := g.ReachableFromMain()
	var out []*Room
	for _, r := range g.Rooms {
		if !seen.Has(r) {
			out = append(out, r)
		}
	}
	return out
}
