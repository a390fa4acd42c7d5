// Package gen runs one complete cave generation pass: fill, smooth, prune,
// connect rooms, carve, pad, mesh and spawn lookup.
package gen

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"cavecraft.ai/internal/cave/automaton"
	"cavecraft.ai/internal/cave/grid"
	"cavecraft.ai/internal/cave/passage"
	"cavecraft.ai/internal/cave/region"
	"cavecraft.ai/internal/cave/rooms"
	"cavecraft.ai/internal/cave/spawn"
	"cavecraft.ai/internal/mesh"
	"cavecraft.ai/internal/mesh/cubes"
	"cavecraft.ai/internal/mesh/squares"
	"cavecraft.ai/internal/sim/rng"
	"cavecraft.ai/internal/sim/tuning"
)

// Options override the tuned seed for a single pass.
type Options struct {
	Seed          string
	UseRandomSeed bool
}

type Generator struct {
	tuning tuning.Tuning
	log    logrus.FieldLogger

	// Now feeds random seeds and timestamps. Tests pin it.
	Now func() time.Time
}

func New(t tuning.Tuning, log logrus.FieldLogger) *Generator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Generator{tuning: t, log: log, Now: time.Now}
}

func (g *Generator) Tuning() tuning.Tuning { return g.tuning }

func (g *Generator) Generate2D(ctx context.Context, opts Options) (*Result, error) {
	return g.Generate(ctx, 2, opts)
}

func (g *Generator) Generate3D(ctx context.Context, opts Options) (*Result, error) {
	return g.Generate(ctx, 3, opts)
}

// Generate builds a fresh cave of the given rank. Nothing is shared with
// earlier passes.
func (g *Generator) Generate(ctx context.Context, rank int, opts Options) (*Result, error) {
	cave, err := g.tuning.For(rank)
	if err != nil {
		return nil, err
	}
	if opts.Seed != "" || opts.UseRandomSeed {
		cave.Seed = opts.Seed
		cave.UseRandomSeed = opts.UseRandomSeed
	}
	if err := cave.Validate(rank); err != nil {
		return nil, err
	}
	t := g.tuning
	if err := t.ValidateCommon(); err != nil {
		return nil, err
	}

	p := &pass{
		rank:    rank,
		cave:    cave,
		pruning: t.Pruning,
		radius:  t.Passage.Radius,
	}
	p.seed = cave.Seed
	if cave.UseRandomSeed {
		p.seed = rng.TimeSeed(g.Now())
	}
	p.run()

	res := p.result()
	res.ID = uuid.NewString()
	res.CreatedAt = g.Now().UTC()
	g.log.WithFields(logrus.Fields{
		"gen_id":   res.ID,
		"rank":     rank,
		"seed":     res.Seed,
		"rooms":    res.Stats.Rooms,
		"vertices": res.Stats.Vertices,
	}).Info("cave generated")
	return res, nil
}

// pass holds the state of one generation. It is discarded afterwards.
type pass struct {
	rank    int
	seed    string
	cave    tuning.Cave
	pruning tuning.Pruning
	radius  int

	field  *grid.Field
	graph  *rooms.Graph
	carved int
	padded *grid.Field

	floor    mesh.Mesh
	walls    mesh.Mesh
	outlines [][]int
	configs  [16]int
	chunks   []mesh.Mesh
	spawn    *spawn.Point
}

// run always completes; a rebuild is never abandoned halfway.
func (p *pass) run() {
	c := p.cave
	if p.rank == 2 {
		p.field = grid.New2D(c.Width, c.Height)
	} else {
		p.field = grid.New3D(c.Width, c.Height, c.Depth)
	}

	automaton.Fill(p.field, c.WallPercent, rng.FromString(p.seed))
	p.field = automaton.SmoothN(p.field, c.SmoothIterations, c.SmoothLimit)

	analyzer := region.NewAnalyzer(p.field)
	survivors := analyzer.Prune(p.pruning.WallThreshold, p.pruning.RoomThreshold)
	p.graph = rooms.Build(p.field, survivors)
	p.graph.Connect(func(a, b grid.Coord) {
		p.carved += passage.Carve(p.field, a, b, p.radius)
	})
	if p.pruning.AfterCarve && p.carved > 0 {
		// Carving can split wall regions below the threshold.
		analyzer.RemoveSmall(grid.Wall, p.pruning.WallThreshold)
	}

	p.padded = p.field.Pad(c.BorderSize)
	if p.rank == 2 {
		sq := squares.Generate(p.padded, c.SquareSize, c.WallHeight)
		p.floor, p.walls, p.outlines, p.configs = sq.Floor, sq.Walls, sq.Outlines, sq.Configs
	} else {
		cb := cubes.Generate(p.padded, c.MaxVerticesPerChunk)
		p.floor, p.chunks = cb.Surface, cb.Chunks
	}

	size := c.SquareSize
	if p.rank == 3 {
		size = 1
	}
	if pt, ok := spawn.Find(p.padded, size); ok {
		p.spawn = &pt
	}
}

func (p *pass) result() *Result {
	res := &Result{
		Rank:     p.rank,
		Seed:     p.seed,
		Config:   p.cave,
		Field:    p.field,
		Padded:   p.padded,
		Graph:    p.graph,
		Floor:    p.floor,
		Walls:    p.walls,
		Outlines: p.outlines,
		Chunks:   p.chunks,
		Spawn:    p.spawn,
	}
	res.Stats = Stats{
		Rooms:       len(p.graph.Rooms),
		Links:       len(p.graph.Links),
		CarvedCells: p.carved,
		OpenCells:   p.padded.Count(grid.Open),
		WallCells:   p.padded.Count(grid.Wall),
		Vertices:    p.floor.VertexCount() + p.walls.VertexCount(),
		Triangles:   p.floor.TriangleCount() + p.walls.TriangleCount(),
		Chunks:      len(p.chunks),
		Configs:     p.configs,
	}
	return res
}
