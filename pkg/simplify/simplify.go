package simplify

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/Faultbox/meshsimplify/pkg/heap"
	"github.com/Faultbox/meshsimplify/pkg/mesh"
	"go.uber.org/zap"
)

// Stats describes a completed build.
type Stats struct {
	Vertices  int
	Triangles int
	SubMeshes int
	// Isolated counts vertices that had no collapse target when removed.
	Isolated  int
	MeshScale float32
	Evaluate  time.Duration
	Collapse  time.Duration
}

// Handle holds the result of Build for one mesh: the collapse permutation,
// the collapse map and the reconstruction buffers. A Handle is not safe for
// concurrent use; buffers returned by Reconstruct are reused by the next call.
type Handle struct {
	src         *mesh.Source
	permutation []int32
	collapseMap []int32
	stats       Stats
	log         *zap.Logger

	recon *reconstructor
}

// Build analyzes src and computes its progressive collapse order. Spheres
// bias the cost of the vertices they enclose (positive values keep detail,
// negative values remove it first). src must not be modified while the
// returned Handle is in use.
func Build(ctx context.Context, src *mesh.Source, spheres []RelevanceSphere, opts Options) (*Handle, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil source", ErrInvalidMesh)
	}
	if err := src.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMesh, err)
	}
	if n := src.VertexCount(); n < 3 {
		return nil, fmt.Errorf("%w: %d vertices, need at least 3", ErrInvalidMesh, n)
	}

	log := opts.logger()
	meshScale := src.Bounds().Size().MaxComponent()
	if meshScale <= 0 {
		meshScale = 1
	}
	model := newCostModel(opts, meshScale, compileSpheres(spheres))

	g := newGraph(src)
	n := len(g.verts)
	log.Debug("adjacency graph built",
		zap.Int("vertices", n),
		zap.Int("triangles", len(g.tris)),
		zap.Float32("meshScale", meshScale))

	start := time.Now()
	costs, targets, err := evaluateAll(ctx, newSnapshot(g), n, model, opts.workers())
	if err != nil {
		return nil, fmt.Errorf("evaluate collapse costs: %w", err)
	}
	for i := range g.verts {
		g.verts[i].cost = costs[i]
		g.verts[i].target = targets[i]
	}
	evaluated := time.Since(start)

	start = time.Now()
	permutation, collapseMap, err := collapseAll(ctx, g, model)
	if err != nil {
		return nil, err
	}

	h := &Handle{
		src:         src,
		permutation: permutation,
		collapseMap: collapseMap,
		log:         log,
		stats: Stats{
			Vertices:  n,
			Triangles: src.TriangleCount(),
			SubMeshes: len(src.SubMeshes),
			MeshScale: meshScale,
			Evaluate:  evaluated,
			Collapse:  time.Since(start),
		},
	}
	for _, t := range collapseMap {
		if t == noVertex {
			h.stats.Isolated++
		}
	}
	h.recon = newReconstructor(src, permutation, collapseMap)

	log.Info("collapse order computed",
		zap.Int("vertices", n),
		zap.Int("isolated", h.stats.Isolated),
		zap.Duration("evaluate", h.stats.Evaluate),
		zap.Duration("collapse", h.stats.Collapse))
	return h, nil
}

// collapseAll drains the cost queue. The first vertex extracted gets rank
// n-1, the last gets rank 0.
func collapseAll(ctx context.Context, g *graph, model *costModel) (permutation, collapseMap []int32, err error) {
	n := len(g.verts)
	items := make([]*Vertex, n)
	for i := range g.verts {
		items[i] = &g.verts[i]
	}
	queue := heap.MinFrom(items)

	permutation = make([]int32, n)
	collapseMap = make([]int32, n)

	var (
		affected   []int32
		straddling []TriangleRef
		sides      []int32
	)
	for rank := n - 1; rank >= 0; rank-- {
		if rank%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, fmt.Errorf("collapse vertices: %w", err)
			}
		}

		u, err := queue.ExtractTop()
		if err != nil {
			return nil, nil, fmt.Errorf("collapse vertex %d of %d: %w", n-rank, n, err)
		}
		permutation[u.ID] = int32(rank)
		collapseMap[u.ID] = u.target

		var v *Vertex
		if u.target != noVertex {
			v = g.vertex(u.target)
		}
		affected, straddling = g.collapse(u, v, affected, straddling)
		if v != nil && !v.dead && !slices.Contains(affected, v.ID) {
			affected = append(affected, v.ID)
		}

		for _, id := range affected {
			w := g.vertex(id)
			if w.dead || w.slot < 0 {
				continue
			}
			w.cost, w.target = model.vertexCost(g, id, &sides)
			queue.Update(w.slot, w)
		}
	}
	return permutation, collapseMap, nil
}

// Stats returns build statistics.
func (h *Handle) Stats() Stats { return h.stats }

// VertexCount returns the vertex count of the source mesh.
func (h *Handle) VertexCount() int { return len(h.permutation) }

// Permutation returns the collapse rank of every source vertex. Rank n-1 is
// removed first. The slice is owned by the handle.
func (h *Handle) Permutation() []int32 { return h.permutation }

// CollapseMap returns, per source vertex, the vertex it collapses into, or
// -1 for vertices removed without a target. The slice is owned by the handle.
func (h *Handle) CollapseMap() []int32 { return h.collapseMap }

// Source returns the mesh the handle was built from.
func (h *Handle) Source() *mesh.Source { return h.src }
