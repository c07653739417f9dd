package simplify

import (
	"context"

	"github.com/Faultbox/meshsimplify/pkg/math"
	"golang.org/x/sync/errgroup"
)

const (
	// minChunk is the smallest number of vertices handed to one worker.
	minChunk = 256
	// checkEvery is how many vertices a loop processes between context checks.
	checkEvery = 1024
)

// snapshot is an immutable, flattened copy of the graph taken before the
// collapse loop starts. Adjacency is stored in CSR form: the neighbors of
// vertex v are neighborList[neighborStart[v]:neighborStart[v+1]].
type snapshot struct {
	positions []math.Vec3
	worlds    []math.Vec3
	normals   []math.Vec3
	uvs       []math.Vec2

	neighborStart []int32
	neighborList  []int32
	faceStart     []int32
	faceList      []int32

	triVerts   [][3]int32
	triNormals []math.Vec3
	borders    []bool
}

func newSnapshot(g *graph) *snapshot {
	n := len(g.verts)
	s := &snapshot{
		positions:     make([]math.Vec3, n),
		worlds:        make([]math.Vec3, n),
		normals:       make([]math.Vec3, n),
		uvs:           make([]math.Vec2, n),
		neighborStart: make([]int32, n+1),
		faceStart:     make([]int32, n+1),
		triVerts:      make([][3]int32, len(g.tris)),
		triNormals:    make([]math.Vec3, len(g.tris)),
		borders:       make([]bool, n),
	}

	var neighbors, faces int
	for i := range g.verts {
		neighbors += len(g.verts[i].neighbors)
		faces += len(g.verts[i].faces)
	}
	s.neighborList = make([]int32, 0, neighbors)
	s.faceList = make([]int32, 0, faces)

	for i := range g.verts {
		v := &g.verts[i]
		s.positions[i] = v.Position
		s.worlds[i] = v.World
		s.normals[i] = v.Normal
		s.uvs[i] = v.UV

		s.neighborStart[i] = int32(len(s.neighborList))
		s.neighborList = append(s.neighborList, v.neighbors...)
		s.faceStart[i] = int32(len(s.faceList))
		s.faceList = append(s.faceList, v.faces...)
		s.borders[i] = g.isBorder(v.ID)
	}
	s.neighborStart[n] = int32(len(s.neighborList))
	s.faceStart[n] = int32(len(s.faceList))

	for i := range g.tris {
		s.triVerts[i] = g.tris[i].verts
		s.triNormals[i] = g.tris[i].normal
	}
	return s
}

func (s *snapshot) position(v int32) math.Vec3 { return s.positions[v] }
func (s *snapshot) world(v int32) math.Vec3    { return s.worlds[v] }
func (s *snapshot) normal(v int32) math.Vec3   { return s.normals[v] }
func (s *snapshot) texcoord(v int32) math.Vec2 { return s.uvs[v] }
func (s *snapshot) border(v int32) bool        { return s.borders[v] }

func (s *snapshot) neighborsOf(v int32) []int32 {
	return s.neighborList[s.neighborStart[v]:s.neighborStart[v+1]]
}

func (s *snapshot) facesOf(v int32) []int32 {
	return s.faceList[s.faceStart[v]:s.faceStart[v+1]]
}

func (s *snapshot) faceNormalOf(t int32) math.Vec3 { return s.triNormals[t] }

func (s *snapshot) faceHas(t, v int32) bool {
	tv := s.triVerts[t]
	return tv[0] == v || tv[1] == v || tv[2] == v
}

// evaluateAll computes the initial cost and target of every vertex over
// workers goroutines. Each worker owns a contiguous range of the output
// slices; no shared state is written.
func evaluateAll(ctx context.Context, topo topology, n int, model *costModel, workers int) (costs []float32, targets []int32, err error) {
	costs = make([]float32, n)
	targets = make([]int32, n)
	if n == 0 {
		return costs, targets, nil
	}

	workers = max(workers, 1)
	chunk := max(minChunk, (n+workers-1)/workers)

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		eg.Go(func() error {
			var sides []int32
			for i := start; i < end; i++ {
				if (i-start)%checkEvery == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				costs[i], targets[i] = model.vertexCost(topo, int32(i), &sides)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}
	return costs, targets, nil
}
