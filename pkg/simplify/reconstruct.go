package simplify

import (
	"image/color"
	gomath "math"

	"github.com/Faultbox/meshsimplify/pkg/math"
	"github.com/Faultbox/meshsimplify/pkg/mesh"
	"go.uber.org/zap"
)

// MinVertices is the smallest budget that can hold a triangle. Smaller
// budgets leave the previous reconstruction in place.
const MinVertices = 3

// reconstructor owns working copies of every source channel. They are
// allocated once and overwritten on each run, so reconstruction does not
// allocate.
type reconstructor struct {
	src         *mesh.Source
	permutation []int32
	collapseMap []int32

	positions []math.Vec3
	normals   []math.Vec3
	tangents  []math.Vec4
	uv        []math.Vec2
	uv2       []math.Vec2
	colors    []color.RGBA
	bones     []mesh.BoneWeight
	subMeshes [][]int32

	remap   []int32
	visited []bool

	out mesh.Buffers
}

func newReconstructor(src *mesh.Source, permutation, collapseMap []int32) *reconstructor {
	n := len(src.Positions)
	r := &reconstructor{
		src:         src,
		permutation: permutation,
		collapseMap: collapseMap,
		positions:   make([]math.Vec3, n),
		normals:     sized(src.Normals),
		tangents:    sized(src.Tangents),
		uv:          sized(src.UV),
		uv2:         sized(src.UV2),
		colors:      sized(src.Colors),
		bones:       sized(src.BoneWeights),
		subMeshes:   make([][]int32, len(src.SubMeshes)),
		remap:       make([]int32, n),
		visited:     make([]bool, n),
	}
	for i, sm := range src.SubMeshes {
		r.subMeshes[i] = make([]int32, len(sm))
	}
	r.out.SubMeshes = make([][]int32, len(src.SubMeshes))
	return r
}

// sized allocates a buffer matching an optional channel. Absent or empty
// channels stay nil.
func sized[T any](channel []T) []T {
	if len(channel) == 0 {
		return nil
	}
	return make([]T, len(channel))
}

func (r *reconstructor) load() {
	copy(r.positions, r.src.Positions)
	copy(r.normals, r.src.Normals)
	copy(r.tangents, r.src.Tangents)
	copy(r.uv, r.src.UV)
	copy(r.uv2, r.src.UV2)
	copy(r.colors, r.src.Colors)
	copy(r.bones, r.src.BoneWeights)
	for i, sm := range r.src.SubMeshes {
		copy(r.subMeshes[i], sm)
	}
}

// run rebuilds the mesh keeping the k vertices of lowest rank. Budgets
// below three leave the previous result untouched.
func (r *reconstructor) run(k int) *mesh.Buffers {
	n := len(r.positions)
	if k < MinVertices {
		return &r.out
	}
	r.load()

	if k >= n {
		for i, sm := range r.subMeshes {
			r.out.SubMeshes[i] = sm
		}
		r.publish(n, 0)
		return &r.out
	}

	for i := range r.remap {
		r.remap[i] = noVertex
	}

	vertices, degenerate := 0, 0
	for s, tris := range r.subMeshes {
		for i := 0; i+2 < len(tris); i += 3 {
			a := r.resolve(tris[i], tris[i+1], tris[i+2], k)
			b := r.resolve(tris[i+1], a, tris[i+2], k)
			c := r.resolve(tris[i+2], a, b, k)

			if a == noVertex || b == noVertex || c == noVertex || a == b || b == c || a == c {
				tris[i], tris[i+1], tris[i+2] = noVertex, noVertex, noVertex
				degenerate++
				continue
			}

			for j, idx := range [3]int32{a, b, c} {
				if r.remap[idx] == noVertex {
					r.remap[idx] = int32(vertices)
					vertices++
				}
				tris[i+j] = r.remap[idx]
			}
		}
		r.out.SubMeshes[s] = tris[:compact(tris)]
	}

	applyRemap(r.positions, r.remap, r.visited)
	applyRemap(r.normals, r.remap, r.visited)
	applyRemap(r.tangents, r.remap, r.visited)
	applyRemap(r.uv, r.remap, r.visited)
	applyRemap(r.uv2, r.remap, r.visited)
	applyRemap(r.colors, r.remap, r.visited)
	applyRemap(r.bones, r.remap, r.visited)

	if r.normals != nil {
		r.recomputeNormals(vertices)
	}
	r.publish(vertices, degenerate)
	return &r.out
}

// resolve follows the collapse chain of idx until it reaches a vertex ranked
// below k. It gives up with -1 when the chain ends or lands on one of the
// triangle's other corners.
func (r *reconstructor) resolve(idx, other1, other2 int32, k int) int32 {
	if idx == noVertex {
		return noVertex
	}
	for int(r.permutation[idx]) >= k {
		next := r.collapseMap[idx]
		if next == noVertex || next == other1 || next == other2 {
			return noVertex
		}
		idx = next
	}
	return idx
}

// compact moves the triangles not marked -1 to the front of tris, keeping
// their order, and returns the new index count.
func compact(tris []int32) int {
	w := 0
	for rd := 0; rd+2 < len(tris); rd += 3 {
		if tris[rd] == noVertex {
			continue
		}
		if w != rd {
			tris[w], tris[w+1], tris[w+2] = tris[rd], tris[rd+1], tris[rd+2]
		}
		w += 3
	}
	return w
}

// applyRemap moves buf[i] to buf[remap[i]] in place for every i with
// remap[i] >= 0 by following permutation cycles. remap must be injective
// on its non-negative entries.
func applyRemap[T any](buf []T, remap []int32, visited []bool) {
	if buf == nil {
		return
	}
	clear(visited)
	for i := range buf {
		if remap[i] == noVertex || visited[i] {
			continue
		}
		carry := buf[i]
		j := int32(i)
		for {
			visited[j] = true
			dst := remap[j]
			next := buf[dst]
			buf[dst] = carry
			if remap[dst] == noVertex || visited[dst] {
				break
			}
			carry = next
			j = dst
		}
	}
}

// recomputeNormals averages the face normals around each surviving vertex.
func (r *reconstructor) recomputeNormals(vertices int) {
	normals := r.normals[:vertices]
	clear(normals)
	for _, tris := range r.out.SubMeshes {
		for i := 0; i+2 < len(tris); i += 3 {
			p0 := r.positions[tris[i]]
			p1 := r.positions[tris[i+1]]
			p2 := r.positions[tris[i+2]]
			fn := p1.Sub(p0).Cross(p2.Sub(p1))
			for j := 0; j < 3; j++ {
				normals[tris[i+j]] = normals[tris[i+j]].Add(fn)
			}
		}
	}
	for i := range normals {
		normals[i] = normals[i].Normalize()
	}
}

func (r *reconstructor) publish(vertices, degenerate int) {
	r.out.Positions = r.positions[:vertices]
	r.out.Normals = prefix(r.normals, vertices)
	r.out.Tangents = prefix(r.tangents, vertices)
	r.out.UV = prefix(r.uv, vertices)
	r.out.UV2 = prefix(r.uv2, vertices)
	r.out.Colors = prefix(r.colors, vertices)
	r.out.BoneWeights = prefix(r.bones, vertices)
	r.out.BindPoses = r.src.BindPoses
	r.out.Degenerate = degenerate
}

func prefix[T any](buf []T, n int) []T {
	if buf == nil {
		return nil
	}
	return buf[:n]
}

// Reconstruct returns the mesh reduced to at most k vertices. The result
// aliases buffers owned by the handle; clone it to keep it past the next
// call. k below 3 returns the previous result unchanged.
func (h *Handle) Reconstruct(k int) (*mesh.Buffers, error) {
	if h == nil || h.recon == nil {
		return nil, ErrNotReady
	}
	out := h.recon.run(k)
	h.log.Debug("mesh reconstructed",
		zap.Int("budget", k),
		zap.Int("vertices", out.VertexCount()),
		zap.Int("triangles", out.TriangleCount()),
		zap.Int("degenerate", out.Degenerate))
	return out, nil
}

// Budget converts a fraction of the source vertex count into a vertex
// budget. The fraction is clamped to [0, 1].
func (h *Handle) Budget(amount float32) int {
	amount = min(max(amount, 0), 1)
	return int(gomath.Round(float64(amount) * float64(len(h.permutation))))
}

// ReconstructAmount reconstructs with a budget given as a fraction of the
// source vertex count.
func (h *Handle) ReconstructAmount(amount float32) (*mesh.Buffers, error) {
	if h == nil || h.recon == nil {
		return nil, ErrNotReady
	}
	return h.Reconstruct(h.Budget(amount))
}
