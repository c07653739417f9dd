package mesh

import (
	"image/color"
	"slices"

	"github.com/Faultbox/meshsimplify/pkg/math"
)

// Buffers is a reconstructed mesh. Channels absent from the source stay nil.
//
// Buffers produced by the simplifier may share storage with its working
// buffers: each slice has the logical length of the reduced mesh and the
// capacity of the original. Use Clone to keep a result past the next
// reconstruction.
type Buffers struct {
	Positions   []math.Vec3
	Normals     []math.Vec3
	Tangents    []math.Vec4
	UV          []math.Vec2
	UV2         []math.Vec2
	Colors      []color.RGBA
	BoneWeights []BoneWeight
	BindPoses   []math.Mat4
	SubMeshes   [][]int32

	// Degenerate counts triangles dropped because a collapse chain could
	// not resolve them to three distinct surviving vertices.
	Degenerate int
}

// VertexCount returns the number of vertices.
func (b *Buffers) VertexCount() int {
	return len(b.Positions)
}

// TriangleCount returns the number of triangles over all submeshes.
func (b *Buffers) TriangleCount() int {
	n := 0
	for _, sm := range b.SubMeshes {
		n += len(sm) / 3
	}
	return n
}

// Clone returns a deep copy with capacities trimmed to length.
func (b *Buffers) Clone() *Buffers {
	out := &Buffers{
		Positions:   slices.Clip(slices.Clone(b.Positions)),
		Normals:     slices.Clip(slices.Clone(b.Normals)),
		Tangents:    slices.Clip(slices.Clone(b.Tangents)),
		UV:          slices.Clip(slices.Clone(b.UV)),
		UV2:         slices.Clip(slices.Clone(b.UV2)),
		Colors:      slices.Clip(slices.Clone(b.Colors)),
		BoneWeights: slices.Clip(slices.Clone(b.BoneWeights)),
		BindPoses:   slices.Clip(slices.Clone(b.BindPoses)),
		SubMeshes:   make([][]int32, len(b.SubMeshes)),
		Degenerate:  b.Degenerate,
	}
	for i, sm := range b.SubMeshes {
		out.SubMeshes[i] = slices.Clip(slices.Clone(sm))
	}
	return out
}
