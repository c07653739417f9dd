// Package mesh defines the flat vertex/index buffers exchanged with the simplifier:
// the Source it consumes and the Buffers it produces.
package mesh

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/Faultbox/meshsimplify/pkg/math"
)

// Source validation errors.
var (
	ErrNoVertices      = errors.New("mesh has no vertices")
	ErrChannelLength   = errors.New("attribute channel length mismatch")
	ErrIndexCount      = errors.New("index buffer length is not a multiple of 3")
	ErrIndexOutOfRange = errors.New("triangle index out of range")
)

// BoneWeight holds up to four bone influences for a skinned vertex.
type BoneWeight struct {
	Index  [4]int32
	Weight [4]float32
}

// Source is a mesh as delivered by an acquisition layer. Every per-vertex
// channel other than Positions is optional; an empty channel counts as
// absent, and a present one must have len(Positions) entries.
type Source struct {
	Positions   []math.Vec3
	Normals     []math.Vec3
	Tangents    []math.Vec4
	UV          []math.Vec2
	UV2         []math.Vec2
	Colors      []color.RGBA
	BoneWeights []BoneWeight
	BindPoses   []math.Mat4

	// SubMeshes holds one triangle list (3 indices per triangle) per submesh.
	SubMeshes [][]int32

	// World holds world-space positions computed by an external transform
	// pass. When nil, Positions are used.
	World []math.Vec3
}

// VertexCount returns the number of vertices.
func (s *Source) VertexCount() int {
	return len(s.Positions)
}

// TriangleCount returns the number of triangles over all submeshes.
func (s *Source) TriangleCount() int {
	n := 0
	for _, sm := range s.SubMeshes {
		n += len(sm) / 3
	}
	return n
}

// WorldPositions returns World, or Positions when no world pass ran.
func (s *Source) WorldPositions() []math.Vec3 {
	if len(s.World) > 0 {
		return s.World
	}
	return s.Positions
}

// Validate checks channel lengths and index ranges.
func (s *Source) Validate() error {
	n := len(s.Positions)
	if n == 0 {
		return ErrNoVertices
	}

	channels := []struct {
		name string
		len  int
	}{
		{"normals", len(s.Normals)},
		{"tangents", len(s.Tangents)},
		{"uv", len(s.UV)},
		{"uv2", len(s.UV2)},
		{"colors", len(s.Colors)},
		{"bone weights", len(s.BoneWeights)},
		{"world", len(s.World)},
	}
	for _, c := range channels {
		if c.len != 0 && c.len != n {
			return fmt.Errorf("%w: %s has %d entries, want %d", ErrChannelLength, c.name, c.len, n)
		}
	}

	for sub, indices := range s.SubMeshes {
		if len(indices)%3 != 0 {
			return fmt.Errorf("%w: submesh %d has %d indices", ErrIndexCount, sub, len(indices))
		}
		for _, idx := range indices {
			if idx < 0 || int(idx) >= n {
				return fmt.Errorf("%w: submesh %d references %d of %d", ErrIndexOutOfRange, sub, idx, n)
			}
		}
	}
	return nil
}

// Bounds returns the bounding box of the local positions.
func (s *Source) Bounds() math.Bounds {
	return math.BoundsOf(s.Positions)
}
