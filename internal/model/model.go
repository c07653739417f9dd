// Package model converts parsed RSM models into simplifier mesh sources.
package model

import (
	"errors"
	"image/color"
	"slices"

	"github.com/Faultbox/meshsimplify/pkg/encoding"
	"github.com/Faultbox/meshsimplify/pkg/formats"
	"github.com/Faultbox/meshsimplify/pkg/math"
	"github.com/Faultbox/meshsimplify/pkg/mesh"
)

// ErrEmptyModel is returned when a model has no usable faces.
var ErrEmptyModel = errors.New("model has no usable faces")

// degenerateArea is the face normal magnitude below which a face is skipped.
const degenerateArea = 1e-5

// Options controls mesh extraction.
type Options struct {
	// AnimTimeMs selects the animation pose.
	AnimTimeMs float32
	// ForceTwoSided emits back faces for every face, not only two-sided ones.
	ForceTwoSided bool
	// Placement, when set, maps model space to world space and fills
	// Source.World.
	Placement *math.Mat4
}

// Model is an RSM model flattened into one mesh with a submesh per texture.
type Model struct {
	Source *mesh.Source
	// Textures holds the normalized texture path of each submesh.
	Textures []string
	// Skipped counts faces dropped for bad vertex references or zero area.
	Skipped int
}

// vertexKey identifies an output vertex. Faces that share a node vertex
// and texcoord share the output vertex; back faces get their own copy so
// their normals do not cancel.
type vertexKey struct {
	node     int
	vertex   uint16
	texcoord uint16
	back     bool
}

type builder struct {
	src     *mesh.Source
	index   map[vertexKey]int32
	groups  map[int][]int32
	skipped int
}

// Build flattens every node of rsm into model space. The RSM Y axis points
// down, so Y is negated.
func Build(rsm *formats.RSM, opts Options) (*Model, error) {
	b := &builder{
		src:    &mesh.Source{},
		index:  make(map[vertexKey]int32),
		groups: make(map[int][]int32),
	}

	for ni := range rsm.Nodes {
		node := &rsm.Nodes[ni]
		m := NodeMatrix(node, rsm, opts.AnimTimeMs)
		for fi := range node.Faces {
			b.addFace(ni, node, &node.Faces[fi], m, opts.ForceTwoSided)
		}
	}
	if len(b.groups) == 0 {
		return nil, ErrEmptyModel
	}

	textures := make([]int, 0, len(b.groups))
	for tex := range b.groups {
		textures = append(textures, tex)
	}
	slices.Sort(textures)

	model := &Model{Source: b.src, Skipped: b.skipped}
	for _, tex := range textures {
		b.src.SubMeshes = append(b.src.SubMeshes, b.groups[tex])
		name := ""
		if tex >= 0 && tex < len(rsm.Textures) {
			name = encoding.NormalizePath(rsm.Textures[tex])
		}
		model.Textures = append(model.Textures, name)
	}
	b.smoothNormals()
	if opts.Placement != nil {
		b.src.World = make([]math.Vec3, len(b.src.Positions))
		mesh.TransformRigid(*opts.Placement, b.src.Positions, b.src.World)
	}
	return model, nil
}

func (b *builder) addFace(ni int, node *formats.RSMNode, face *formats.RSMFace, m math.Mat4, forceTwoSided bool) {
	var corners [3]math.Vec3
	for c, vid := range face.VertexIDs {
		if int(vid) >= len(node.Vertices) {
			b.skipped++
			return
		}
		corners[c] = transform(m, node.Vertices[vid])
	}
	if corners[1].Sub(corners[0]).Cross(corners[2].Sub(corners[1])).Length() < degenerateArea {
		b.skipped++
		return
	}

	tex := 0
	if int(face.TextureID) < len(node.TextureIDs) {
		tex = int(node.TextureIDs[face.TextureID])
	}

	front := [3]int32{
		b.vertex(ni, node, face, 0, corners[0], false),
		b.vertex(ni, node, face, 1, corners[1], false),
		b.vertex(ni, node, face, 2, corners[2], false),
	}
	b.groups[tex] = append(b.groups[tex], front[0], front[1], front[2])

	if face.TwoSide != 0 || forceTwoSided {
		back := [3]int32{
			b.vertex(ni, node, face, 2, corners[2], true),
			b.vertex(ni, node, face, 1, corners[1], true),
			b.vertex(ni, node, face, 0, corners[0], true),
		}
		b.groups[tex] = append(b.groups[tex], back[0], back[1], back[2])
	}
}

// vertex returns the output index for corner c of face, adding it if new.
func (b *builder) vertex(ni int, node *formats.RSMNode, face *formats.RSMFace, c int, pos math.Vec3, back bool) int32 {
	key := vertexKey{node: ni, vertex: face.VertexIDs[c], texcoord: face.TexCoordIDs[c], back: back}
	if idx, ok := b.index[key]; ok {
		return idx
	}

	var (
		uv  math.Vec2
		col = color.RGBA{255, 255, 255, 255}
	)
	if int(key.texcoord) < len(node.TexCoords) {
		tc := node.TexCoords[key.texcoord]
		uv = math.Vec2{X: tc.U, Y: tc.V}
		col = color.RGBA{R: tc.Color[0], G: tc.Color[1], B: tc.Color[2], A: tc.Color[3]}
	}

	idx := int32(len(b.src.Positions))
	b.src.Positions = append(b.src.Positions, pos)
	b.src.Normals = append(b.src.Normals, math.Vec3{})
	b.src.UV = append(b.src.UV, uv)
	b.src.Colors = append(b.src.Colors, col)
	b.index[key] = idx
	return idx
}

func transform(m math.Mat4, v [3]float32) math.Vec3 {
	p := m.TransformVec3(math.Vec3From(v))
	p.Y = -p.Y
	return p
}

// smoothNormals accumulates face normals per vertex, then averages
// vertices on the same side that share a quantized position.
func (b *builder) smoothNormals() {
	const epsilon float32 = 0.001

	src := b.src
	for _, tris := range src.SubMeshes {
		for i := 0; i+2 < len(tris); i += 3 {
			p0, p1, p2 := src.Positions[tris[i]], src.Positions[tris[i+1]], src.Positions[tris[i+2]]
			n := p1.Sub(p0).Cross(p2.Sub(p1)).Normalize()
			for _, idx := range tris[i : i+3] {
				src.Normals[idx] = src.Normals[idx].Add(n)
			}
		}
	}

	back := make([]bool, len(src.Positions))
	for key, idx := range b.index {
		back[idx] = key.back
	}

	type posKey struct {
		x, y, z int32
		back    bool
	}
	groups := make(map[posKey][]int32)
	for i, p := range src.Positions {
		k := posKey{int32(p.X / epsilon), int32(p.Y / epsilon), int32(p.Z / epsilon), back[i]}
		groups[k] = append(groups[k], int32(i))
	}
	for _, idxs := range groups {
		var sum math.Vec3
		for _, idx := range idxs {
			sum = sum.Add(src.Normals[idx])
		}
		n := sum.Normalize()
		for _, idx := range idxs {
			src.Normals[idx] = n
		}
	}
}
