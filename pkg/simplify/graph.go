package simplify

import (
	"slices"

	"github.com/Faultbox/meshsimplify/pkg/math"
	"github.com/Faultbox/meshsimplify/pkg/mesh"
)

// noVertex marks an absent vertex reference (no collapse target, dropped corner).
const noVertex int32 = -1

// Vertex is a node of the adjacency graph. Its ID is its index in the source buffers.
type Vertex struct {
	ID       int32
	Position math.Vec3
	World    math.Vec3
	Normal   math.Vec3
	UV       math.Vec2

	neighbors []int32
	faces     []int32

	cost   float32
	target int32
	slot   int

	gen  uint32
	dead bool
}

// Compare orders vertices by collapse cost.
func (v *Vertex) Compare(other *Vertex) int {
	switch {
	case v.cost < other.cost:
		return -1
	case v.cost > other.cost:
		return 1
	}
	return 0
}

// HeapSlot returns the vertex position in the collapse queue.
func (v *Vertex) HeapSlot() int { return v.slot }

// SetHeapSlot is called by the queue when the vertex moves.
func (v *Vertex) SetHeapSlot(slot int) { v.slot = slot }

// Cost returns the current collapse cost.
func (v *Vertex) Cost() float32 { return v.cost }

// Target returns the collapse target ID, or -1.
func (v *Vertex) Target() int32 { return v.target }

// Neighbors returns the adjacent vertex IDs. The slice is owned by the graph.
func (v *Vertex) Neighbors() []int32 { return v.neighbors }

// Faces returns the incident triangle indices. The slice is owned by the graph.
func (v *Vertex) Faces() []int32 { return v.faces }

// Triangle is a face of the adjacency graph.
type Triangle struct {
	// Index is the creation order over all submeshes.
	Index   int32
	SubMesh int32

	verts  [3]int32
	uvs    [3]int32
	normal math.Vec3

	// faceSlot[c] is this triangle's position in verts[c]'s face list.
	faceSlot [3]int32

	gen  uint32
	dead bool
}

// Vertices returns the three corner vertex IDs.
func (t *Triangle) Vertices() [3]int32 { return t.verts }

// UVs returns the per-corner UV indices.
func (t *Triangle) UVs() [3]int32 { return t.uvs }

// Normal returns the cached unit normal (zero for a degenerate triangle).
func (t *Triangle) Normal() math.Vec3 { return t.normal }

func (t *Triangle) corner(v int32) int {
	for c := 0; c < 3; c++ {
		if t.verts[c] == v {
			return c
		}
	}
	return -1
}

func (t *Triangle) has(v int32) bool {
	return t.corner(v) >= 0
}

// TriangleRef is a generation-checked triangle reference.
type TriangleRef struct {
	Index int32
	Gen   uint32
}

// graph is the mutable adjacency representation. Vertices and triangles live
// in dense arenas that never grow after construction, so pointers into them
// stay valid; deleted entries are unlinked and marked dead, never removed.
type graph struct {
	verts []Vertex
	tris  []Triangle
	uv    []math.Vec2
}

func newGraph(src *mesh.Source) *graph {
	n := src.VertexCount()
	g := &graph{
		verts: make([]Vertex, n),
		tris:  make([]Triangle, 0, src.TriangleCount()),
		uv:    src.UV,
	}

	world := src.WorldPositions()
	coincident := make(map[math.Vec3][]int32, n)
	for i := range g.verts {
		v := &g.verts[i]
		v.ID = int32(i)
		v.Position = src.Positions[i]
		v.World = world[i]
		if len(src.Normals) > 0 {
			v.Normal = src.Normals[i]
		}
		if len(src.UV) > 0 {
			v.UV = src.UV[i]
		}
		v.target = noVertex
		v.slot = -1

		// Vertices split along a seam share a position; link them so the
		// seam can collapse through the zero-length cost branch.
		for _, other := range coincident[v.Position] {
			g.addNeighbor(v.ID, other)
			g.addNeighbor(other, v.ID)
		}
		coincident[v.Position] = append(coincident[v.Position], v.ID)
	}

	for sub, indices := range src.SubMeshes {
		for i := 0; i+2 < len(indices); i += 3 {
			a, b, c := indices[i], indices[i+1], indices[i+2]
			if a == b || b == c || a == c {
				continue
			}
			t := g.addTriangle(int32(sub), a, b, c)
			g.shareUV(t)
		}
	}
	return g
}

// vertex returns the vertex with the given ID.
func (g *graph) vertex(id int32) *Vertex {
	return &g.verts[id]
}

// triangle resolves a reference, reporting false if it was deleted since.
func (g *graph) triangle(ref TriangleRef) (*Triangle, bool) {
	t := &g.tris[ref.Index]
	if t.dead || t.gen != ref.Gen {
		return nil, false
	}
	return t, true
}

func (g *graph) ref(ti int32) TriangleRef {
	return TriangleRef{Index: ti, Gen: g.tris[ti].gen}
}

func (g *graph) addTriangle(sub, a, b, c int32) int32 {
	ti := int32(len(g.tris))
	g.tris = append(g.tris, Triangle{
		Index:   ti,
		SubMesh: sub,
		verts:   [3]int32{a, b, c},
		uvs:     [3]int32{a, b, c},
	})
	t := &g.tris[ti]
	t.normal = g.faceNormal(t)

	for i := 0; i < 3; i++ {
		v := &g.verts[t.verts[i]]
		t.faceSlot[i] = int32(len(v.faces))
		v.faces = append(v.faces, ti)
		for j := 0; j < 3; j++ {
			if i != j {
				g.addNeighbor(t.verts[i], t.verts[j])
			}
		}
	}
	return ti
}

// shareUV points a corner at another triangle's UV index for the same vertex
// when both indices hold the same coordinate.
func (g *graph) shareUV(ti int32) {
	if len(g.uv) == 0 {
		return
	}
	t := &g.tris[ti]
	for c := 0; c < 3; c++ {
		v := &g.verts[t.verts[c]]
		for _, fi := range v.faces {
			if fi == ti {
				continue
			}
			f := &g.tris[fi]
			other := f.uvs[f.corner(v.ID)]
			if other != t.uvs[c] && g.uv[other] == g.uv[t.uvs[c]] {
				t.uvs[c] = other
			}
		}
	}
}

func (g *graph) faceNormal(t *Triangle) math.Vec3 {
	p0 := g.verts[t.verts[0]].Position
	p1 := g.verts[t.verts[1]].Position
	p2 := g.verts[t.verts[2]].Position
	return p1.Sub(p0).Cross(p2.Sub(p1)).Normalize()
}

func (g *graph) addNeighbor(v, n int32) {
	vert := &g.verts[v]
	if !slices.Contains(vert.neighbors, n) {
		vert.neighbors = append(vert.neighbors, n)
	}
}

func (g *graph) removeNeighbor(v, n int32) {
	vert := &g.verts[v]
	if i := slices.Index(vert.neighbors, n); i >= 0 {
		vert.neighbors = slices.Delete(vert.neighbors, i, i+1)
	}
}

// removeIfNonNeighbor drops n from v's neighbors unless a face still joins them.
func (g *graph) removeIfNonNeighbor(v, n int32) {
	vert := &g.verts[v]
	i := slices.Index(vert.neighbors, n)
	if i < 0 {
		return
	}
	for _, fi := range vert.faces {
		if g.tris[fi].has(n) {
			return
		}
	}
	vert.neighbors = slices.Delete(vert.neighbors, i, i+1)
}

// removeTriangle unlinks a triangle from its three vertices in O(1) per
// corner by moving the last face of each list into the vacated slot.
func (g *graph) removeTriangle(ti int32) {
	t := &g.tris[ti]
	for c := 0; c < 3; c++ {
		vid := t.verts[c]
		v := &g.verts[vid]
		slot := t.faceSlot[c]
		last := len(v.faces) - 1

		moved := v.faces[last]
		v.faces[slot] = moved
		mt := &g.tris[moved]
		mt.faceSlot[mt.corner(vid)] = slot
		v.faces = v.faces[:last]
	}

	for c := 0; c < 3; c++ {
		a, b := t.verts[c], t.verts[(c+1)%3]
		g.removeIfNonNeighbor(a, b)
		g.removeIfNonNeighbor(b, a)
	}

	t.dead = true
	t.gen++
}

// replaceVertex rewires corner from to to, fixing the neighbor sets of the
// other two corners and appending the triangle to to's face list.
func (g *graph) replaceVertex(ti, from, to int32) {
	t := &g.tris[ti]
	c := t.corner(from)
	if c < 0 {
		return
	}
	t.verts[c] = to

	for j := 0; j < 3; j++ {
		if j == c {
			continue
		}
		n := t.verts[j]
		g.removeNeighbor(n, from)
		g.addNeighbor(n, to)
		g.addNeighbor(to, n)
	}

	v := &g.verts[to]
	t.faceSlot[c] = int32(len(v.faces))
	v.faces = append(v.faces, ti)
	t.normal = g.faceNormal(t)
}

// destroyVertex removes v from every neighbor and marks it dead.
func (g *graph) destroyVertex(id int32) {
	v := &g.verts[id]
	for _, n := range v.neighbors {
		g.removeNeighbor(n, id)
	}
	v.neighbors = nil
	v.faces = nil
	v.dead = true
	v.gen++
}

// collapse merges u into v (v may be nil) and returns, in affected, the
// vertices whose cost must be re-evaluated.
func (g *graph) collapse(u, v *Vertex, affected []int32, straddling []TriangleRef) ([]int32, []TriangleRef) {
	affected = affected[:0]
	straddling = straddling[:0]

	for _, n := range u.neighbors {
		if n != u.ID {
			affected = append(affected, n)
		}
	}

	if v == nil {
		g.destroyVertex(u.ID)
		return affected, straddling
	}

	for _, fi := range u.faces {
		if g.tris[fi].has(v.ID) {
			straddling = append(straddling, g.ref(fi))
		}
	}
	for i := len(straddling) - 1; i >= 0; i-- {
		if _, ok := g.triangle(straddling[i]); ok {
			g.removeTriangle(straddling[i].Index)
		}
	}

	for i := len(u.faces) - 1; i >= 0; i-- {
		g.replaceVertex(u.faces[i], u.ID, v.ID)
	}
	g.destroyVertex(u.ID)

	return affected, straddling
}

// isBorder reports whether some neighbor shares exactly one face with v.
func (g *graph) isBorder(id int32) bool {
	v := &g.verts[id]
	for _, n := range v.neighbors {
		shared := 0
		for _, fi := range v.faces {
			if g.tris[fi].has(n) {
				shared++
			}
		}
		if shared == 1 {
			return true
		}
	}
	return false
}

// topology implementation over the live graph.

func (g *graph) position(v int32) math.Vec3     { return g.verts[v].Position }
func (g *graph) world(v int32) math.Vec3        { return g.verts[v].World }
func (g *graph) normal(v int32) math.Vec3       { return g.verts[v].Normal }
func (g *graph) texcoord(v int32) math.Vec2     { return g.verts[v].UV }
func (g *graph) neighborsOf(v int32) []int32    { return g.verts[v].neighbors }
func (g *graph) facesOf(v int32) []int32        { return g.verts[v].faces }
func (g *graph) faceNormalOf(t int32) math.Vec3 { return g.tris[t].normal }
func (g *graph) faceHas(t, v int32) bool        { return g.tris[t].has(v) }
func (g *graph) border(v int32) bool            { return g.isBorder(v) }
