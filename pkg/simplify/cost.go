package simplify

import (
	gomath "math"

	"github.com/Faultbox/meshsimplify/pkg/math"
)

const (
	// maxCost seeds the per-vertex minimum search.
	maxCost float32 = 1e7
	// isolatedCost puts vertices without neighbors at the front of the queue.
	isolatedCost float32 = -0.01
	// baseCurvature is the curvature floor of every edge.
	baseCurvature float32 = 0.001
	// seamEpsilon is the edge length under which two vertices are coincident.
	seamEpsilon = gomath.SmallestNonzeroFloat32
)

// topology is the read-only mesh view the cost model evaluates. The live
// graph and the flattened batch snapshot both implement it with the same
// neighbor and face ordering, so both produce bit-identical costs.
type topology interface {
	position(v int32) math.Vec3
	world(v int32) math.Vec3
	normal(v int32) math.Vec3
	texcoord(v int32) math.Vec2
	neighborsOf(v int32) []int32
	facesOf(v int32) []int32
	faceNormalOf(t int32) math.Vec3
	faceHas(t, v int32) bool
	border(v int32) bool
}

type costModel struct {
	useEdgeLength   bool
	useCurvature    bool
	borderCurvature float32
	meshScale       float32
	spheres         sphereSet
}

func newCostModel(opts Options, meshScale float32, spheres sphereSet) *costModel {
	if meshScale <= 0 {
		meshScale = 1
	}
	return &costModel{
		useEdgeLength:   opts.UseEdgeLength,
		useCurvature:    opts.UseCurvature,
		borderCurvature: opts.BorderCurvature,
		meshScale:       meshScale,
		spheres:         spheres,
	}
}

// vertexCost returns the cheapest edge collapse of u and the neighbor it
// collapses into. sides is caller-owned scratch space.
func (m *costModel) vertexCost(t topology, u int32, sides *[]int32) (float32, int32) {
	neighbors := t.neighborsOf(u)
	if len(neighbors) == 0 {
		return isolatedCost, noVertex
	}

	bias := m.spheres.bias(t.world(u))
	border := t.border(u)

	cost, target := maxCost, noVertex
	for _, v := range neighbors {
		c := m.edgeCost(t, u, v, border, bias, sides)
		if target == noVertex || c < cost {
			cost, target = c, v
		}
	}
	return cost, target
}

// edgeCost is the cost of collapsing u onto v.
func (m *costModel) edgeCost(t topology, u, v int32, border bool, bias float32, sides *[]int32) float32 {
	length := float32(1)
	if m.useEdgeLength {
		length = t.position(v).Sub(t.position(u)).Length() / m.meshScale
	}

	if length < seamEpsilon {
		// Coincident seam vertices: penalize normal and UV discontinuity.
		// Sphere relevance does not apply here.
		dn := 1 - t.normal(u).Dot(t.normal(v))
		duv := t.texcoord(u).Distance(t.texcoord(v))
		return m.borderCurvature * (dn + 2*duv)
	}

	s := (*sides)[:0]
	faces := t.facesOf(u)
	for _, f := range faces {
		if t.faceHas(f, v) {
			s = append(s, f)
		}
	}
	*sides = s

	curvature := baseCurvature
	if m.useCurvature {
		for _, f := range faces {
			fn := t.faceNormalOf(f)
			local := float32(1)
			for _, sf := range s {
				local = min(local, (1-fn.Dot(t.faceNormalOf(sf)))/2)
			}
			curvature = max(curvature, local)
		}
	}

	if border && len(s) > 1 {
		curvature = 1
	}
	if m.borderCurvature > 1 && border {
		curvature = m.borderCurvature
	}

	curvature += bias
	return length * curvature
}
