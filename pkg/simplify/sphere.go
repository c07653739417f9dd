package simplify

import "github.com/Faultbox/meshsimplify/pkg/math"

// sphereRadius is the radius of a relevance sphere in its local space.
const sphereRadius = 0.5

// RelevanceSphere raises (or lowers) the collapse cost of vertices inside an
// oriented ellipsoid. The ellipsoid is the unit-diameter sphere transformed
// by Position, Rotation and Scale.
type RelevanceSphere struct {
	Position  math.Vec3
	Rotation  math.Quat
	Scale     math.Vec3
	Relevance float32
}

type compiledSphere struct {
	worldToLocal math.Mat4
	relevance    float32
}

// sphereSet holds the inverted transforms, evaluated per vertex.
type sphereSet []compiledSphere

// compileSpheres inverts each sphere transform. Spheres with a zero scale
// component enclose nothing and are dropped.
func compileSpheres(spheres []RelevanceSphere) sphereSet {
	set := make(sphereSet, 0, len(spheres))
	for _, s := range spheres {
		inv, ok := math.InverseTRS(s.Position, s.Rotation, s.Scale)
		if !ok {
			continue
		}
		set = append(set, compiledSphere{worldToLocal: inv, relevance: s.Relevance})
	}
	return set
}

// bias returns the relevance of the last sphere containing p, or 0.
func (s sphereSet) bias(p math.Vec3) float32 {
	var bias float32
	for i := range s {
		if s[i].worldToLocal.TransformVec3(p).Length() <= sphereRadius {
			bias = s[i].relevance
		}
	}
	return bias
}
