package mesh

import (
	"fmt"

	"github.com/Faultbox/meshsimplify/pkg/math"
)

// TransformRigid fills dst with positions transformed by localToWorld.
// dst must have the same length as positions.
func TransformRigid(localToWorld math.Mat4, positions, dst []math.Vec3) {
	for i, p := range positions {
		dst[i] = localToWorld.TransformVec3(p)
	}
}

// TransformSkinned fills dst with linear-blend-skinned positions:
// sum over the four influences of weight * bone * bindPose * position.
func TransformSkinned(bones, bindPoses []math.Mat4, weights []BoneWeight, positions, dst []math.Vec3) error {
	if len(weights) != len(positions) {
		return fmt.Errorf("%w: %d bone weights for %d vertices", ErrChannelLength, len(weights), len(positions))
	}

	// Pre-multiply once per bone instead of once per influence.
	skin := make([]math.Mat4, len(bones))
	for i := range bones {
		if i >= len(bindPoses) {
			return fmt.Errorf("bone %d has no bind pose", i)
		}
		skin[i] = bones[i].Mul(bindPoses[i])
	}

	for i, p := range positions {
		v := math.Vec4{p.X, p.Y, p.Z, 1}
		var acc math.Vec3
		w := weights[i]
		for j := 0; j < 4; j++ {
			if w.Weight[j] == 0 {
				continue
			}
			b := int(w.Index[j])
			if b < 0 || b >= len(skin) {
				return fmt.Errorf("vertex %d references bone %d of %d", i, b, len(skin))
			}
			s := skin[b].MulVec4(v)
			acc = acc.Add(math.Vec3{X: s[0], Y: s[1], Z: s[2]}.Scale(w.Weight[j]))
		}
		dst[i] = acc
	}
	return nil
}
