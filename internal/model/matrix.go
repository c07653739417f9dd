package model

import (
	"github.com/Faultbox/meshsimplify/pkg/formats"
	"github.com/Faultbox/meshsimplify/pkg/math"
)

// NodeMatrix returns the transform applied to a node's vertices: the
// inherited hierarchy matrix followed by the node's own offset and 3x3
// matrix, which children do not inherit.
func NodeMatrix(node *formats.RSMNode, rsm *formats.RSM, timeMs float32) math.Mat4 {
	visited := make(map[string]bool)
	m := hierarchyMatrix(node, rsm, timeMs, visited)
	m = m.Mul(math.Translate(node.Offset[0], node.Offset[1], node.Offset[2]))
	return m.Mul(math.FromMat3x3(node.Matrix))
}

// hierarchyMatrix is parent * Position * Rotation * Scale.
func hierarchyMatrix(node *formats.RSMNode, rsm *formats.RSM, timeMs float32, visited map[string]bool) math.Mat4 {
	if visited[node.Name] {
		return math.Identity()
	}
	visited[node.Name] = true

	local := math.Translate(node.Position[0], node.Position[1], node.Position[2])

	// Keyframes replace the static axis-angle rotation.
	if len(node.RotKeys) > 0 {
		local = local.Mul(rotationAt(node.RotKeys, timeMs).ToMat4())
	} else if node.RotAngle != 0 {
		axis := math.Vec3From(node.RotAxis)
		if axis.Length() > 1e-6 {
			local = local.Mul(math.RotateAxis(axis.Normalize(), node.RotAngle))
		}
	}

	local = local.Mul(math.Scale(node.Scale[0], node.Scale[1], node.Scale[2]))
	if len(node.ScaleKeys) > 0 {
		s := scaleAt(node.ScaleKeys, timeMs)
		local = local.Mul(math.Scale(s[0], s[1], s[2]))
	}

	if node.Parent != "" && node.Parent != node.Name {
		if parent := rsm.Node(node.Parent); parent != nil {
			return hierarchyMatrix(parent, rsm, timeMs, visited).Mul(local)
		}
	}
	return local
}

// keyframeSpan finds the keys around timeMs and the blend factor between
// them. Keys are sorted by frame.
func keyframeSpan(n int, frame func(int) int32, timeMs float32) (prev, next int, t float32) {
	for i := 0; i < n; i++ {
		if float32(frame(i)) > timeMs {
			next = i
			if i == 0 {
				return 0, 0, 0
			}
			f0, f1 := frame(prev), frame(next)
			if f1 != f0 {
				t = (timeMs - float32(f0)) / float32(f1-f0)
			}
			return prev, next, t
		}
		prev = i
	}
	return prev, prev, 0
}

func rotationAt(keys []formats.RSMRotKeyframe, timeMs float32) math.Quat {
	prev, next, t := keyframeSpan(len(keys), func(i int) int32 { return keys[i].Frame }, timeMs)
	q0 := quatFrom(keys[prev].Quaternion)
	if prev == next {
		return q0
	}
	return nlerp(q0, quatFrom(keys[next].Quaternion), t)
}

func scaleAt(keys []formats.RSMScaleKeyframe, timeMs float32) [3]float32 {
	prev, next, t := keyframeSpan(len(keys), func(i int) int32 { return keys[i].Frame }, timeMs)
	s0, s1 := keys[prev].Scale, keys[next].Scale
	return [3]float32{
		s0[0] + t*(s1[0]-s0[0]),
		s0[1] + t*(s1[1]-s0[1]),
		s0[2] + t*(s1[2]-s0[2]),
	}
}

func quatFrom(q [4]float32) math.Quat {
	return math.Quat{X: q[0], Y: q[1], Z: q[2], W: q[3]}
}

// nlerp blends two rotations along the shorter arc.
func nlerp(a, b math.Quat, t float32) math.Quat {
	if a.X*b.X+a.Y*b.Y+a.Z*b.Z+a.W*b.W < 0 {
		b = math.Quat{X: -b.X, Y: -b.Y, Z: -b.Z, W: -b.W}
	}
	return math.Quat{
		X: a.X + t*(b.X-a.X),
		Y: a.Y + t*(b.Y-a.Y),
		Z: a.Z + t*(b.Z-a.Z),
		W: a.W + t*(b.W-a.W),
	}.Normalize()
}
