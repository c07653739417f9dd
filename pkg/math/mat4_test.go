package math

import (
	"math"
	"testing"
)

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-4
}

func approxVec3(a, b Vec3) bool {
	return approx(a.X, b.X) && approx(a.Y, b.Y) && approx(a.Z, b.Z)
}

func TestMulIdentity(t *testing.T) {
	m := Translate(1, 2, 3)
	result := m.Mul(Identity())
	if result != m {
		t.Errorf("M * I = %v, want %v", result, m)
	}
}

func TestTransformVec3(t *testing.T) {
	tests := []struct {
		name string
		m    Mat4
		in   Vec3
		want Vec3
	}{
		{"translate", Translate(1, 2, 3), Vec3{1, 1, 1}, Vec3{2, 3, 4}},
		{"scale", Scale(2, 3, 4), Vec3{1, 1, 1}, Vec3{2, 3, 4}},
		{"rotate y 90", RotateAxis(Vec3{0, 1, 0}, math.Pi/2), Vec3{1, 0, 0}, Vec3{0, 0, -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.m.TransformVec3(tt.in)
			if !approxVec3(got, tt.want) {
				t.Errorf("TransformVec3(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestInverseTRS(t *testing.T) {
	pos := Vec3{3, -2, 5}
	rot := QuatFromAxisAngle(Vec3{0, 0, 1}, 0.7)
	scale := Vec3{2, 0.5, 4}

	fwd := TRS(pos, rot, scale)
	inv, ok := InverseTRS(pos, rot, scale)
	if !ok {
		t.Fatal("InverseTRS reported singular matrix")
	}

	if !fwd.Mul(inv).ApproxEqual(Identity(), 1e-4) {
		t.Errorf("TRS * InverseTRS = %v, want identity", fwd.Mul(inv))
	}

	p := Vec3{1, 2, 3}
	back := inv.TransformVec3(fwd.TransformVec3(p))
	if !approxVec3(back, p) {
		t.Errorf("round trip = %v, want %v", back, p)
	}
}

func TestInverseTRSZeroScale(t *testing.T) {
	if _, ok := InverseTRS(Vec3{}, QuatIdentity(), Vec3{1, 0, 1}); ok {
		t.Error("expected zero scale to be reported as singular")
	}
}
