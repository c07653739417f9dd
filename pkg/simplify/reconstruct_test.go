package simplify

import (
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/Faultbox/meshsimplify/pkg/math"
	"github.com/Faultbox/meshsimplify/pkg/mesh"
)

// checkIndices verifies that every triangle has three distinct in-range corners.
func checkIndices(t *testing.T, out *mesh.Buffers) {
	t.Helper()
	n := int32(out.VertexCount())
	for s, tris := range out.SubMeshes {
		if len(tris)%3 != 0 {
			t.Fatalf("submesh %d has %d indices", s, len(tris))
		}
		for i := 0; i+2 < len(tris); i += 3 {
			a, b, c := tris[i], tris[i+1], tris[i+2]
			if a == b || b == c || a == c {
				t.Fatalf("submesh %d triangle %d repeats a corner: %d %d %d", s, i/3, a, b, c)
			}
			for _, idx := range tris[i : i+3] {
				if idx < 0 || idx >= n {
					t.Fatalf("submesh %d triangle %d index %d out of range [0,%d)", s, i/3, idx, n)
				}
			}
		}
	}
}

// checkTriangles verifies every surviving triangle has three distinct,
// in-range corners and every vertex is referenced.
func checkTriangles(t *testing.T, out *mesh.Buffers) {
	t.Helper()
	checkIndices(t, out)
	used := make([]bool, out.VertexCount())
	for _, tris := range out.SubMeshes {
		for _, idx := range tris {
			used[idx] = true
		}
	}
	for i, u := range used {
		if !u {
			t.Errorf("vertex %d is not referenced by any triangle", i)
		}
	}
}

func TestReconstructTetrahedron(t *testing.T) {
	h := mustBuild(t, tetrahedron(), nil, DefaultOptions())

	out, err := h.Reconstruct(3)
	if err != nil {
		t.Fatalf("Reconstruct failed: %v", err)
	}
	if out.VertexCount() != 3 {
		t.Errorf("expected 3 vertices, got %d", out.VertexCount())
	}
	if out.TriangleCount() != 2 || out.Degenerate != 2 {
		t.Errorf("expected 2 triangles and 2 degenerate, got %d and %d", out.TriangleCount(), out.Degenerate)
	}
	checkTriangles(t, out)

	// Both survivors span the same three vertices, front and back.
	tris := out.SubMeshes[0]
	first, second := slices.Clone(tris[:3]), slices.Clone(tris[3:6])
	slices.Sort(first)
	slices.Sort(second)
	if !slices.Equal(first, second) {
		t.Errorf("expected survivors over one vertex set, got %v and %v", tris[:3], tris[3:6])
	}

	full, err := h.Reconstruct(4)
	if err != nil {
		t.Fatalf("Reconstruct failed: %v", err)
	}
	if full.TriangleCount() != 4 || full.VertexCount() != 4 {
		t.Errorf("expected full mesh, got %d vertices %d triangles", full.VertexCount(), full.TriangleCount())
	}
}

func TestReconstructFastPath(t *testing.T) {
	src := grid(4)
	h := mustBuild(t, src, nil, DefaultOptions())

	for _, k := range []int{16, 40} {
		out, err := h.Reconstruct(k)
		if err != nil {
			t.Fatalf("k=%d: %v", k, err)
		}
		if !slices.Equal(out.Positions, src.Positions) {
			t.Errorf("k=%d: positions differ from source", k)
		}
		if !slices.Equal(out.Normals, src.Normals) {
			t.Errorf("k=%d: normals differ from source", k)
		}
		if !slices.Equal(out.SubMeshes[0], src.SubMeshes[0]) {
			t.Errorf("k=%d: indices differ from source", k)
		}
		if out.Degenerate != 0 {
			t.Errorf("k=%d: expected no degenerate triangles, got %d", k, out.Degenerate)
		}
	}
}

func TestReconstructTracksAttributes(t *testing.T) {
	const side = 6
	h := mustBuild(t, grid(side), nil, DefaultOptions())
	perm := h.Permutation()

	for _, k := range []int{35, 30, 20, 12, 6, 3} {
		out, err := h.Reconstruct(k)
		if err != nil {
			t.Fatalf("k=%d: %v", k, err)
		}
		if out.VertexCount() > k {
			t.Fatalf("k=%d: got %d vertices", k, out.VertexCount())
		}
		checkTriangles(t, out)

		for j, p := range out.Positions {
			if out.UV[j] != (math.Vec2{X: p.X, Y: p.Y}) {
				t.Fatalf("k=%d vertex %d: UV %v does not match position %v", k, j, out.UV[j], p)
			}
			orig := int(p.Y)*side + int(p.X)
			if int(out.Colors[j].R) != orig {
				t.Fatalf("k=%d vertex %d: color tag %d, want %d", k, j, out.Colors[j].R, orig)
			}
			if int(perm[orig]) >= k {
				t.Fatalf("k=%d: vertex %d of rank %d survived", k, orig, perm[orig])
			}

			nrm := out.Normals[j]
			if !approx(nrm.X, 0) || !approx(nrm.Y, 0) {
				t.Fatalf("k=%d vertex %d: normal %v leaves the plane", k, j, nrm)
			}
			if l := nrm.Length(); !approx(l, 0) && !approx(l, 1) {
				t.Fatalf("k=%d vertex %d: normal length %f", k, j, l)
			}
		}
	}
}

func TestReconstructBoneWeights(t *testing.T) {
	src := tetrahedron()
	src.BindPoses = []math.Mat4{math.Identity(), math.Translate(1, 2, 3)}
	for i := range src.Positions {
		src.BoneWeights = append(src.BoneWeights, mesh.BoneWeight{
			Index:  [4]int32{int32(i)},
			Weight: [4]float32{1},
		})
	}
	h := mustBuild(t, src, nil, DefaultOptions())

	out, err := h.Reconstruct(3)
	if err != nil {
		t.Fatalf("Reconstruct failed: %v", err)
	}
	if len(out.BindPoses) != 2 || out.BindPoses[1] != src.BindPoses[1] {
		t.Errorf("expected bind poses to pass through, got %v", out.BindPoses)
	}
	if len(out.BoneWeights) != out.VertexCount() {
		t.Fatalf("expected %d bone weights, got %d", out.VertexCount(), len(out.BoneWeights))
	}
	for j, p := range out.Positions {
		orig := slices.Index(src.Positions, p)
		if out.BoneWeights[j].Index[0] != int32(orig) {
			t.Errorf("vertex %d: bone weight of %d, want %d", j, out.BoneWeights[j].Index[0], orig)
		}
	}
	if out.Normals != nil || out.UV != nil || out.Tangents != nil {
		t.Error("expected absent channels to stay nil")
	}
}

func TestReconstructMonotonic(t *testing.T) {
	for _, size := range []int{5, 8, 12} {
		t.Run(fmt.Sprintf("bumpy%d", size), func(t *testing.T) {
			h := mustBuild(t, bumpy(size), nil, DefaultOptions())
			n := h.VertexCount()
			prev := 0
			for k := 3; k <= n; k++ {
				out, err := h.Reconstruct(k)
				if err != nil {
					t.Fatalf("k=%d: %v", k, err)
				}
				if got := out.VertexCount(); got < prev || got > k {
					t.Errorf("k=%d: vertex count %d after %d", k, got, prev)
				}
				prev = out.VertexCount()
			}
			if prev != n {
				t.Errorf("expected all %d vertices at full budget, got %d", n, prev)
			}
		})
	}
}

func TestReconstructBelowMinimum(t *testing.T) {
	h := mustBuild(t, grid(4), nil, DefaultOptions())

	empty, err := h.Reconstruct(2)
	if err != nil {
		t.Fatalf("Reconstruct failed: %v", err)
	}
	if empty.VertexCount() != 0 || empty.TriangleCount() != 0 {
		t.Errorf("expected empty result before any reconstruction, got %d vertices", empty.VertexCount())
	}

	prev, err := h.Reconstruct(10)
	if err != nil {
		t.Fatalf("Reconstruct failed: %v", err)
	}
	count := prev.VertexCount()
	again, err := h.Reconstruct(1)
	if err != nil {
		t.Fatalf("Reconstruct failed: %v", err)
	}
	if again != prev || again.VertexCount() != count {
		t.Errorf("expected k=1 to return the previous result")
	}
}

func TestReconstructReusesBuffers(t *testing.T) {
	h := mustBuild(t, grid(5), nil, DefaultOptions())

	a, err := h.Reconstruct(12)
	if err != nil {
		t.Fatalf("Reconstruct failed: %v", err)
	}
	if cap(a.Positions) != 25 {
		t.Errorf("expected capacity of the source, got %d", cap(a.Positions))
	}
	kept := a.Clone()

	b, err := h.Reconstruct(6)
	if err != nil {
		t.Fatalf("Reconstruct failed: %v", err)
	}
	if a != b {
		t.Error("expected the same buffers to be returned")
	}

	c, err := h.Reconstruct(12)
	if err != nil {
		t.Fatalf("Reconstruct failed: %v", err)
	}
	if !slices.Equal(c.Positions, kept.Positions) || !slices.Equal(c.SubMeshes[0], kept.SubMeshes[0]) {
		t.Error("expected reconstruction to be repeatable")
	}
}

func TestReconstructNotReady(t *testing.T) {
	var h *Handle
	if _, err := h.Reconstruct(3); !errors.Is(err, ErrNotReady) {
		t.Errorf("expected ErrNotReady, got %v", err)
	}
	if _, err := (&Handle{}).ReconstructAmount(0.5); !errors.Is(err, ErrNotReady) {
		t.Errorf("expected ErrNotReady, got %v", err)
	}
}

func TestBudget(t *testing.T) {
	h := mustBuild(t, grid(5), nil, DefaultOptions())

	tests := []struct {
		amount float32
		want   int
	}{
		{0.5, 13},
		{0.1, 3},
		{0.08, 2},
		{0, 0},
		{-1, 0},
		{1, 25},
		{2, 25},
	}
	for _, tt := range tests {
		if got := h.Budget(tt.amount); got != tt.want {
			t.Errorf("Budget(%v) = %d, want %d", tt.amount, got, tt.want)
		}
	}
}

func TestReconstructAmount(t *testing.T) {
	h := mustBuild(t, grid(5), nil, DefaultOptions())

	tests := []struct {
		amount float32
		max    int
	}{
		{0.5, 13},
		{1, 25},
		{2, 25},
		{0.2, 5},
	}
	for _, tt := range tests {
		out, err := h.ReconstructAmount(tt.amount)
		if err != nil {
			t.Fatalf("amount %f: %v", tt.amount, err)
		}
		if out.VertexCount() > tt.max {
			t.Errorf("amount %f: expected at most %d vertices, got %d", tt.amount, tt.max, out.VertexCount())
		}
	}
	if out, _ := h.ReconstructAmount(1); out.VertexCount() != 25 {
		t.Errorf("expected the full mesh at amount 1, got %d vertices", out.VertexCount())
	}
}

func TestReconstructDegenerateInput(t *testing.T) {
	src := grid(3)
	src.SubMeshes[0] = append(src.SubMeshes[0], 0, 0, 1)
	h := mustBuild(t, src, nil, DefaultOptions())

	out, err := h.Reconstruct(8)
	if err != nil {
		t.Fatalf("Reconstruct failed: %v", err)
	}
	checkTriangles(t, out)
	if out.Degenerate < 1 {
		t.Errorf("expected the repeated-corner triangle to be dropped")
	}
}

func TestApplyRemap(t *testing.T) {
	buf := []string{"a", "b", "c", "d", "e"}
	remap := []int32{2, -1, 0, 1, -1}
	applyRemap(buf, remap, make([]bool, len(buf)))
	if want := []string{"c", "d", "a"}; !slices.Equal(buf[:3], want) {
		t.Errorf("expected %v, got %v", want, buf[:3])
	}

	cycle := []int{10, 11, 12, 13}
	applyRemap(cycle, []int32{1, 2, 3, 0}, make([]bool, 4))
	if want := []int{13, 10, 11, 12}; !slices.Equal(cycle, want) {
		t.Errorf("expected %v, got %v", want, cycle)
	}

	var absent []int
	applyRemap(absent, remap, make([]bool, len(remap)))
}

func TestCompact(t *testing.T) {
	tris := []int32{0, 1, 2, -1, -1, -1, 3, 4, 5, -1, -1, -1, 6, 7, 8}
	n := compact(tris)
	if want := []int32{0, 1, 2, 3, 4, 5, 6, 7, 8}; !slices.Equal(tris[:n], want) {
		t.Errorf("expected %v, got %v", want, tris[:n])
	}
}
