package simplify

import (
	"context"
	"image/color"
	gomath "math"
	"slices"
	"testing"

	"github.com/Faultbox/meshsimplify/pkg/math"
	"github.com/Faultbox/meshsimplify/pkg/mesh"
)

// tetrahedron returns a closed mesh with outward-facing triangles.
func tetrahedron() *mesh.Source {
	return &mesh.Source{
		Positions: []math.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
		SubMeshes: [][]int32{{
			0, 2, 1,
			0, 1, 3,
			0, 3, 2,
			1, 2, 3,
		}},
	}
}

// grid returns an n x n vertex grid in the XY plane with unit spacing.
// Vertex y*n+x sits at (x, y, 0). UVs mirror the position and the red
// color channel stores the vertex index, so tests can trace attributes.
func grid(n int) *mesh.Source {
	src := &mesh.Source{SubMeshes: [][]int32{nil}}
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			i := len(src.Positions)
			src.Positions = append(src.Positions, math.Vec3{X: float32(x), Y: float32(y)})
			src.Normals = append(src.Normals, math.Vec3{Z: 1})
			src.UV = append(src.UV, math.Vec2{X: float32(x), Y: float32(y)})
			src.Colors = append(src.Colors, color.RGBA{R: uint8(i), A: 255})
		}
	}
	for y := 0; y < n-1; y++ {
		for x := 0; x < n-1; x++ {
			a := int32(y*n + x)
			b, c, d := a+1, a+int32(n), a+int32(n)+1
			src.SubMeshes[0] = append(src.SubMeshes[0], a, b, d, a, d, c)
		}
	}
	return src
}

// bumpy returns a grid displaced along Z so that curvature varies.
func bumpy(n int) *mesh.Source {
	src := grid(n)
	for i := range src.Positions {
		p := &src.Positions[i]
		p.Z = float32(gomath.Sin(float64(p.X)*0.7) * gomath.Cos(float64(p.Y)*0.4))
	}
	return src
}

func mustBuild(t *testing.T, src *mesh.Source, spheres []RelevanceSphere, opts Options) *Handle {
	t.Helper()
	h, err := Build(context.Background(), src, spheres, opts)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return h
}

func approx(a, b float32) bool {
	return gomath.Abs(float64(a-b)) < 1e-5
}

// checkGraph verifies the face-slot back-pointers and neighbor symmetry.
func checkGraph(t *testing.T, g *graph) {
	t.Helper()
	for ti := range g.tris {
		tri := &g.tris[ti]
		if tri.dead {
			continue
		}
		for c := 0; c < 3; c++ {
			v := &g.verts[tri.verts[c]]
			if v.dead {
				t.Fatalf("triangle %d references dead vertex %d", ti, v.ID)
			}
			if got := v.faces[tri.faceSlot[c]]; got != int32(ti) {
				t.Fatalf("triangle %d corner %d: face slot %d holds %d", ti, c, tri.faceSlot[c], got)
			}
			for j := 0; j < 3; j++ {
				if j != c && !slices.Contains(v.neighbors, tri.verts[j]) {
					t.Fatalf("vertex %d missing neighbor %d of triangle %d", v.ID, tri.verts[j], ti)
				}
			}
		}
	}
	for i := range g.verts {
		v := &g.verts[i]
		if v.dead {
			if len(v.faces) != 0 || len(v.neighbors) != 0 {
				t.Fatalf("dead vertex %d still linked", v.ID)
			}
			continue
		}
		for _, fi := range v.faces {
			if g.tris[fi].dead || !g.tris[fi].has(v.ID) {
				t.Fatalf("vertex %d lists stale face %d", v.ID, fi)
			}
		}
		seen := make(map[int32]bool)
		for _, n := range v.neighbors {
			if n == v.ID || seen[n] {
				t.Fatalf("vertex %d has bad neighbor entry %d", v.ID, n)
			}
			seen[n] = true
			if g.verts[n].dead || !slices.Contains(g.verts[n].neighbors, v.ID) {
				t.Fatalf("neighbor link %d -> %d is not symmetric", v.ID, n)
			}
		}
	}
}
