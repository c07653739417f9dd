// Package simplify builds a progressive-mesh ordering for a triangle mesh and
// reconstructs reduced vertex/index buffers for any vertex budget.
//
// Build runs once per mesh: it evaluates a collapse cost for every vertex in
// parallel, then repeatedly collapses the cheapest vertex into its chosen
// neighbor, recording a permutation (collapse rank) and a collapse map. After
// that, Handle.Reconstruct produces a reduced mesh for any target vertex
// count without repeating the analysis.
package simplify

import (
	"errors"
	"runtime"

	"go.uber.org/zap"
)

var (
	// ErrInvalidMesh is returned by Build for meshes that cannot be simplified.
	ErrInvalidMesh = errors.New("invalid mesh")
	// ErrNotReady is returned when reconstructing from an unbuilt handle.
	ErrNotReady = errors.New("simplification data not ready")
)

// Options controls the cost model and the build.
type Options struct {
	// UseEdgeLength scales collapse cost by edge length relative to the mesh size.
	UseEdgeLength bool
	// UseCurvature weighs collapse cost by the surface curvature around an edge.
	UseCurvature bool
	// BorderCurvature is the curvature assigned to border vertices when above 1.
	BorderCurvature float32
	// Workers bounds the parallel cost stage; zero means GOMAXPROCS.
	Workers int
	// Logger receives build diagnostics; nil disables logging.
	Logger *zap.Logger
}

// DefaultOptions returns the standard cost model settings.
func DefaultOptions() Options {
	return Options{
		UseEdgeLength:   true,
		UseCurvature:    true,
		BorderCurvature: 2,
	}
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (o Options) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop()
}
