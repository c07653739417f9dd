// meshsimplify builds progressive-mesh orderings for RSM models and writes
// reduced meshes and wireframe previews.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/meshsimplify/internal/assets"
	"github.com/Faultbox/meshsimplify/internal/config"
	"github.com/Faultbox/meshsimplify/internal/logger"
	"github.com/Faultbox/meshsimplify/internal/model"
	"github.com/Faultbox/meshsimplify/internal/preview"
	"github.com/Faultbox/meshsimplify/pkg/mesh"
	"github.com/Faultbox/meshsimplify/pkg/simplify"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch command {
	case "info":
		err = cmdInfo(args)
	case "reduce":
		err = cmdReduce(ctx, args)
	case "lod":
		err = cmdLOD(ctx, args)
	case "preview":
		err = cmdPreview(ctx, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`meshsimplify - progressive mesh simplification for RSM models

Usage:
  meshsimplify <command> [options] <model.rsm>

Commands:
  info <model.rsm>                         Show model and mesh statistics
  reduce [-amount a | -k n] <model.rsm>    Build and reconstruct one reduction
  lod [-levels 1,0.5,0.25] <model.rsm>...  Reconstruct several levels per build
  preview [-amount a] [-o out.bmp] <model.rsm>
                                           Write a wireframe BMP of a reduction

Common options:
  -config <file>         Config file (default ./meshsimplify.yaml)
  -debug                 Debug logging
  -no-edge-length        Ignore edge length in collapse cost
  -no-curvature          Ignore curvature in collapse cost
  -border-curvature <c>  Curvature assigned to border vertices
  -workers <n>           Parallel cost workers (0 = all CPUs)
  -grf <a.grf,b.grf>     Archives to load models from (last wins)
  -time <ms>             Animation time for the model pose
  -two-sided             Emit back faces for every face

Examples:
  meshsimplify info -grf data.grf data/model/prontera/fountain.rsm
  meshsimplify reduce -amount 0.3 fountain.rsm
  meshsimplify lod -levels 1,0.5,0.1 fountain.rsm tree.rsm
  meshsimplify preview -k 200 -o fountain.bmp fountain.rsm`)
}

// session is the shared state of a subcommand.
type session struct {
	cfg    *config.Config
	opts   model.Options
	assets *assets.Manager
}

// newSession registers the shared flags on fs, parses args, and loads the
// config and logger.
func newSession(fs *flag.FlagSet, args []string) (*session, error) {
	flags := config.RegisterFlags(fs)
	animTime := fs.Float64("time", 0, "Animation time in milliseconds")
	twoSided := fs.Bool("two-sided", false, "Emit back faces for every face")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return nil, err
	}
	config.ApplyFlags(cfg, flags)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return nil, err
	}

	s := &session{
		cfg:    cfg,
		opts:   model.Options{AnimTimeMs: float32(*animTime), ForceTwoSided: *twoSided},
		assets: assets.NewManager(),
	}
	if placement, ok := cfg.ToPlacement(); ok {
		s.opts.Placement = &placement
	}
	for _, path := range cfg.Data.GRFPaths {
		if err := s.assets.AddArchive(path); err != nil {
			s.close()
			return nil, err
		}
		logger.Debug("archive added", zap.String("path", path))
	}
	return s, nil
}

func (s *session) close() {
	s.assets.Close()
}

func (s *session) simplifyOptions() simplify.Options {
	return s.cfg.ToOptions(logger.Component("simplify"))
}

// loadModel parses an RSM from the archives or disk into a mesh source.
func (s *session) loadModel(path string) (*model.Model, error) {
	rsm, err := s.assets.LoadRSM(path)
	if err != nil {
		return nil, err
	}
	m, err := model.Build(rsm, s.opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if m.Skipped > 0 {
		logger.Warn("skipped faces", zap.String("model", path), zap.Int("faces", m.Skipped))
	}
	return m, nil
}

// build loads path and runs the simplifier on it.
func (s *session) build(ctx context.Context, path string) (*simplify.Handle, error) {
	m, err := s.loadModel(path)
	if err != nil {
		return nil, err
	}
	return simplify.Build(ctx, m.Source, s.cfg.ToSpheres(), s.simplifyOptions())
}

// reduce reconstructs by explicit vertex count when k > 0, otherwise by amount.
func reduce(h *simplify.Handle, k int, amount float64) (*mesh.Buffers, error) {
	if k > 0 {
		return h.Reconstruct(k)
	}
	return h.ReconstructAmount(float32(amount))
}

func cmdInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	s, err := newSession(fs, args)
	if err != nil {
		return err
	}
	defer s.close()
	if fs.NArg() < 1 {
		return errors.New("usage: meshsimplify info <model.rsm>")
	}

	rsm, err := s.assets.LoadRSM(fs.Arg(0))
	if err != nil {
		return err
	}

	fmt.Printf("Model:     %s\n", fs.Arg(0))
	fmt.Printf("Version:   %s\n", rsm.Version)
	fmt.Printf("Shading:   %s\n", rsm.Shading)
	fmt.Printf("Nodes:     %d\n", len(rsm.Nodes))
	fmt.Printf("Vertices:  %d\n", rsm.VertexCount())
	fmt.Printf("Faces:     %d\n", rsm.FaceCount())
	fmt.Printf("Animated:  %v\n", rsm.HasAnimation())
	if root := rsm.Root(); root != nil {
		fmt.Printf("Root:      %s (%d children)\n", root.Name, len(rsm.Children(root.Name)))
	}

	m, err := model.Build(rsm, s.opts)
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Printf("Mesh vertices:  %d\n", m.Source.VertexCount())
	fmt.Printf("Mesh triangles: %d\n", m.Source.TriangleCount())
	fmt.Printf("Skipped faces:  %d\n", m.Skipped)
	fmt.Println("Submeshes:")
	for i, tex := range m.Textures {
		fmt.Printf("  %-3d %6d tris  %s\n", i, len(m.Source.SubMeshes[i])/3, tex)
	}
	return nil
}

func cmdReduce(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reduce", flag.ExitOnError)
	amount := fs.Float64("amount", -1, "Fraction of vertices to keep (default from config)")
	k := fs.Int("k", 0, "Exact vertex count to keep (overrides -amount)")
	s, err := newSession(fs, args)
	if err != nil {
		return err
	}
	defer s.close()
	if fs.NArg() < 1 {
		return errors.New("usage: meshsimplify reduce [options] <model.rsm>")
	}
	if *amount < 0 {
		*amount = float64(s.cfg.Simplify.VertexAmount)
	}

	h, err := s.build(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	out, err := reduce(h, *k, *amount)
	if err != nil {
		return err
	}

	stats := h.Stats()
	fmt.Printf("Model:      %s\n", fs.Arg(0))
	fmt.Printf("Vertices:   %d -> %d\n", stats.Vertices, out.VertexCount())
	fmt.Printf("Triangles:  %d -> %d (%d degenerate)\n", stats.Triangles, out.TriangleCount(), out.Degenerate)
	fmt.Printf("Isolated:   %d\n", stats.Isolated)
	fmt.Printf("Evaluate:   %v\n", stats.Evaluate)
	fmt.Printf("Collapse:   %v\n", stats.Collapse)
	return nil
}

func parseLevels(s string) ([]float64, error) {
	var levels []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid level %q: %w", part, err)
		}
		if v < 0 || v > 1 {
			return nil, fmt.Errorf("level %v outside [0, 1]", v)
		}
		levels = append(levels, v)
	}
	if len(levels) == 0 {
		return nil, errors.New("no levels given")
	}
	return levels, nil
}

func cmdLOD(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("lod", flag.ExitOnError)
	levelsFlag := fs.String("levels", "1,0.5,0.25,0.1", "Comma-separated vertex fractions")
	s, err := newSession(fs, args)
	if err != nil {
		return err
	}
	defer s.close()
	if fs.NArg() < 1 {
		return errors.New("usage: meshsimplify lod [options] <model.rsm>...")
	}
	levels, err := parseLevels(*levelsFlag)
	if err != nil {
		return err
	}

	registry := simplify.NewRegistry(s.simplifyOptions())
	for _, path := range fs.Args() {
		m, err := s.loadModel(path)
		if err != nil {
			return err
		}
		h, err := registry.Build(ctx, path, m.Source, s.cfg.ToSpheres())
		if err != nil {
			return err
		}

		fmt.Printf("%s\n", path)
		fmt.Printf("  %-8s %10s %10s %10s\n", "level", "vertices", "triangles", "degenerate")
		for _, level := range levels {
			k := h.Budget(float32(level))
			if k < simplify.MinVertices {
				fmt.Println(lodRow(level, nil))
				continue
			}
			out, err := h.Reconstruct(k)
			if err != nil {
				return err
			}
			fmt.Println(lodRow(level, out))
		}
	}
	logger.Debug("lod done", zap.Strings("models", registry.Keys()))
	return nil
}

// lodRow formats one level of the lod table. A nil result marks a level
// whose budget is too small to hold a triangle.
func lodRow(level float64, out *mesh.Buffers) string {
	if out == nil {
		return fmt.Sprintf("  %-8.3g %10s", level, "skipped")
	}
	return fmt.Sprintf("  %-8.3g %10d %10d %10d", level, out.VertexCount(), out.TriangleCount(), out.Degenerate)
}

func cmdPreview(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	amount := fs.Float64("amount", -1, "Fraction of vertices to keep (default from config)")
	k := fs.Int("k", 0, "Exact vertex count to keep (overrides -amount)")
	output := fs.String("o", "", "Output BMP path (default: timestamped in preview dir)")
	size := fs.Int("size", 0, "Image size in pixels (default from config)")
	s, err := newSession(fs, args)
	if err != nil {
		return err
	}
	defer s.close()
	if fs.NArg() < 1 {
		return errors.New("usage: meshsimplify preview [options] <model.rsm>")
	}
	if *amount < 0 {
		*amount = float64(s.cfg.Simplify.VertexAmount)
	}
	if *size <= 0 {
		*size = s.cfg.Output.PreviewSize
	}

	h, err := s.build(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	out, err := reduce(h, *k, *amount)
	if err != nil {
		return err
	}

	name := strings.TrimSuffix(filepath.Base(fs.Arg(0)), filepath.Ext(fs.Arg(0)))
	r := preview.NewRenderer(s.cfg.Output.PreviewDir, name, *size)
	img, err := r.Render(out)
	if err != nil {
		return err
	}
	path, err := r.Save(img, *output)
	if err != nil {
		return err
	}

	logger.Info("preview written",
		zap.String("path", path),
		zap.Int("vertices", out.VertexCount()),
		zap.Int("triangles", out.TriangleCount()))
	fmt.Println(path)
	return nil
}
