package config

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/Faultbox/meshsimplify/pkg/math"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if !cfg.Simplify.UseEdgeLength || !cfg.Simplify.UseCurvature {
		t.Error("expected edge length and curvature enabled by default")
	}
	if cfg.Simplify.BorderCurvature != 2 {
		t.Errorf("expected border curvature 2, got %f", cfg.Simplify.BorderCurvature)
	}
	if cfg.Simplify.VertexAmount != 0.25 {
		t.Errorf("expected vertex amount 0.25, got %f", cfg.Simplify.VertexAmount)
	}
	if cfg.Simplify.Workers != 0 {
		t.Errorf("expected workers 0, got %d", cfg.Simplify.Workers)
	}
	if len(cfg.Spheres) != 0 {
		t.Errorf("expected no spheres, got %d", len(cfg.Spheres))
	}
	if cfg.Output.PreviewSize != 512 {
		t.Errorf("expected preview size 512, got %d", cfg.Output.PreviewSize)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
simplify:
  use_edge_length: false
  border_curvature: 4.5
  vertex_amount: 0.5
  workers: 3

spheres:
  - position: [1, 2, 3]
    rotation: [0, 0, 0, 1]
    scale: [2, 2, 2]
    relevance: 10
  - position: [0, 0, 0]
    scale: [1, 1, 1]
    relevance: -1

data:
  grf_paths:
    - "data.grf"
    - "rdata.grf"

output:
  preview_size: 256
  preview_dir: "previews"

logging:
  level: "debug"
  log_file: "simplify.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Simplify.UseEdgeLength {
		t.Error("expected use_edge_length to be false")
	}
	if !cfg.Simplify.UseCurvature {
		t.Error("expected use_curvature to keep its default")
	}
	if cfg.Simplify.BorderCurvature != 4.5 {
		t.Errorf("expected border curvature 4.5, got %f", cfg.Simplify.BorderCurvature)
	}
	if cfg.Simplify.Workers != 3 {
		t.Errorf("expected workers 3, got %d", cfg.Simplify.Workers)
	}
	if len(cfg.Spheres) != 2 {
		t.Fatalf("expected 2 spheres, got %d", len(cfg.Spheres))
	}
	if !slices.Equal(cfg.Data.GRFPaths, []string{"data.grf", "rdata.grf"}) {
		t.Errorf("unexpected grf paths %v", cfg.Data.GRFPaths)
	}
	if cfg.Output.PreviewSize != 256 || cfg.Output.PreviewDir != "previews" {
		t.Errorf("unexpected output config %+v", cfg.Output)
	}
	if cfg.Logging.LogFile != "simplify.log" {
		t.Errorf("expected log file 'simplify.log', got %s", cfg.Logging.LogFile)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	spheres := cfg.ToSpheres()
	if spheres[0].Position != (math.Vec3{X: 1, Y: 2, Z: 3}) || spheres[0].Relevance != 10 {
		t.Errorf("unexpected first sphere %+v", spheres[0])
	}
	if spheres[1].Rotation != math.QuatIdentity() {
		t.Errorf("expected identity rotation for omitted rotation, got %v", spheres[1].Rotation)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
simplify:
  workers: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
	if _, err := Load(configPath); err == nil {
		t.Error("expected Load to fail on invalid YAML")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	err := loadFromFile(cfg, "/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero amount", func(c *Config) { c.Simplify.VertexAmount = 0 }},
		{"amount above one", func(c *Config) { c.Simplify.VertexAmount = 1.5 }},
		{"negative workers", func(c *Config) { c.Simplify.Workers = -2 }},
		{"zero preview size", func(c *Config) { c.Output.PreviewSize = 0 }},
		{"short position", func(c *Config) {
			c.Spheres = []SphereConfig{{Position: []float32{1, 2}, Scale: []float32{1, 1, 1}}}
		}},
		{"bad rotation", func(c *Config) {
			c.Spheres = []SphereConfig{{Position: []float32{0, 0, 0}, Rotation: []float32{0, 1}, Scale: []float32{1, 1, 1}}}
		}},
		{"zero scale", func(c *Config) {
			c.Spheres = []SphereConfig{{Position: []float32{0, 0, 0}, Scale: []float32{1, 0, 1}}}
		}},
		{"placement position", func(c *Config) {
			c.Placement = &PlacementConfig{Position: []float32{1}}
		}},
		{"placement rotation", func(c *Config) {
			c.Placement = &PlacementConfig{Rotation: []float32{0, 0, 1}}
		}},
		{"placement scale", func(c *Config) {
			c.Placement = &PlacementConfig{Scale: []float32{2, 2}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestToPlacement(t *testing.T) {
	cfg := Default()
	if _, ok := cfg.ToPlacement(); ok {
		t.Error("expected no placement by default")
	}

	cfg.Placement = &PlacementConfig{Position: []float32{1, 2, 3}, Scale: []float32{2, 2, 2}}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid placement, got %v", err)
	}
	m, ok := cfg.ToPlacement()
	if !ok {
		t.Fatal("expected a placement")
	}
	if got := m.TransformVec3(math.Vec3{X: 1}); got != (math.Vec3{X: 3, Y: 2, Z: 3}) {
		t.Errorf("expected (3,2,3), got %v", got)
	}

	cfg.Placement = &PlacementConfig{}
	m, ok = cfg.ToPlacement()
	if !ok {
		t.Fatal("expected an empty placement to be identity")
	}
	if got := m.TransformVec3(math.Vec3{X: 1, Y: 2, Z: 3}); got != (math.Vec3{X: 1, Y: 2, Z: 3}) {
		t.Errorf("expected identity transform, got %v", got)
	}
}

func TestToOptions(t *testing.T) {
	cfg := Default()
	cfg.Simplify.UseCurvature = false
	cfg.Simplify.Workers = 4

	opts := cfg.ToOptions(nil)
	if !opts.UseEdgeLength || opts.UseCurvature {
		t.Errorf("unexpected cost flags %+v", opts)
	}
	if opts.BorderCurvature != 2 || opts.Workers != 4 {
		t.Errorf("expected border curvature 2 and 4 workers, got %+v", opts)
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	os.Chdir(tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))

	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	configPath := filepath.Join(tmpDir, "meshsimplify.yaml")
	if err := os.WriteFile(configPath, []byte("simplify:\n  workers: 2\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	if path := findConfigFile(); path == "" {
		t.Error("expected to find meshsimplify.yaml in current directory")
	}
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Simplify.Workers != 2 {
		t.Errorf("expected workers 2 from discovered file, got %d", cfg.Simplify.Workers)
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		verify func(*testing.T, *Config)
	}{
		{
			name: "no flags",
			args: nil,
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Simplify.BorderCurvature != 2 || cfg.Simplify.Workers != 0 {
					t.Errorf("expected defaults untouched, got %+v", cfg.Simplify)
				}
			},
		},
		{
			name: "debug flag",
			args: []string{"-debug"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
		},
		{
			name: "cost flags",
			args: []string{"-no-edge-length", "-no-curvature", "-border-curvature", "0"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Simplify.UseEdgeLength || cfg.Simplify.UseCurvature {
					t.Error("expected edge length and curvature disabled")
				}
				if cfg.Simplify.BorderCurvature != 0 {
					t.Errorf("expected border curvature 0, got %f", cfg.Simplify.BorderCurvature)
				}
			},
		},
		{
			name: "grf flag",
			args: []string{"-grf", "data.grf, patch.grf"},
			verify: func(t *testing.T, cfg *Config) {
				if !slices.Equal(cfg.Data.GRFPaths, []string{"base.grf", "data.grf", "patch.grf"}) {
					t.Errorf("expected flag archives after config ones, got %v", cfg.Data.GRFPaths)
				}
			},
		},
		{
			name: "workers flag",
			args: []string{"-workers", "6"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Simplify.Workers != 6 {
					t.Errorf("expected 6 workers, got %d", cfg.Simplify.Workers)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := flag.NewFlagSet("test", flag.ContinueOnError)
			f := RegisterFlags(fs)
			if err := fs.Parse(tt.args); err != nil {
				t.Fatalf("parse: %v", err)
			}

			cfg := Default()
			cfg.Data.GRFPaths = []string{"base.grf"}
			ApplyFlags(cfg, f)
			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
simplify:
  border_curvature: 3
  workers: 2
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	f := RegisterFlags(fs)
	if err := fs.Parse([]string{"-config", configPath, "-workers", "8"}); err != nil {
		t.Fatalf("parse: %v", err)
	}

	cfg, err := Load(f.ConfigPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	ApplyFlags(cfg, f)

	// Workers should be from flag (8), not file (2)
	if cfg.Simplify.Workers != 8 {
		t.Errorf("expected workers 8 from flag, got %d", cfg.Simplify.Workers)
	}
	// Border curvature should be from file (3) since no flag override
	if cfg.Simplify.BorderCurvature != 3 {
		t.Errorf("expected border curvature 3 from file, got %f", cfg.Simplify.BorderCurvature)
	}
}

func TestSaveTo(t *testing.T) {
	cfg := Default()
	cfg.Simplify.VertexAmount = 0.5
	cfg.Spheres = []SphereConfig{{Position: []float32{1, 0, 0}, Scale: []float32{1, 1, 1}, Relevance: 5}}

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Simplify.VertexAmount != 0.5 {
		t.Errorf("expected vertex amount 0.5, got %f", loaded.Simplify.VertexAmount)
	}
	if len(loaded.Spheres) != 1 || loaded.Spheres[0].Relevance != 5 {
		t.Errorf("expected saved sphere, got %+v", loaded.Spheres)
	}
}
