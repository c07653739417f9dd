// Package config handles simplifier configuration loading and management.
package config

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/meshsimplify/pkg/math"
	"github.com/Faultbox/meshsimplify/pkg/simplify"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all simplifier settings.
type Config struct {
	Simplify SimplifyConfig `yaml:"simplify"`
	Spheres  []SphereConfig `yaml:"spheres"`
	Data     DataConfig     `yaml:"data"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`

	// Placement positions the model in the world. Spheres are tested
	// against world positions, so without a placement they are in model space.
	Placement *PlacementConfig `yaml:"placement,omitempty"`
}

// DataConfig holds model source paths.
type DataConfig struct {
	GRFPaths []string `yaml:"grf_paths"` // Archives searched for models, last = highest priority
}

// SimplifyConfig holds cost model and build settings.
type SimplifyConfig struct {
	UseEdgeLength   bool    `yaml:"use_edge_length"`
	UseCurvature    bool    `yaml:"use_curvature"`
	BorderCurvature float32 `yaml:"border_curvature"`
	VertexAmount    float32 `yaml:"vertex_amount"` // Fraction of vertices kept when no count is given
	Workers         int     `yaml:"workers"`       // 0 = GOMAXPROCS
}

// PlacementConfig is a model-to-world transform.
type PlacementConfig struct {
	Position []float32 `yaml:"position,omitempty"` // empty = origin
	Rotation []float32 `yaml:"rotation,omitempty"` // x, y, z, w; empty = identity
	Scale    []float32 `yaml:"scale,omitempty"`    // empty = 1, 1, 1
}

// SphereConfig describes a relevance sphere in world space.
type SphereConfig struct {
	Position  []float32 `yaml:"position"`
	Rotation  []float32 `yaml:"rotation,omitempty"` // x, y, z, w; empty = identity
	Scale     []float32 `yaml:"scale"`
	Relevance float32   `yaml:"relevance"`
}

// OutputConfig holds preview settings.
type OutputConfig struct {
	PreviewSize int    `yaml:"preview_size"`
	PreviewDir  string `yaml:"preview_dir"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Simplify: SimplifyConfig{
			UseEdgeLength:   true,
			UseCurvature:    true,
			BorderCurvature: 2,
			VertexAmount:    0.25,
			Workers:         0,
		},
		Output: OutputConfig{
			PreviewSize: 512,
			PreviewDir:  "",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Simplify.VertexAmount <= 0 || c.Simplify.VertexAmount > 1 {
		return fmt.Errorf("%w: vertex_amount %v outside (0, 1]", ErrInvalidConfig, c.Simplify.VertexAmount)
	}
	if c.Simplify.Workers < 0 {
		return fmt.Errorf("%w: negative workers %d", ErrInvalidConfig, c.Simplify.Workers)
	}
	if c.Output.PreviewSize <= 0 {
		return fmt.Errorf("%w: preview_size %d", ErrInvalidConfig, c.Output.PreviewSize)
	}
	for i, s := range c.Spheres {
		if len(s.Position) != 3 || len(s.Scale) != 3 {
			return fmt.Errorf("%w: sphere %d needs a 3-component position and scale", ErrInvalidConfig, i)
		}
		if len(s.Rotation) != 0 && len(s.Rotation) != 4 {
			return fmt.Errorf("%w: sphere %d rotation must have 4 components", ErrInvalidConfig, i)
		}
		if s.Scale[0] == 0 || s.Scale[1] == 0 || s.Scale[2] == 0 {
			return fmt.Errorf("%w: sphere %d has a zero scale component", ErrInvalidConfig, i)
		}
	}
	if p := c.Placement; p != nil {
		if len(p.Position) != 0 && len(p.Position) != 3 {
			return fmt.Errorf("%w: placement position must have 3 components", ErrInvalidConfig)
		}
		if len(p.Rotation) != 0 && len(p.Rotation) != 4 {
			return fmt.Errorf("%w: placement rotation must have 4 components", ErrInvalidConfig)
		}
		if len(p.Scale) != 0 && len(p.Scale) != 3 {
			return fmt.Errorf("%w: placement scale must have 3 components", ErrInvalidConfig)
		}
	}
	return nil
}

// ToOptions converts the simplify section into build options.
func (c *Config) ToOptions(log *zap.Logger) simplify.Options {
	return simplify.Options{
		UseEdgeLength:   c.Simplify.UseEdgeLength,
		UseCurvature:    c.Simplify.UseCurvature,
		BorderCurvature: c.Simplify.BorderCurvature,
		Workers:         c.Simplify.Workers,
		Logger:          log,
	}
}

// ToSpheres converts the sphere list. Call Validate first.
func (c *Config) ToSpheres() []simplify.RelevanceSphere {
	spheres := make([]simplify.RelevanceSphere, 0, len(c.Spheres))
	for _, s := range c.Spheres {
		rot := math.QuatIdentity()
		if len(s.Rotation) == 4 {
			rot = math.Quat{X: s.Rotation[0], Y: s.Rotation[1], Z: s.Rotation[2], W: s.Rotation[3]}
		}
		spheres = append(spheres, simplify.RelevanceSphere{
			Position:  math.Vec3{X: s.Position[0], Y: s.Position[1], Z: s.Position[2]},
			Rotation:  rot,
			Scale:     math.Vec3{X: s.Scale[0], Y: s.Scale[1], Z: s.Scale[2]},
			Relevance: s.Relevance,
		})
	}
	return spheres
}

// ToPlacement returns the model-to-world matrix, or false when no placement
// is configured. Call Validate first.
func (c *Config) ToPlacement() (math.Mat4, bool) {
	p := c.Placement
	if p == nil {
		return math.Mat4{}, false
	}
	pos := math.Vec3{}
	if len(p.Position) == 3 {
		pos = math.Vec3{X: p.Position[0], Y: p.Position[1], Z: p.Position[2]}
	}
	rot := math.QuatIdentity()
	if len(p.Rotation) == 4 {
		rot = math.Quat{X: p.Rotation[0], Y: p.Rotation[1], Z: p.Rotation[2], W: p.Rotation[3]}
	}
	scale := math.Vec3{X: 1, Y: 1, Z: 1}
	if len(p.Scale) == 3 {
		scale = math.Vec3{X: p.Scale[0], Y: p.Scale[1], Z: p.Scale[2]}
	}
	return math.TRS(pos, rot, scale), true
}
