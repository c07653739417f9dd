package config

import (
	"flag"
	"strings"
)

// Flags holds the command-line overrides shared by every subcommand.
type Flags struct {
	ConfigPath      string
	Debug           bool
	NoEdgeLength    bool
	NoCurvature     bool
	BorderCurvature float64 // < 0 = keep config value
	Workers         int     // < 0 = keep config value
	GRFPaths        string  // comma-separated, added after config archives
}

// RegisterFlags defines the shared flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.ConfigPath, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.BoolVar(&f.NoEdgeLength, "no-edge-length", false, "Ignore edge length in collapse cost")
	fs.BoolVar(&f.NoCurvature, "no-curvature", false, "Ignore curvature in collapse cost")
	fs.Float64Var(&f.BorderCurvature, "border-curvature", -1, "Curvature assigned to border vertices")
	fs.IntVar(&f.Workers, "workers", -1, "Parallel cost workers (0 = all CPUs)")
	fs.StringVar(&f.GRFPaths, "grf", "", "Comma-separated GRF archives to load models from")
	return f
}

// ApplyFlags applies CLI flag overrides to the config.
func ApplyFlags(cfg *Config, f *Flags) {
	if f == nil {
		return
	}
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.NoEdgeLength {
		cfg.Simplify.UseEdgeLength = false
	}
	if f.NoCurvature {
		cfg.Simplify.UseCurvature = false
	}
	if f.BorderCurvature >= 0 {
		cfg.Simplify.BorderCurvature = float32(f.BorderCurvature)
	}
	if f.Workers >= 0 {
		cfg.Simplify.Workers = f.Workers
	}
	for _, path := range strings.Split(f.GRFPaths, ",") {
		if path = strings.TrimSpace(path); path != "" {
			cfg.Data.GRFPaths = append(cfg.Data.GRFPaths, path)
		}
	}
}
