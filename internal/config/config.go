// Package config loads pipeline settings from an optional YAML file,
// layered over built-in defaults. Command line flags override both.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"redundans/internal/env"
)

// Config holds every tunable of the pipeline.
type Config struct {
	Threads int    `yaml:"threads"`
	OutDir  string `yaml:"outdir"`

	Reduction   Reduction   `yaml:"reduction"`
	Scaffolding Scaffolding `yaml:"scaffolding"`
	GapClosing  GapClosing  `yaml:"gapclosing"`
}

// Reduction controls the heterozygous contig reduction stage.
type Reduction struct {
	Identity  float64 `yaml:"identity"`
	Overlap   float64 `yaml:"overlap"`
	MinLength int     `yaml:"min_length"`
}

// Scaffolding controls the SSPACE scaffolding stage.
type Scaffolding struct {
	Joins     int     `yaml:"joins"`
	Limit     float64 `yaml:"limit"`
	MapQ      int     `yaml:"mapq"`
	Iters     int     `yaml:"iters"`
	SSPACEBin string  `yaml:"sspace_bin"`
}

// GapClosing controls the GapCloser stage.
type GapClosing struct {
	Iters      int `yaml:"iters"`
	Overlap    int `yaml:"overlap"`
	MaxReadLen int `yaml:"max_read_len"`
	MinReadLen int `yaml:"min_read_len"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Threads: 2,
		OutDir:  "redundans",
		Reduction: Reduction{
			Identity:  0.8,
			Overlap:   0.75,
			MinLength: 200,
		},
		Scaffolding: Scaffolding{
			Joins:     5,
			Limit:     0.2,
			MapQ:      10,
			Iters:     2,
			SSPACEBin: "SSPACE_Standard_v3.0.pl",
		},
		GapClosing: GapClosing{
			Iters:      2,
			Overlap:    25,
			MaxReadLen: 150,
			MinReadLen: 40,
		},
	}
}

// FileName is the config file looked up by Find.
const FileName = "redundans.yaml"

// Find looks for a config file in the current directory, then in the
// user-scoped work directory.
func Find() (string, bool) {
	if _, err := os.Stat(FileName); err == nil {
		return FileName, true
	}
	if dir, err := env.WorkDir(); err == nil {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

// Load reads a YAML config file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
