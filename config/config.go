// Package config loads the engine's tunable constants from a YAML file,
// mirroring the teacher's two-stage viper-then-yaml.v3 loader: viper
// locates and parses the file, then the untyped "def" payload is
// re-marshalled through yaml.v3 into a typed struct. A caller that wants
// defaults only can skip loading a file entirely and use Default().
package config

import (
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// outerConfig is the on-disk envelope: a "kind" selector plus an
// untyped "def" blob, the same shape the teacher's reinforcement
// package loads its training config through.
type outerConfig struct {
	Kind string      `mapstructure:"kind"`
	Def  interface{} `mapstructure:"def"`
}

// EngineConfig holds every constant the SCP/outer-search pipeline
// otherwise hard-codes, so an operator can retune them without a
// rebuild.
type EngineConfig struct {
	// PenaltyWeight is W in the SCP objective's soft-penalty term.
	PenaltyWeight float64 `yaml:"penaltyWeight"`

	// InitialTrustRegion, RegionThreshold and RegionChangeFactor drive
	// the SolutionPoint driver's trust-region control.
	InitialTrustRegion float64 `yaml:"initialTrustRegion"`
	RegionThreshold    float64 `yaml:"regionThreshold"`
	RegionChangeFactor float64 `yaml:"regionChangeFactor"`

	// SCPIterationCap bounds a single SolutionPoint's step count.
	SCPIterationCap int `yaml:"scpIterationCap"`

	// MultiStartPopulation and GenerationalPopulation/PruneIterations
	// size the two outer-search strategies.
	MultiStartPopulation   int `yaml:"multiStartPopulation"`
	GenerationalPopulation int `yaml:"generationalPopulation"`
	PruneIterations        int `yaml:"pruneIterations"`

	// ProbIterationCap and RewardIterationCap bound the interval-DTMC
	// oracle's value-iteration loop.
	ProbIterationCap   int `yaml:"probIterationCap"`
	RewardIterationCap int `yaml:"rewardIterationCap"`
}

// Default returns the constants named throughout the specification: a
// penalty weight of 10^4, a trust region starting at 1.5 with a 1.5
// change factor and a 10^-4 threshold, an SCP iteration cap of 50, a
// multi-start population of 10, a generational population of 32 with 4
// prune iterations per round, and oracle iteration caps of 2000/5000.
func Default() *EngineConfig {
	return &EngineConfig{
		PenaltyWeight:          1e4,
		InitialTrustRegion:     1.5,
		RegionThreshold:        1e-4,
		RegionChangeFactor:     1.5,
		SCPIterationCap:        50,
		MultiStartPopulation:   10,
		GenerationalPopulation: 32,
		PruneIterations:        4,
		ProbIterationCap:       2000,
		RewardIterationCap:     5000,
	}
}

// FromYaml loads an EngineConfig from path, falling back to Default()
// for any field the file omits (viper reads the file and decodes the
// untyped envelope; the typed unmarshal goes through yaml.v3, as the
// teacher's FromYaml does).
func FromYaml(path string) (*EngineConfig, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))
	if err := vp.ReadInConfig(); err != nil {
		return nil, err
	}

	outer := &outerConfig{}
	if err := vp.Unmarshal(outer); err != nil {
		return nil, err
	}

	spec, err := yaml.Marshal(outer.Def)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(spec, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
