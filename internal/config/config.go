package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDt            = 1e-3
	DefaultTrainFraction = 0.5
	DefaultValidFraction = 0.25
	DefaultTestFraction  = 0.25

	SamplerUniform  = "uniform"
	SamplerGaussian = "gaussian"
	NoiserGaussian  = "gaussian"
	NoiserUniform   = "uniform"
)

// GenerationConfig configures simulation-driven dataset generation.
type GenerationConfig struct {
	Population    int       `yaml:"population"`
	TrajLen       int       `yaml:"traj_len"`
	X0            []float64 `yaml:"x0"`
	Sampler       string    `yaml:"sampler"`
	SamplerRanges []float64 `yaml:"sampler_ranges"`
	Noiser        string    `yaml:"noiser"`
	StaticNoise   []float64 `yaml:"static_noise"`
	DynamicNoise  []float64 `yaml:"dynamic_noise"`
}

// Config is the whole construction-time surface of the dataset manager.
// Exactly one of Generation, ImportDir, DynamicMinimum must be set.
type Config struct {
	Storage       string  `yaml:"storage"`
	Dt            float64 `yaml:"dt"`
	TrainFraction float64 `yaml:"train_fraction"`
	ValidFraction float64 `yaml:"valid_fraction"`
	TestFraction  float64 `yaml:"test_fraction"`
	TSkip         int     `yaml:"t_skip"`
	THistory      int     `yaml:"t_history"`
	TPrediction   int     `yaml:"t_prediction"`
	Seed          int64   `yaml:"seed"`

	Generation     *GenerationConfig `yaml:"generation,omitempty"`
	ImportDir      string            `yaml:"import_dir,omitempty"`
	DynamicMinimum *int              `yaml:"dynamic_minimum,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Storage:       "./trajstore",
		Dt:            DefaultDt,
		TrainFraction: DefaultTrainFraction,
		ValidFraction: DefaultValidFraction,
		TestFraction:  DefaultTestFraction,
		TSkip:         0,
		THistory:      1,
		TPrediction:   1,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Storage == "" {
		return fmt.Errorf("storage root must be set")
	}
	if c.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", c.Dt)
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"train_fraction", c.TrainFraction},
		{"valid_fraction", c.ValidFraction},
		{"test_fraction", c.TestFraction},
	} {
		if f.v < 0 || f.v > 1 {
			return fmt.Errorf("%s must be in [0,1], got %f", f.name, f.v)
		}
	}
	if c.THistory < 1 {
		return fmt.Errorf("t_history must be >= 1, got %d", c.THistory)
	}
	if c.TPrediction < 1 {
		return fmt.Errorf("t_prediction must be >= 1, got %d", c.TPrediction)
	}
	if c.TSkip < 0 {
		return fmt.Errorf("t_skip must be >= 0, got %d", c.TSkip)
	}
	if c.TSkip+1 < c.THistory {
		return fmt.Errorf("t_skip+1 must be >= t_history (%d+1 < %d)", c.TSkip, c.THistory)
	}
	if c.Generation != nil {
		if err := c.Generation.validate(); err != nil {
			return err
		}
	}
	if c.DynamicMinimum != nil && *c.DynamicMinimum < 0 {
		return fmt.Errorf("dynamic_minimum must be >= 0, got %d", *c.DynamicMinimum)
	}
	return nil
}

func (g *GenerationConfig) validate() error {
	if g.Population < 0 {
		return fmt.Errorf("population must be >= 0, got %d", g.Population)
	}
	if g.TrajLen < 1 {
		return fmt.Errorf("traj_len must be >= 1, got %d", g.TrajLen)
	}
	switch g.Sampler {
	case SamplerUniform, SamplerGaussian:
	default:
		return fmt.Errorf("unknown sampler %q", g.Sampler)
	}
	switch g.Noiser {
	case NoiserGaussian, NoiserUniform:
	default:
		return fmt.Errorf("unknown noiser %q", g.Noiser)
	}
	return nil
}

// Source is the acquisition mode, as a sealed variant so that downstream code
// cannot observe an ambiguous configuration.
type Source interface {
	isSource()
}

// Generate drives trajectory generation until the population target is met.
type Generate struct {
	Config GenerationConfig
}

// Import bulk-copies trajectories from an external directory.
type Import struct {
	Dir string
}

// Dynamic blocks until an external writer has produced Minimum trajectories.
type Dynamic struct {
	Minimum int
}

func (Generate) isSource() {}
func (Import) isSource()   {}
func (Dynamic) isSource()  {}

// Source resolves the three optional fields into exactly one acquisition
// mode, failing if none or more than one is set.
func (c *Config) Source() (Source, error) {
	var sources []Source
	if c.Generation != nil {
		sources = append(sources, Generate{Config: *c.Generation})
	}
	if c.ImportDir != "" {
		sources = append(sources, Import{Dir: c.ImportDir})
	}
	if c.DynamicMinimum != nil {
		sources = append(sources, Dynamic{Minimum: *c.DynamicMinimum})
	}
	if len(sources) != 1 {
		return nil, fmt.Errorf("exactly one of generation, import_dir, dynamic_minimum must be set, got %d", len(sources))
	}
	return sources[0], nil
}
