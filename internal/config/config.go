package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ojholm/temsim/internal/aperture"
	"github.com/ojholm/temsim/internal/compute"
	"github.com/ojholm/temsim/internal/transform"
)

const (
	DefaultEnergyKeV    = 200.0
	DefaultGridSize     = 256
	DefaultSampling     = 0.1 // angstrom per pixel
	DefaultDepth        = 50.0
	DefaultSliceTarget  = 2.0
	DefaultProbes       = 1
	DefaultPhonons      = 1
	DefaultChunkMBCPU   = 64
	DefaultChunkMBGPU   = 256
	DefaultPlanBudgetMS = 500
	DefaultFFTThreads   = 0 // library default
)

type Config struct {
	Device    string `yaml:"device"`
	Precision string `yaml:"precision"`
	Library   string `yaml:"fft_library"`

	Lazy       bool  `yaml:"lazy"`
	ChunkMBCPU int64 `yaml:"chunk_mb_cpu"`
	ChunkMBGPU int64 `yaml:"chunk_mb_gpu"`
	FFTThreads int   `yaml:"fft_threads"`

	Planning  PlanningConfig  `yaml:"planning"`
	Antialias AntialiasConfig `yaml:"antialias"`
	Sim       SimConfig       `yaml:"simulation"`
}

type PlanningConfig struct {
	Effort        string `yaml:"effort"`
	TimeLimitMS   int    `yaml:"time_limit_ms"`
	AllowFallback bool   `yaml:"allow_fallback"`
}

type AntialiasConfig struct {
	CutoffFraction float64 `yaml:"cutoff_fraction"`
	TaperWidth     float64 `yaml:"taper_width"`
}

type SimConfig struct {
	EnergyKeV   float64 `yaml:"energy_kev"`
	GridH       int     `yaml:"grid_h"`
	GridW       int     `yaml:"grid_w"`
	SamplingX   float64 `yaml:"sampling_x"`
	SamplingY   float64 `yaml:"sampling_y"`
	Depth       float64 `yaml:"depth"`
	SliceTarget float64 `yaml:"slice_thickness"`
	Probes      int     `yaml:"probes"`
	Phonons     int     `yaml:"phonons"`
	Seed        int64   `yaml:"seed"`
	TiltX       float64 `yaml:"tilt_x"`
	TiltY       float64 `yaml:"tilt_y"`
}

func DefaultConfig() *Config {
	return &Config{
		Device:     "cpu",
		Precision:  "float64",
		Library:    "default",
		ChunkMBCPU: DefaultChunkMBCPU,
		ChunkMBGPU: DefaultChunkMBGPU,
		FFTThreads: DefaultFFTThreads,
		Planning: PlanningConfig{
			Effort:        "estimate",
			TimeLimitMS:   DefaultPlanBudgetMS,
			AllowFallback: true,
		},
		Antialias: AntialiasConfig{
			CutoffFraction: aperture.DefaultCutoff,
			TaperWidth:     aperture.DefaultTaper,
		},
		Sim: SimConfig{
			EnergyKeV:   DefaultEnergyKeV,
			GridH:       DefaultGridSize,
			GridW:       DefaultGridSize,
			SamplingX:   DefaultSampling,
			SamplingY:   DefaultSampling,
			Depth:       DefaultDepth,
			SliceTarget: DefaultSliceTarget,
			Probes:      DefaultProbes,
			Phonons:     DefaultPhonons,
		},
	}
}

// Load overlays a YAML file onto the defaults.
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

// Validate resolves and checks the precision/device/library selection.
func (c *Config) Validate() error {
	if _, err := compute.ParsePrecision(c.Precision); err != nil {
		return err
	}
	if _, err := compute.ParseDevice(c.Device); err != nil {
		return err
	}
	if !transform.KnownLibrary(c.Library) {
		return fmt.Errorf("config: unknown fft library %q", c.Library)
	}
	if _, err := transform.ParseEffort(c.Planning.Effort); err != nil {
		return err
	}
	s := c.Sim
	if s.GridH < 1 || s.GridW < 1 || s.SamplingX <= 0 || s.SamplingY <= 0 {
		return fmt.Errorf("config: invalid grid %dx%d sampling %g x %g",
			s.GridH, s.GridW, s.SamplingX, s.SamplingY)
	}
	if s.EnergyKeV <= 0 || s.Depth <= 0 || s.SliceTarget <= 0 {
		return fmt.Errorf("config: energy, depth and slice thickness must be positive")
	}
	if s.Probes < 1 || s.Phonons < 1 {
		return fmt.Errorf("config: probes and phonons must be at least 1")
	}
	return nil
}

// Context builds the resolved compute context. Validate first.
func (c *Config) Context() *compute.Context {
	prec, _ := compute.ParsePrecision(c.Precision)
	dev, _ := compute.ParseDevice(c.Device)
	return compute.NewContext(prec, dev, c.Library, c.FFTThreads)
}

// ChunkBytes returns the chunk byte target for the resolved device.
func (c *Config) ChunkBytes() int64 {
	dev, _ := compute.ParseDevice(c.Device)
	if dev == compute.GPU {
		return c.ChunkMBGPU * 1024 * 1024
	}
	return c.ChunkMBCPU * 1024 * 1024
}
