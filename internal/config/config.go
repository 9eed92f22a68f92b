package config

import (
	"fmt"
	"os"
	"time"

	"github.com/san-kum/cr3bp/internal/propagate"
	"gopkg.in/yaml.v3"
)

const (
	DefaultMu        = 0.0122
	DefaultTolerance = 1e-12
	DefaultStep      = 1e-5
	DefaultTEnd      = 0.5
)

type Config struct {
	Mu             float64           `yaml:"mu"`
	InitialState   []float64         `yaml:"initial_state"`
	Span           [2]float64        `yaml:"span"`
	Tolerance      float64           `yaml:"tolerance"`
	Step           float64           `yaml:"step"`
	IncludeInitial bool              `yaml:"include_initial"`
	Timeout        time.Duration     `yaml:"timeout"`
	Control        StepControlConfig `yaml:"step_control"`
}

// StepControlConfig holds optional overrides; zero values keep the
// integrator defaults.
type StepControlConfig struct {
	AbsTol     float64 `yaml:"abs_tol"`
	RelTol     float64 `yaml:"rel_tol"`
	MinStep    float64 `yaml:"min_step"`
	MaxStep    float64 `yaml:"max_step"`
	MaxRetries int     `yaml:"max_retries"`
	MaxSteps   int     `yaml:"max_steps"`
}

func DefaultConfig() *Config {
	return &Config{
		Mu:           DefaultMu,
		InitialState: []float64{0.788, 0.200, 0.0, -0.88, 0.20, 0.0},
		Span:         [2]float64{0, DefaultTEnd},
		Tolerance:    DefaultTolerance,
		Step:         DefaultStep,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
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

// SplitTolerances returns the absolute and relative tolerances, falling
// back to the single Tolerance for either one left unset.
func (c *Config) SplitTolerances() (abs, rel float64) {
	abs, rel = c.Control.AbsTol, c.Control.RelTol
	if abs <= 0 {
		abs = c.Tolerance
	}
	if rel <= 0 {
		rel = c.Tolerance
	}
	return abs, rel
}

func (c *Config) Request() propagate.Request {
	return propagate.Request{
		InitialState: append([]float64(nil), c.InitialState...),
		Span:         c.Span,
		Mu:           c.Mu,
		Tolerance:    c.Tolerance,
		Step:         c.Step,
	}
}

// Options translates the optional settings into propagation options.
// Unset step-control fields produce no option.
func (c *Config) Options() []propagate.Option {
	opts := []propagate.Option{propagate.WithInitialState(c.IncludeInitial)}
	ctl := c.Control
	if ctl.AbsTol > 0 || ctl.RelTol > 0 {
		opts = append(opts, propagate.WithTolerances(c.SplitTolerances()))
	}
	if ctl.MinStep > 0 || ctl.MaxStep > 0 {
		opts = append(opts, propagate.WithStepBounds(ctl.MinStep, ctl.MaxStep))
	}
	if ctl.MaxRetries > 0 {
		opts = append(opts, propagate.WithMaxRetries(ctl.MaxRetries))
	}
	if ctl.MaxSteps > 0 {
		opts = append(opts, propagate.WithMaxSteps(ctl.MaxSteps))
	}
	if c.Timeout > 0 {
		opts = append(opts, propagate.WithTimeout(c.Timeout))
	}
	return opts
}
