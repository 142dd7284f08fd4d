package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"StepBoard/internal/render"
	"StepBoard/internal/view"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the player and the step service. Flags in main
// override whatever the file sets.
type Config struct {
	// ServiceURL is the base URL of the step service the player talks to.
	ServiceURL string `yaml:"service_url"`
	// Listen is the address `stepboard serve` binds.
	Listen string `yaml:"listen"`
	// SequenceFile, if set, makes the service answer with a precomputed sequence.
	SequenceFile string `yaml:"sequence_file"`

	Canvas render.Size  `yaml:"canvas"`
	View   view.Options `yaml:"view"`

	Playback Playback `yaml:"playback"`

	// SharePort exposes the spectator stream when non-zero.
	SharePort int  `yaml:"share_port"`
	MDNS      bool `yaml:"mdns"`
}

type Playback struct {
	Delay    time.Duration `yaml:"delay"`
	MinDelay time.Duration `yaml:"min_delay"`
	MaxDelay time.Duration `yaml:"max_delay"`
	Manual   bool          `yaml:"manual"`
}

func Default() Config {
	return Config{
		ServiceURL: "http://127.0.0.1:5000",
		Listen:     ":5000",
		Canvas:     render.Size{Width: 800, Height: 600},
		View:       view.DefaultOptions(),
		Playback: Playback{
			Delay:    1000 * time.Millisecond,
			MinDelay: 10 * time.Millisecond,
			MaxDelay: 2010 * time.Millisecond,
		},
		MDNS: true,
	}
}

// Load reads a YAML config on top of the defaults. An empty path yields the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Write stores cfg as YAML, e.g. to seed a config file from the defaults.
func Write(cfg Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c Config) Validate() error {
	var errs []error
	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
		errs = append(errs, fmt.Errorf("canvas must be positive, got %vx%v", c.Canvas.Width, c.Canvas.Height))
	}
	if c.View.Padding < 0 {
		errs = append(errs, fmt.Errorf("view padding must not be negative, got %v", c.View.Padding))
	}
	if c.View.Margin <= 0 || c.View.Margin > 1 {
		errs = append(errs, fmt.Errorf("view margin must be in (0,1], got %v", c.View.Margin))
	}
	p := c.Playback
	if p.MinDelay <= 0 {
		errs = append(errs, fmt.Errorf("min_delay must be positive, got %v", p.MinDelay))
	}
	if p.MaxDelay < p.MinDelay {
		errs = append(errs, fmt.Errorf("max_delay %v is below min_delay %v", p.MaxDelay, p.MinDelay))
	}
	if p.Delay < p.MinDelay {
		errs = append(errs, fmt.Errorf("delay %v is below min_delay %v", p.Delay, p.MinDelay))
	}
	if c.SharePort < 0 || c.SharePort > 65535 {
		errs = append(errs, fmt.Errorf("share_port out of range: %d", c.SharePort))
	}
	return errors.Join(errs...)
}
