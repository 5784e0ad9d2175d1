// Package config handles run configuration loading for fluxprobe.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents a fuzz run configuration. Every field can also be set
// from the command line; flags win over the file.
type Config struct {
	Target TargetConfig `yaml:"target"`
	Run    RunConfig    `yaml:"run"`
	Output OutputConfig `yaml:"output"`
}

// TargetConfig selects the protocol and where to send it
type TargetConfig struct {
	Protocol string `yaml:"protocol"`
	Schema   string `yaml:"schema"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
}

// RunConfig defines the fuzz loop parameters
type RunConfig struct {
	Iterations        int           `yaml:"iterations"`
	MutationRate      float64       `yaml:"mutation_rate"`
	MutationsPerFrame int           `yaml:"mutations_per_frame"`
	RecvTimeout       time.Duration `yaml:"recv_timeout"`
	Delay             time.Duration `yaml:"delay"`
	Seed              *int64        `yaml:"seed"`
	Workers           int           `yaml:"workers"`
	Rate              float64       `yaml:"rate"` // frames per second, 0 = unlimited
	Mutators          []string      `yaml:"mutators"`
	DryRun            bool          `yaml:"dry_run"`
}

// OutputConfig defines where results go
type OutputConfig struct {
	LogFile    string `yaml:"log_file"`
	LogLevel   string `yaml:"log_level"`
	ReportFile string `yaml:"report_file"`
	CorpusDir  string `yaml:"corpus_dir"`
	Quiet      bool   `yaml:"quiet"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Run: RunConfig{
			Iterations:        100,
			MutationRate:      0.3,
			MutationsPerFrame: 1,
			Workers:           1,
		},
		Output: OutputConfig{
			LogLevel: "info",
		},
	}
}

// Load reads a YAML file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate checks value ranges.
func (c *Config) Validate() error {
	r := c.Run
	switch {
	case r.Iterations < 0:
		return fmt.Errorf("%w: iterations must be >= 0, got %d", ErrInvalidConfig, r.Iterations)
	case r.MutationRate < 0 || r.MutationRate > 1:
		return fmt.Errorf("%w: mutation_rate must be within 0..1, got %v", ErrInvalidConfig, r.MutationRate)
	case r.MutationsPerFrame < 1:
		return fmt.Errorf("%w: mutations_per_frame must be >= 1, got %d", ErrInvalidConfig, r.MutationsPerFrame)
	case r.Workers < 1:
		return fmt.Errorf("%w: workers must be >= 1, got %d", ErrInvalidConfig, r.Workers)
	case r.Rate < 0:
		return fmt.Errorf("%w: rate must be >= 0, got %v", ErrInvalidConfig, r.Rate)
	case r.RecvTimeout < 0 || r.Delay < 0:
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidConfig)
	case c.Target.Port < 0 || c.Target.Port > 65535:
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Target.Port)
	}
	if !logLevels[strings.ToLower(c.Output.LogLevel)] {
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.Output.LogLevel)
	}
	return nil
}
