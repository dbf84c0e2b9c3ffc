package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is parman's YAML configuration file shape, the analogue of the
// teacher's own Config (Worker/WAL/Snapshot/Metrics sections), reworked
// around this spec's own domain: where results live, how the runner pool
// is sized, and how the demo pipeline is tuned.
type Config struct {
	Results struct {
		Dir string `yaml:"dir"`
	} `yaml:"results"`

	Runner struct {
		Workers  int  `yaml:"workers"`
		Schedule bool `yaml:"schedule"`
	} `yaml:"runner"`

	Pipeline struct {
		BootSize      int     `yaml:"boot_size"`
		SampleSize    int     `yaml:"sample_size"`
		CommitteeSize int     `yaml:"committee_size"`
		Temperatures  []int   `yaml:"temperatures"`
		Generations   int     `yaml:"generations"`
		PauseSeconds  float64 `yaml:"pause_seconds"`
	} `yaml:"pipeline"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
		Port    int  `yaml:"port"`
	} `yaml:"metrics"`
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	if cfg.Results.Dir == "" {
		cfg.Results.Dir = "results"
	}
	if len(cfg.Pipeline.Temperatures) == 0 {
		cfg.Pipeline.Temperatures = []int{300}
	}
	return &cfg, nil
}
