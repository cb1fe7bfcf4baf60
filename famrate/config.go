package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is an optional YAML file with search settings; command-line
// flags override it where both are given.
type Config struct {
	// Lambda holds fixed rate values for scoring or a search start.
	Lambda []float64 `yaml:"lambda"`
	// Clusters is the number of mixture clusters.
	Clusters int `yaml:"clusters"`
	// FixCluster0 pins mixture cluster 0 to rate zero.
	FixCluster0 bool `yaml:"fixcluster0"`
	// Ranges are grid axes as start:step:end strings.
	Ranges []string `yaml:"ranges"`
	// Checkpoint is the checkpoint database path.
	Checkpoint string `yaml:"checkpoint"`
	// CheckpointSeconds is the minimum interval between saves.
	CheckpointSeconds float64 `yaml:"checkpointSeconds"`
}

// readConfig loads a YAML config file.
func readConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %v", path, err)
	}
	return cfg, nil
}
