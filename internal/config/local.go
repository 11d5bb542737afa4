package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LocalConfig is the subset of config.yaml read directly from disk, without
// going through viper. Used before full config loading, e.g. to set up
// logging early enough to report config errors through it.
type LocalConfig struct {
	LogFile  string `yaml:"log-file"`
	LogLevel string `yaml:"log-level"`
	NoColor  bool   `yaml:"no-color"`
}

// LoadLocal reads and parses config.yaml from the given workspace directory.
// Returns an empty LocalConfig (not nil) if the file is missing or malformed.
func LoadLocal(loomDir string) *LocalConfig {
	data, err := os.ReadFile(filepath.Join(loomDir, ConfigFileName)) // #nosec G304 - path from workspace discovery
	if err != nil {
		return &LocalConfig{}
	}

	var cfg LocalConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return &LocalConfig{}
	}
	return &cfg
}
