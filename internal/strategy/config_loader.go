package strategy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents one strategy entry in YAML.
type Config struct {
	Name       string         `yaml:"name"`
	Type       string         `yaml:"type"`
	Symbol     string         `yaml:"symbol"`
	Parameters map[string]any `yaml:"parameters"`
}

// ConfigFile is the top-level YAML structure.
type ConfigFile struct {
	Strategies []Config `yaml:"strategies"`
}

// LoadConfig reads strategy definitions from a YAML file.
func LoadConfig(path string) ([]Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file ConfigFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return file.Strategies, nil
}

// Build instantiates a strategy from its config entry.
func Build(cfg Config) (Strategy, error) {
	switch cfg.Type {
	case "sma_cross":
		short := intParam(cfg.Parameters, "short_window", 5)
		long := intParam(cfg.Parameters, "long_window", 20)
		return NewSMACross(cfg.Symbol, short, long)
	default:
		return nil, fmt.Errorf("unknown strategy type %q", cfg.Type)
	}
}

// intParam reads an integer parameter, tolerating the YAML number types.
func intParam(params map[string]any, key string, def int) int {
	v, ok := params[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return def
}
