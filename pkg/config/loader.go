package config

import (
	"os"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// Initialize reads turbowrap.yaml from configDir, expands environment
// variable references, merges the result over DefaultConfig, and
// validates the merged config before returning it. A missing file is not
// an error: the defaults alone are a valid configuration.
func Initialize(configDir string) (*Config, error) {
	cfg := DefaultConfig()

	path := configDir + "/turbowrap.yaml"
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if verr := Validate(cfg); verr != nil {
				return nil, verr
			}
			return &cfg, nil
		}
		return nil, NewLoadError(path, err)
	}

	expanded := ExpandEnv(raw)

	var fromFile Config
	if err := yaml.Unmarshal(expanded, &fromFile); err != nil {
		return nil, NewLoadError(path, err)
	}

	if err := mergo.Merge(&cfg, fromFile, mergo.WithOverride); err != nil {
		return nil, NewLoadError(path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
