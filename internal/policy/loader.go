package policy

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadPolicy reads and parses the policy file at path, fills defaults and
// validates the result. An empty path returns Default().
func LoadPolicy(path string) (*PolicyConfig, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy %s: %w", path, err)
	}

	var cfg PolicyConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse policy %s: %w", path, err)
	}

	if cfg.Version != 1 {
		return nil, errors.New("unsupported policy version")
	}

	applyDefaults(&cfg)

	if errs := Validate(&cfg); len(errs) > 0 {
		return nil, fmt.Errorf("invalid policy %s: %w", path, errors.Join(errs...))
	}
	return &cfg, nil
}
