package policy

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrUnsupportedVersion is returned for policy files whose version is not 1.
var ErrUnsupportedVersion = errors.New("unsupported policy version")

// LoadPolicy reads and parses a policy file. Nil maps are initialised so
// callers can index them freely.
func LoadPolicy(path string) (*PolicyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg PolicyConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse policy %s: %w", path, err)
	}

	if cfg.Version != 1 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, cfg.Version)
	}

	if cfg.Domains == nil {
		cfg.Domains = make(map[string]DomainConfig)
	}
	if cfg.Rules == nil {
		cfg.Rules = make(map[string]RuleConfig)
	}
	if cfg.Enforcement == nil {
		cfg.Enforcement = make(map[string]EnforcementConfig)
	}

	return &cfg, nil
}

// LoadOptional loads path when it exists. A missing file yields a nil policy
// and no error.
func LoadOptional(path string) (*PolicyConfig, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return LoadPolicy(path)
}

// LoadValidated is LoadOptional followed by Validate against ruleIDs. All
// validation problems are joined into the returned error.
func LoadValidated(path string, ruleIDs []string) (*PolicyConfig, error) {
	cfg, err := LoadOptional(path)
	if err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}
	if cfg == nil {
		return nil, nil
	}
	if errs := Validate(cfg, ruleIDs); len(errs) > 0 {
		return nil, fmt.Errorf("policy %s: %w", path, errors.Join(errs...))
	}
	return cfg, nil
}
