package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LinkConfig is one primary navigation entry.
type LinkConfig struct {
	Label  string `yaml:"label"`
	Path   string `yaml:"path"`
	Prefix bool   `yaml:"prefix"` // active for nested routes too
}

// NavigationConfig is the root of navigation.yaml.
type NavigationConfig struct {
	Links []LinkConfig `yaml:"links"`
}

// DefaultNavigation is used when no navigation file exists.
func DefaultNavigation() *NavigationConfig {
	return &NavigationConfig{Links: []LinkConfig{
		{Label: "Home", Path: "/"},
		{Label: "Hotels", Path: "/hotels", Prefix: true},
		{Label: "Pricing", Path: "/pricing"},
		{Label: "About", Path: "/about"},
	}}
}

// LoadNavigationConfig loads and validates navigation links from a YAML file.
func LoadNavigationConfig(path string) (*NavigationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read navigation config: %w", err)
	}

	var cfg NavigationConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse navigation config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that every link has a label and an absolute, unique path.
func (c *NavigationConfig) Validate() error {
	if len(c.Links) == 0 {
		return fmt.Errorf("navigation config: no links")
	}
	seen := make(map[string]struct{}, len(c.Links))
	for i, l := range c.Links {
		if strings.TrimSpace(l.Label) == "" {
			return fmt.Errorf("navigation link %d: empty label", i)
		}
		if !strings.HasPrefix(l.Path, "/") {
			return fmt.Errorf("navigation link %q: path must start with /", l.Label)
		}
		if _, dup := seen[l.Path]; dup {
			return fmt.Errorf("navigation link %q: duplicate path %s", l.Label, l.Path)
		}
		seen[l.Path] = struct{}{}
	}
	return nil
}
