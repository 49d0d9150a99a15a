// Package config loads optional CLI defaults from ~/.nvaadm.yaml.
// Flags always win over file values, file values win over env.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	apperrors "github.com/BIBSYSDEV/nva-aws-cli-tools/internal/errors"
)

// Config holds the file-configurable defaults.
type Config struct {
	Profile   string `yaml:"profile"`
	APIDomain string `yaml:"api_domain"`
	Verbose   bool   `yaml:"verbose"`
}

// DefaultPath returns the config file location in the user's home.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".nvaadm.yaml")
}

// Load reads the config file at path. A missing file is not an
// error; a malformed one is.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, apperrors.NewConfigurationError("failed to read config file").
			WithCause(err).
			WithDetail("path", path)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, apperrors.NewConfigurationError("malformed config file").
			WithCause(err).
			WithDetail("path", path)
	}
	return cfg, nil
}

// ResolveProfile picks the effective profile: flag value first, then
// the config file, then the AWS_PROFILE environment variable.
func (c *Config) ResolveProfile(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if c.Profile != "" {
		return c.Profile
	}
	return os.Getenv("AWS_PROFILE")
}
