// Package config loads the optional kargtune configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/kargtune/kargtune/pkg/profiles"
)

// DefaultConfigPath is the optional site configuration file.
const DefaultConfigPath = "/etc/kargtune/config.yaml"

// Config is the full configuration schema. Every field has a working default;
// an absent config file is not an error.
type Config struct {
	// StatePath overrides the profile state record location.
	StatePath string `yaml:"state_path"`

	// GrubConfigPath overrides the bootloader defaults file location.
	GrubConfigPath string `yaml:"grub_config_path"`

	// HistoryPath overrides the apply-run journal database location.
	HistoryPath string `yaml:"history_path"`

	// TransactionWait bounds how long an apply waits for an in-flight
	// backend transaction before attempting cleanup.
	TransactionWait time.Duration `yaml:"transaction_wait" validate:"min=0"`

	// Profiles are site-defined profiles, overriding builtins by name.
	Profiles []profiles.Profile `yaml:"profiles" validate:"dive"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		TransactionWait: 30 * time.Second,
	}
}

var validate = validator.New()

// Load reads the config file at path, or the default location when path is
// empty. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	if cfg.TransactionWait <= 0 {
		cfg.TransactionWait = Default().TransactionWait
	}
	return cfg, nil
}
