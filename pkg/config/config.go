// Package config provides configuration loading and management for tomoprep.
// It handles loading configuration from YAML files, environment overrides
// and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment variables that override configuration keys,
// e.g. TOMOPREP_SESSION_BACKEND for session.backend
const EnvPrefix = "TOMOPREP"

// Config represents the application configuration loaded from YAML
type Config struct {
	Projections ProjectionsConfig `yaml:"projections" mapstructure:"projections"`
	Center      CenterConfig      `yaml:"center" mapstructure:"center"`
	Session     SessionConfig     `yaml:"session" mapstructure:"session"`
	Preview     PreviewConfig     `yaml:"preview" mapstructure:"preview"`
	Logging     LoggingConfig     `yaml:"logging" mapstructure:"logging"`
}

// ProjectionsConfig controls which files are read as projections
type ProjectionsConfig struct {
	// Extensions lists the accepted file extensions
	Extensions []string `yaml:"extensions" mapstructure:"extensions"`
}

// CenterConfig holds the center of rotation parameters
type CenterConfig struct {
	// Strategy is the initial strategy: automatic or manual
	Strategy string `yaml:"strategy" mapstructure:"strategy"`

	// Selection picks the 180 degree file at initialization: angle or fixed
	Selection string `yaml:"selection" mapstructure:"selection"`

	// Tolerance is the sub-pixel step of the automatic estimate
	Tolerance float64 `yaml:"tolerance" mapstructure:"tolerance"`
}

// SessionConfig selects where sessions are stored
type SessionConfig struct {
	// Backend is one of yaml, bolt or sqlite
	Backend string `yaml:"backend" mapstructure:"backend"`

	// Path is the session file or database
	Path string `yaml:"path" mapstructure:"path"`

	// Name identifies the session inside bolt and sqlite databases
	Name string `yaml:"name" mapstructure:"name"`
}

// PreviewConfig controls the rendered previews
type PreviewConfig struct {
	// MarkerWidth is the width in pixels of the center of rotation marker
	MarkerWidth int `yaml:"markerWidth" mapstructure:"markerWidth"`
}

// LoggingConfig controls log output
type LoggingConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level" mapstructure:"level"`

	// Format is text or json
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Projections.Extensions = []string{".tif", ".tiff", ".png", ".jpg", ".jpeg"}

	cfg.Center.Strategy = "automatic"
	cfg.Center.Selection = "angle"
	cfg.Center.Tolerance = 0.5

	cfg.Session.Backend = "yaml"
	cfg.Session.Path = "session.yaml"
	cfg.Session.Name = "default"

	cfg.Preview.MarkerWidth = 10

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"

	return cfg
}

// Validate checks values that cannot be corrected silently
func (c *Config) Validate() error {
	switch strings.ToLower(c.Session.Backend) {
	case "yaml", "bolt", "sqlite":
	default:
		return fmt.Errorf("unknown session backend %q (must be yaml, bolt or sqlite)", c.Session.Backend)
	}
	if c.Session.Path == "" {
		return errors.New("session path must not be empty")
	}
	if c.Center.Tolerance < 0 {
		return fmt.Errorf("center tolerance must be non-negative, got %f", c.Center.Tolerance)
	}
	if c.Preview.MarkerWidth < 1 {
		return fmt.Errorf("marker width must be positive, got %d", c.Preview.MarkerWidth)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file and TOMOPREP_* environment
// variables. If the file doesn't exist, defaults and the environment are used.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, cfg)

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so environment variables can override it
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("projections.extensions", cfg.Projections.Extensions)
	v.SetDefault("center.strategy", cfg.Center.Strategy)
	v.SetDefault("center.selection", cfg.Center.Selection)
	v.SetDefault("center.tolerance", cfg.Center.Tolerance)
	v.SetDefault("session.backend", cfg.Session.Backend)
	v.SetDefault("session.path", cfg.Session.Path)
	v.SetDefault("session.name", cfg.Session.Name)
	v.SetDefault("preview.markerWidth", cfg.Preview.MarkerWidth)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
