// Package config provides YAML-based configuration loading for Parsinator.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/zulandar/parsinator/internal/heuristics"
	"github.com/zulandar/parsinator/internal/models"
)

// DefaultPath is the config file read when no --config flag is given.
const DefaultPath = "parsinator.yaml"

// Config is the top-level Parsinator configuration, loaded from parsinator.yaml.
type Config struct {
	ProjectName    string                `yaml:"project_name"`
	Output         string                `yaml:"output"`
	ExistingTasks  string                `yaml:"existing_tasks"`
	ApplyThreshold float64               `yaml:"apply_threshold"`
	ParseWorkers   int                   `yaml:"parse_workers"`
	LogLevel       string                `yaml:"log_level"`
	Store          StoreConfig           `yaml:"store"`
	Heuristics     heuristics.Heuristics `yaml:"heuristics"`
}

// StoreConfig holds connection settings for the generation history store.
type StoreConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// thresholdUnset marks an apply_threshold absent from the file, so an
// explicit 0 stays 0.
const thresholdUnset = -1

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// LoadOrDefault behaves like Load, except that a missing file at the
// default path yields the default configuration.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	cfg, err := Load(path)
	if err != nil && path == DefaultPath && errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{Heuristics: *heuristics.Default(), ApplyThreshold: thresholdUnset}
	cfg.applyDefaults()
	return cfg
}

// Parse unmarshals YAML bytes into a validated Config. The heuristics
// block is decoded over the stock heuristics, so only the keys present
// in the file change.
func Parse(data []byte) (*Config, error) {
	cfg := Config{Heuristics: *heuristics.Default(), ApplyThreshold: thresholdUnset}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.ProjectName == "" {
		c.ProjectName = models.DefaultProjectName
	}
	if c.Output == "" {
		c.Output = "tasks.json"
	}
	if c.ApplyThreshold == thresholdUnset {
		c.ApplyThreshold = c.Heuristics.ApplyThreshold
	} else {
		c.Heuristics.ApplyThreshold = c.ApplyThreshold
	}
	if c.ParseWorkers == 0 {
		c.ParseWorkers = 4
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = DriverSQLite
	}
	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.Path == "" {
			c.Store.Path = ".parsinator/history.db"
		}
	case DriverMySQL:
		if c.Store.Host == "" {
			c.Store.Host = "127.0.0.1"
		}
		if c.Store.Port == 0 {
			c.Store.Port = 3306
		}
		if c.Store.User == "" {
			c.Store.User = "root"
		}
		if c.Store.Database == "" {
			c.Store.Database = "parsinator"
		}
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if !strings.HasSuffix(strings.ToLower(c.Output), ".json") {
		errs = append(errs, fmt.Sprintf("output must be a .json file, got %q", c.Output))
	}
	if c.ApplyThreshold < 0 || c.ApplyThreshold > 1 {
		errs = append(errs, fmt.Sprintf("apply_threshold must be within [0,1], got %g", c.ApplyThreshold))
	}
	if c.ParseWorkers < 0 {
		errs = append(errs, "parse_workers must not be negative")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Sprintf("log_level %q is not a valid level", c.LogLevel))
	}
	switch c.Store.Driver {
	case DriverSQLite, DriverMySQL:
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be %q or %q, got %q", DriverSQLite, DriverMySQL, c.Store.Driver))
	}
	if err := c.Heuristics.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
