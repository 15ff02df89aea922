// Package config loads pagebuilder settings from a YAML file, with
// environment overrides for the values operators change most.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"pagebuilder/internal/domain"
)

// CatalogEntry adds or overrides a component type's defaults.
type CatalogEntry struct {
	Type   string         `yaml:"type"`
	Width  float64        `yaml:"width"`
	Height float64        `yaml:"height"`
	Props  map[string]any `yaml:"props"`
}

type Breakpoints struct {
	Tablet int `yaml:"tablet"`
	Mobile int `yaml:"mobile"`
}

type Config struct {
	// DataDir holds the SQLite database and the versions repository.
	DataDir  string `yaml:"data_dir"`
	LogLevel string `yaml:"log_level"`
	// HistoryMax bounds undo history per page.
	HistoryMax int `yaml:"history_max"`
	// Autosave is a cron spec; empty disables autosave.
	Autosave      string         `yaml:"autosave"`
	Breakpoints   Breakpoints    `yaml:"breakpoints"`
	DefaultDevice string         `yaml:"default_device"`
	Versions      bool           `yaml:"versions"`
	Catalog       []CatalogEntry `yaml:"catalog"`
}

// DefaultDataDir follows the XDG layout under the user's home.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pagebuilder"
	}
	return filepath.Join(home, ".local", "share", "pagebuilder")
}

func Default() Config {
	rc := domain.DefaultResponsiveConfig()
	return Config{
		DataDir:       DefaultDataDir(),
		LogLevel:      "info",
		HistoryMax:    50,
		Autosave:      "@every 30s",
		Breakpoints:   Breakpoints{Tablet: rc.Breakpoints.Tablet, Mobile: rc.Breakpoints.Mobile},
		DefaultDevice: rc.DefaultDevice,
		Versions:      true,
	}
}

// Load reads path over the defaults and applies environment overrides. An
// empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if cfg, err = Parse(data); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults without consulting the environment.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.DataDir = getenv("PAGEBUILDER_DATA_DIR", c.DataDir)
	c.LogLevel = getenv("PAGEBUILDER_LOG_LEVEL", c.LogLevel)
	c.HistoryMax = getenvInt("PAGEBUILDER_HISTORY_MAX", c.HistoryMax)
}

func (c Config) Validate() error {
	var errs []error
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir is empty"))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if c.HistoryMax <= 0 {
		errs = append(errs, fmt.Errorf("history_max must be positive, got %d", c.HistoryMax))
	}
	if c.Autosave != "" {
		if _, err := cron.ParseStandard(c.Autosave); err != nil {
			errs = append(errs, fmt.Errorf("autosave: %w", err))
		}
	}
	if _, err := domain.ParseBreakpoint(c.DefaultDevice); err != nil {
		errs = append(errs, fmt.Errorf("default_device: %w", err))
	}
	if c.Breakpoints.Tablet < 0 || c.Breakpoints.Mobile < 0 || c.Breakpoints.Mobile > c.Breakpoints.Tablet {
		errs = append(errs, fmt.Errorf("breakpoints: need 0 <= mobile <= tablet, got %d/%d", c.Breakpoints.Mobile, c.Breakpoints.Tablet))
	}
	for i, e := range c.Catalog {
		if e.Type == "" {
			errs = append(errs, fmt.Errorf("catalog[%d]: type is empty", i))
		}
		if e.Width < 0 || e.Height < 0 {
			errs = append(errs, fmt.Errorf("catalog[%d]: negative size", i))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

// Responsive returns the breakpoint config new pages start with.
func (c Config) Responsive() domain.ResponsiveConfig {
	return domain.ResponsiveConfig{
		Breakpoints:   domain.BreakpointWidths{Tablet: c.Breakpoints.Tablet, Mobile: c.Breakpoints.Mobile},
		DefaultDevice: c.DefaultDevice,
	}
}

func (c Config) DBPath() string { return filepath.Join(c.DataDir, "pagebuilder.db") }

func (c Config) VersionsDir() string { return filepath.Join(c.DataDir, "versions") }

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
