// Package config loads the bindery configuration file and applies
// environment overrides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	binderrors "git.home.luguber.info/inful/bindery/internal/errors"
)

// Config is the top-level configuration.
type Config struct {
	// Suffix is the source extension compiled units are discovered by.
	Suffix string `yaml:"suffix"`
	// Formats are the output formats a sweep produces per unit.
	Formats []string `yaml:"formats"`
	// Typesetter is the external typesetter binary.
	Typesetter string `yaml:"typesetter,omitempty"`
	// Imposer is the external imposition binary.
	Imposer string `yaml:"imposer,omitempty"`
	// HistoryDB is the path of the compile-history database.
	HistoryDB string `yaml:"history_db,omitempty"`
	// Options is the persisted render option map applied to every unit.
	Options map[string]string `yaml:"options,omitempty"`
	// Daemon configures the periodic sweep daemon.
	Daemon DaemonConfig `yaml:"daemon,omitempty"`
}

// DaemonConfig configures the periodic sweep daemon.
type DaemonConfig struct {
	IntervalMinutes int    `yaml:"interval_minutes,omitempty"`
	MetricsAddr     string `yaml:"metrics_addr,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Suffix:     ".md",
		Formats:    []string{"html", "tex"},
		Typesetter: "xelatex",
		Imposer:    "pdfimpose",
		HistoryDB:  ".bindery/history.db",
		Daemon:     DaemonConfig{IntervalMinutes: 15},
	}
}

// Load reads the configuration file, fills defaults, and applies
// environment overrides (BINDERY_TYPESETTER, BINDERY_IMPOSER,
// BINDERY_HISTORY_DB).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, binderrors.ConfigNotFound(path)
		}
		return nil, binderrors.FileSystemError(path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg, nil
}

// LoadOrDefault loads the configuration file when present, otherwise the
// defaults with environment overrides.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		if binderrors.IsCategory(err, binderrors.CategoryConfig) {
			cfg = Default()
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.Suffix == "" {
		c.Suffix = def.Suffix
	}
	if len(c.Formats) == 0 {
		c.Formats = def.Formats
	}
	if c.Typesetter == "" {
		c.Typesetter = def.Typesetter
	}
	if c.Imposer == "" {
		c.Imposer = def.Imposer
	}
	if c.HistoryDB == "" {
		c.HistoryDB = def.HistoryDB
	}
	if c.Daemon.IntervalMinutes <= 0 {
		c.Daemon.IntervalMinutes = def.Daemon.IntervalMinutes
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("BINDERY_TYPESETTER"); v != "" {
		c.Typesetter = v
	}
	if v := os.Getenv("BINDERY_IMPOSER"); v != "" {
		c.Imposer = v
	}
	if v := os.Getenv("BINDERY_HISTORY_DB"); v != "" {
		c.HistoryDB = v
	}
}

// Init writes a default configuration file.
func Init(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file %s already exists (use --force to overwrite)", path)
		}
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return binderrors.FileSystemError(path, err)
	}
	return nil
}
