package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings holds persistent CLI defaults loaded from a config file.
type Settings struct {
	Workers  int    `yaml:"workers"`
	MaxFiles int    `yaml:"max_files"`
	Format   string `yaml:"format"` // text, json, sarif
	NoColor  bool   `yaml:"no_color"`

	// Directory names pruned during discovery, merged with the built-in
	// skip set.
	SkipDirs []string `yaml:"skip_dirs,omitempty"`

	// Scan history database location; empty disables history recording.
	HistoryDB string `yaml:"history_db,omitempty"`

	// Watch mode rescan debounce after a file change
	WatchDebounce time.Duration `yaml:"watch_debounce,omitempty"`
}

// DefaultPath returns the per-user config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".costscan.yaml"
	}
	return filepath.Join(home, ".costscan.yaml")
}

// DefaultHistoryDB returns the per-user history database location.
func DefaultHistoryDB() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".costscan-history.db"
	}
	return filepath.Join(home, ".costscan-history.db")
}

// LoadSettings reads a YAML config file into Settings.
// If the file does not exist, it returns zero-value Settings and nil error.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Settings{}, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return &s, nil
}
