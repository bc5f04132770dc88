package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/memlens/memlens/pkg/layout"
)

// Config is the on-disk CLI configuration, loaded from
// ~/.config/memlens/config.toml (or $XDG_CONFIG_HOME/memlens/config.toml).
// Every field is optional; a missing file means defaults everywhere.
type Config struct {
	Layout LayoutConfig `toml:"layout"`
	Cache  CacheConfig  `toml:"cache"`
	Store  StoreConfig  `toml:"store"`
	Server ServerConfig `toml:"server"`
}

// LayoutConfig mirrors the layout tuning knobs. Zero fields fall back to the
// engine defaults, so a partial [layout] table overrides only what it names.
type LayoutConfig struct {
	MaxVisibleChildren  int     `toml:"max_visible_children"`
	LevelHeight         float64 `toml:"level_height"`
	TrunkHeight         float64 `toml:"trunk_height"`
	BaseRadiusStep      float64 `toml:"base_radius_step"`
	LabelRadiusFactor   float64 `toml:"label_radius_factor"`
	JitterFraction      float64 `toml:"jitter_fraction"`
	LowWeightPercentile float64 `toml:"low_weight_percentile"`
}

// CacheConfig selects the layout cache backend.
type CacheConfig struct {
	// Dir overrides the file cache directory.
	Dir string `toml:"dir"`

	// RedisAddr switches the serve command to a shared Redis cache when set.
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
}

// StoreConfig selects the snapshot store used by the serve command.
type StoreConfig struct {
	// MongoURI enables the Mongo snapshot store when set. Empty means an
	// in-process memory store.
	MongoURI   string `toml:"mongo_uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":7151"},
	}
}

// LoadConfig reads the config file at path, or the default location when
// path is empty. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = configPath()
		if err != nil {
			return DefaultConfig(), nil
		}
	}

	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultConfig().Server.Addr
	}
	return cfg, nil
}

// configPath returns the default config file location using the XDG standard.
func configPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// toConfig maps the TOML table onto the engine's layout config. Zero fields
// stay zero; the engine substitutes its own defaults.
func (l LayoutConfig) toConfig() layout.Config {
	return layout.Config{
		MaxVisibleChildren:  l.MaxVisibleChildren,
		LevelHeight:         l.LevelHeight,
		TrunkHeight:         l.TrunkHeight,
		BaseRadiusStep:      l.BaseRadiusStep,
		LabelRadiusFactor:   l.LabelRadiusFactor,
		JitterFraction:      l.JitterFraction,
		LowWeightPercentile: l.LowWeightPercentile,
	}
}
