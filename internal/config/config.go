// Package config holds the settings of the schedule command.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jacentio/schedule/feed"
	"github.com/jacentio/schedule/loader"
	"github.com/jacentio/schedule/store"
)

// Backend names.
const (
	BackendFile   = "file"
	BackendDynamo = "dynamo"
	BackendMemory = "memory"
)

// Config is the full command configuration. Zero values are replaced by
// Default() values in Validate.
type Config struct {
	Backend string `yaml:"backend"`

	// File backend.
	Path  string `yaml:"path"`
	Codec string `yaml:"codec"`

	// Dynamo backend.
	Table    string `yaml:"table"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
	Profile  string `yaml:"profile"`

	FeedPath string `yaml:"feed_path"`
	FeedURL  string `yaml:"feed_url"`
	Sentinel string `yaml:"sentinel"`
	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when nothing is specified.
func Default() Config {
	file := store.DefaultFileConfig()
	return Config{
		Backend:  BackendFile,
		Path:     file.Path,
		Codec:    file.Codec,
		Table:    store.DefaultDynamoConfig().Table,
		FeedPath: feed.DefaultPath,
		FeedURL:  feed.DefaultURL,
		Sentinel: loader.DefaultSentinel,
		LogLevel: "info",
	}
}

// Load reads a YAML file on top of Default(). A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate fills empty values with defaults and rejects unknown names.
func (c *Config) Validate() error {
	def := Default()
	if c.Backend == "" {
		c.Backend = def.Backend
	}
	if c.Path == "" {
		c.Path = def.Path
	}
	if c.Codec == "" {
		c.Codec = def.Codec
	}
	if c.Table == "" {
		c.Table = def.Table
	}
	if c.FeedPath == "" {
		c.FeedPath = def.FeedPath
	}
	if c.Sentinel == "" {
		c.Sentinel = def.Sentinel
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}

	switch c.Backend {
	case BackendFile, BackendDynamo, BackendMemory:
	default:
		return fmt.Errorf("unknown backend: %q", c.Backend)
	}
	switch c.Codec {
	case store.CodecJSON, store.CodecCBOR:
	default:
		return fmt.Errorf("unknown codec: %q", c.Codec)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %q", c.LogLevel)
	}
}

// FileConfig returns the File store settings.
func (c *Config) FileConfig() store.FileConfig {
	return store.FileConfig{Path: c.Path, Codec: c.Codec}
}

// DynamoConfig returns the Dynamo store settings.
func (c *Config) DynamoConfig() store.DynamoConfig {
	cfg := store.DefaultDynamoConfig()
	cfg.Table = c.Table
	return cfg
}
