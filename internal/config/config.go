// Package config loads the TOML configuration that selects and parameterizes
// the storage backend, server bind address, and logging behavior.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the top-level shape of config.toml.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Storage StorageConfig `toml:"storage"`
	Log     LogConfig     `toml:"log"`
}

type ServerConfig struct {
	Host     string `toml:"host"`
	Port     uint16 `toml:"port"`
	Prefix   string `toml:"prefix"`
	LogLevel string `toml:"log_level"`
}

type LogConfig struct {
	FileEnabled bool   `toml:"file_enabled"`
	FilePath    string `toml:"file_path"`
}

// StorageConfig selects the active Backend ("localfs" or "quark") and
// carries the settings for both, only one of which is consulted at a time.
type StorageConfig struct {
	Backend    string           `toml:"backend"`
	TempPath   string           `toml:"temp_path"`
	FileSystem FileSystemConfig `toml:"filesystem"`
	Quark      QuarkConfig      `toml:"quark"`
}

type FileSystemConfig struct {
	RootPath string `toml:"root_path"`
}

type QuarkConfig struct {
	Cookie string `toml:"cookie"`
	RootID string `toml:"root_id"`
}

const defaultTempPath = "./temp"

// Load reads and parses the TOML file at path, defaulting an empty
// storage.temp_path to "./temp" and creating it if necessary — unlike the
// Rust original's lazily-initialized global, the caller owns the returned
// value and is free to construct more than one for tests.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if _, err := toml.Decode(string(content), &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if cfg.Storage.TempPath == "" {
		cfg.Storage.TempPath = defaultTempPath
	}
	if err := os.MkdirAll(cfg.Storage.TempPath, 0o755); err != nil {
		return nil, fmt.Errorf("create temp directory: %w", err)
	}

	return &cfg, nil
}
