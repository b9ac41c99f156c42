// Package config loads the afd configuration: a yaml file under
// ~/.config/afd/ with AFD_-prefixed environment overrides layered on
// top.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds the global afd configuration.
type Config struct {
	Daemon DaemonConfig `yaml:"daemon"`
	Remote RemoteConfig `yaml:"remote"`
	Store  StoreConfig  `yaml:"store"`
	Audit  AuditConfig  `yaml:"audit"`
	Log    LogConfig    `yaml:"log"`
}

// DaemonConfig controls the daemon's listeners and lifetime.
type DaemonConfig struct {
	// HTTPAddr enables the HTTP surface (rpc, events, channels) when
	// non-empty, e.g. "127.0.0.1:7465".
	HTTPAddr    string `yaml:"http_addr" env:"AFD_HTTP_ADDR"`
	IdleTimeout string `yaml:"idle_timeout" env:"AFD_IDLE_TIMEOUT"`
}

// RemoteConfig controls how the CLI reaches a daemon.
type RemoteConfig struct {
	// Mode: auto (socket, spawn, then http), socket, http, or off
	// (always in-process).
	Mode string `yaml:"mode" env:"AFD_REMOTE"`
	// HTTPBase is the daemon base URL for http mode.
	HTTPBase string `yaml:"http_base" env:"AFD_HTTP_BASE"`
}

// StoreConfig selects the todo store backend.
type StoreConfig struct {
	// Backend: memory or sqlite.
	Backend string `yaml:"backend" env:"AFD_STORE"`
	// Path is the sqlite database file; ignored for memory.
	Path string `yaml:"path" env:"AFD_STORE_PATH"`
}

// AuditConfig controls the invocation audit log.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled" env:"AFD_AUDIT"`
	Path    string `yaml:"path" env:"AFD_AUDIT_PATH"`
}

// LogConfig controls daemon logging.
type LogConfig struct {
	// Level: debug, info, warn, error.
	Level string `yaml:"level" env:"AFD_LOG_LEVEL"`
}

// DefaultIdleTimeout is used when no idle_timeout is configured.
const DefaultIdleTimeout = 5 * time.Minute

// IdleTimeoutDuration parses the configured idle timeout or returns the
// default.
func (d *DaemonConfig) IdleTimeoutDuration() time.Duration {
	if d.IdleTimeout != "" {
		if dur, err := time.ParseDuration(d.IdleTimeout); err == nil {
			return dur
		}
	}
	return DefaultIdleTimeout
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ".local", "share", "afd")
	return &Config{
		Remote: RemoteConfig{
			Mode:     "auto",
			HTTPBase: "http://127.0.0.1:7465",
		},
		Store: StoreConfig{
			Backend: "sqlite",
			Path:    filepath.Join(dataDir, "todos.db"),
		},
		Audit: AuditConfig{
			Enabled: true,
			Path:    filepath.Join(dataDir, "audit.jsonl"),
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads the config from the standard location
// (~/.config/afd/config.yaml) and applies environment overrides.
// A missing file is not an error; defaults apply.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return applyEnv(DefaultConfig())
	}
	return LoadFrom(filepath.Join(home, ".config", "afd", "config.yaml"))
}

// LoadFrom reads the config from the given path and applies environment
// overrides on top.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults only.
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg, err = applyEnv(cfg)
	if err != nil {
		return nil, err
	}

	// Expand ~ in file paths.
	cfg.Store.Path = expandHome(cfg.Store.Path)
	cfg.Audit.Path = expandHome(cfg.Audit.Path)
	return cfg, nil
}

func applyEnv(cfg *Config) (*Config, error) {
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment overrides: %w", err)
	}
	return cfg, nil
}

func expandHome(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[1:])
	}
	return path
}

// ConfigPath returns the standard config file path.
func ConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "afd", "config.yaml")
}
