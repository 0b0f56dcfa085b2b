// Package config handles loading and managing ledgerbox configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/ledgerbox/ledgerbox/internal/fileutil"
)

// DataConfig holds data storage configuration.
type DataConfig struct {
	DataDir string `toml:"data_dir"`
}

// SearchConfig holds search pipeline tuning.
type SearchConfig struct {
	CacheTTLSeconds  int `toml:"cache_ttl_seconds"` // result cache TTL (default: 300)
	CacheCapacity    int `toml:"cache_capacity"`    // result cache entry cap (default: 100)
	DebounceMillis   int `toml:"debounce_millis"`   // orchestrator debounce (default: 300)
	PageSize         int `toml:"page_size"`         // results per page (default: 50)
	SuggestionLength int `toml:"suggestion_length"` // min chars before suggesting (default: 2)
}

// ServerConfig holds HTTP API server configuration.
type ServerConfig struct {
	APIPort      int     `toml:"api_port"`       // HTTP server port (default: 8080)
	APIKey       string  `toml:"api_key"`        // API authentication key
	RateLimitRPS float64 `toml:"rate_limit_rps"` // per-client requests/sec (default: 10)
	RateBurst    int     `toml:"rate_burst"`     // per-client burst (default: 20)
}

type Config struct {
	Data   DataConfig   `toml:"data"`
	Search SearchConfig `toml:"search"`
	Server ServerConfig `toml:"server"`

	// Computed paths (not from config file)
	HomeDir string `toml:"-"`
}

// DefaultHome returns the default ledgerbox home directory.
// Respects LEDGERBOX_HOME environment variable.
func DefaultHome() string {
	if h := os.Getenv("LEDGERBOX_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ledgerbox"
	}
	return filepath.Join(home, ".ledgerbox")
}

// Load reads the configuration from the specified file.
// If path is empty, uses the default location (~/.ledgerbox/config.toml).
func Load(path string) (*Config, error) {
	homeDir := DefaultHome()

	if path == "" {
		path = filepath.Join(homeDir, "config.toml")
	}

	cfg := &Config{
		HomeDir: homeDir,
		// Defaults
		Data: DataConfig{
			DataDir: homeDir,
		},
		Search: SearchConfig{
			CacheTTLSeconds:  300,
			CacheCapacity:    100,
			DebounceMillis:   300,
			PageSize:         50,
			SuggestionLength: 2,
		},
		Server: ServerConfig{
			APIPort:      8080,
			RateLimitRPS: 10,
			RateBurst:    20,
		},
	}

	// Config file is optional - use defaults if not present
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.Data.DataDir = expandPath(cfg.Data.DataDir)

	return cfg, nil
}

// EnsureHomeDir creates the data directory if it does not exist.
// The directory is owner-only since it holds the email database.
func (c *Config) EnsureHomeDir() error {
	return fileutil.SecureMkdirAll(c.Data.DataDir, 0o700)
}

// DatabasePath returns the path to the SQLite database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Data.DataDir, "ledgerbox.db")
}

// CacheTTL returns the result cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Search.CacheTTLSeconds) * time.Second
}

// DebounceInterval returns the orchestrator debounce as a duration.
func (c *Config) DebounceInterval() time.Duration {
	return time.Duration(c.Search.DebounceMillis) * time.Millisecond
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
