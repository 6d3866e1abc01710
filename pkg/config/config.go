// Package config loads the JSON-tagged configuration tree for the
// statestorage service: which backend to mount as the root parent, how
// the async worker pool is sized, and ambient logging/server settings.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config is the top-level application configuration.
type Config struct {
	Server     ServerConfig     `json:"server"`
	Storage    StorageConfig    `json:"storage"`
	Backend    BackendConfig    `json:"backend"`
	Log        LogConfig        `json:"log"`
	WorkerPool WorkerPoolConfig `json:"worker_pool"`
}

// ServerConfig configures the read-only MCP introspection surface.
type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// StorageConfig configures the top-level StateStorage layer.
type StorageConfig struct {
	CheckVersion bool   `json:"check_version"`
	BlockNumber  uint64 `json:"block_number"`
	// Locale, when set (a BCP 47 tag such as "zh" or "en-US"), selects a
	// collation-aware key comparator for GetPrimaryKeys range predicates
	// in place of raw byte ordering.
	Locale string `json:"locale"`
	// HashKind selects the table-hash implementation: "sha256" (default)
	// or "xxhash".
	HashKind string `json:"hash_kind"`
}

// BackendConfig selects and configures the persistent leaf backend
// mounted as the root StateStorage's parent.
type BackendConfig struct {
	// Kind is one of "none", "badger", "sql".
	Kind  string      `json:"kind"`
	Badger BadgerConfig `json:"badger"`
	SQL    SQLConfig    `json:"sql"`
}

// BadgerConfig configures pkg/backend/badgerbackend.
type BadgerConfig struct {
	DataDir  string `json:"data_dir"`
	InMemory bool   `json:"in_memory"`
}

// SQLConfig configures pkg/backend/sqlbackend.
type SQLConfig struct {
	Driver string `json:"driver"` // mysql, postgres, sqlite
	DSN    string `json:"dsn"`
}

// LogConfig configures the structured logger threaded through the
// storage engine and backends.
type LogConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json or text
}

// WorkerPoolConfig sizes the async executor.
type WorkerPoolConfig struct {
	MaxWorkers int `json:"max_workers"`
	QueueSize  int `json:"queue_size"`
}

// DefaultConfig returns a fully populated configuration suitable for an
// in-memory, single-process deployment with no persistent backend.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8765,
		},
		Storage: StorageConfig{
			CheckVersion: true,
			BlockNumber:  0,
			HashKind:     "sha256",
		},
		Backend: BackendConfig{
			Kind: "none",
			Badger: BadgerConfig{
				InMemory: true,
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		WorkerPool: WorkerPoolConfig{
			MaxWorkers: 10,
			QueueSize:  1000,
		},
	}
}

// LoadConfig reads configPath and merges it over DefaultConfig. An empty
// path returns the defaults unchanged.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigOrDefault tries STATESTORAGE_CONFIG, then a couple of
// conventional locations, and falls back to DefaultConfig.
func LoadConfigOrDefault() *Config {
	if envPath := os.Getenv("STATESTORAGE_CONFIG"); envPath != "" {
		if cfg, err := LoadConfig(envPath); err == nil {
			return cfg
		}
	}

	for _, path := range []string{"config.json", "./config/config.json"} {
		abs, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		if cfg, err := LoadConfig(abs); err == nil {
			return cfg
		}
	}

	return DefaultConfig()
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}
	if cfg.WorkerPool.MaxWorkers < 1 {
		return fmt.Errorf("worker_pool.max_workers must be positive")
	}
	if cfg.WorkerPool.QueueSize < 1 {
		return fmt.Errorf("worker_pool.queue_size must be positive")
	}
	switch cfg.Backend.Kind {
	case "none", "badger", "sql":
	default:
		return fmt.Errorf("unknown backend kind: %s", cfg.Backend.Kind)
	}
	switch cfg.Storage.HashKind {
	case "", "sha256", "xxhash":
	default:
		return fmt.Errorf("unknown storage hash_kind: %s", cfg.Storage.HashKind)
	}
	return nil
}

// ListenAddress returns the MCP server's listen address.
func (c *Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
