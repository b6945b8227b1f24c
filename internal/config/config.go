package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"

	"github.com/agenthands/kwmerge/internal/core/fuzzy"
)

type ServerConfig struct {
	Port                string `toml:"port"`
	ReadTimeoutSeconds  int    `toml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `toml:"write_timeout_seconds"`
}

type SQLiteConfig struct {
	Path string `toml:"path"`
}

type PostgresConfig struct {
	DSN          string `toml:"dsn"`
	MaxOpenConns int    `toml:"max_open_conns"`
}

type MemgraphConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type StoreConfig struct {
	Driver   string         `toml:"driver"` // sqlite, postgres, memgraph or memory
	SQLite   SQLiteConfig   `toml:"sqlite"`
	Postgres PostgresConfig `toml:"postgres"`
	Memgraph MemgraphConfig `toml:"memgraph"`
}

type MatchingConfig struct {
	Threshold  float64 `toml:"threshold"`
	MaxResults int     `toml:"max_results"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // json or console
}

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Store    StoreConfig    `toml:"store"`
	Matching MatchingConfig `toml:"matching"`
	Log      LogConfig      `toml:"log"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:                "8080",
			ReadTimeoutSeconds:  15,
			WriteTimeoutSeconds: 30,
		},
		Store: StoreConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{Path: "kwmerge.db"},
			Memgraph: MemgraphConfig{
				URI: "bolt://localhost:7687",
			},
		},
		Matching: MatchingConfig{
			Threshold:  fuzzy.DefaultThreshold,
			MaxResults: 10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads a TOML file on top of Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault is Load, falling back to Default when path does not exist.
// The second return value reports whether the file was read.
func LoadOrDefault(path string) (*Config, bool, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return cfg, true, nil
}

// ApplyEnv overrides config values with environment variables when present.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("STORE_DRIVER"); v != "" {
		c.Store.Driver = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Store.SQLite.Path = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Store.Postgres.DSN = v
	}
	if v := os.Getenv("MEMGRAPH_URI"); v != "" {
		c.Store.Memgraph.URI = v
	}
	if v := os.Getenv("MEMGRAPH_USER"); v != "" {
		c.Store.Memgraph.User = v
	}
	if v := os.Getenv("MEMGRAPH_PASSWORD"); v != "" {
		c.Store.Memgraph.Password = v
	}
	if v := os.Getenv("FUZZY_THRESHOLD"); v != "" {
		threshold, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid FUZZY_THRESHOLD %q: %w", v, err)
		}
		c.Matching.Threshold = threshold
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	return c.Validate()
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite", "postgres", "memgraph", "memory":
	default:
		return fmt.Errorf("unsupported store driver: %s", c.Store.Driver)
	}
	if c.Matching.Threshold < 0 || c.Matching.Threshold > 1 {
		return fmt.Errorf("matching threshold %v outside [0, 1]", c.Matching.Threshold)
	}
	if c.Matching.MaxResults <= 0 {
		return fmt.Errorf("matching max_results must be positive, got %d", c.Matching.MaxResults)
	}
	return nil
}
