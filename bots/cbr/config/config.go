// Package config extends the core configuration with the rate bot's own sections.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"

	coreconfig "github.com/m3rciful/cbrbot/core/config"
	coredatabase "github.com/m3rciful/cbrbot/core/database"
	"github.com/m3rciful/cbrbot/core/telegram/state"
)

const (
	defaultCBRTimeoutSeconds = 10
	defaultStateTTLHours     = 24
	defaultRedisPrefix       = "cbrbot:chat:"
)

// CBRConfig points at the central bank daily feed.
type CBRConfig struct {
	URL            string `yaml:"url" envconfig:"CBR_URL"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"CBR_TIMEOUT_SECONDS"`
}

// RedisConfig holds the redis connection for the shared state backend.
type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB"`
	Prefix   string `yaml:"prefix" envconfig:"REDIS_PREFIX"`
}

// StateConfig selects where per-chat modes live.
type StateConfig struct {
	// Backend is "memory" or "redis".
	Backend  string      `yaml:"backend" envconfig:"STATE_BACKEND"`
	TTLHours int         `yaml:"ttl_hours" envconfig:"STATE_TTL_HOURS"`
	Redis    RedisConfig `yaml:"redis"`
}

// DatabaseConfig enables the quote journal.
type DatabaseConfig struct {
	coredatabase.Config `yaml:",inline"`

	Enabled bool `yaml:"enabled" envconfig:"DB_ENABLED"`
}

// Config is the full configuration of the rate bot.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	CBR      CBRConfig      `yaml:"cbr"`
	State    StateConfig    `yaml:"state"`
	Database DatabaseConfig `yaml:"database"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// CBRTimeout returns the per-request timeout of the rate source.
func (c *Config) CBRTimeout() time.Duration {
	return time.Duration(c.CBR.TimeoutSeconds) * time.Second
}

// RedisOptions converts the state section for state.NewStore.
func (c *Config) RedisOptions() state.RedisOptions {
	return state.RedisOptions{
		Addr:     c.State.Redis.Addr,
		Password: c.State.Redis.Password,
		DB:       c.State.Redis.DB,
		Prefix:   c.State.Redis.Prefix,
		TTL:      time.Duration(c.State.TTLHours) * time.Hour,
	}
}

// Load reads an optional .env file, then the YAML at path, then the environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the bot sections and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}

	if cfg.CBR.TimeoutSeconds < 0 {
		return fmt.Errorf("cbr.timeout_seconds must be >= 0")
	}
	if cfg.CBR.TimeoutSeconds == 0 {
		cfg.CBR.TimeoutSeconds = defaultCBRTimeoutSeconds
	}
	cfg.CBR.URL = strings.TrimSpace(cfg.CBR.URL)

	backend := strings.ToLower(strings.TrimSpace(cfg.State.Backend))
	switch backend {
	case "":
		backend = "memory"
	case "memory":
	case "redis":
		if strings.TrimSpace(cfg.State.Redis.Addr) == "" {
			return fmt.Errorf("state.redis.addr is required when state.backend is 'redis'")
		}
	default:
		return fmt.Errorf("invalid state.backend %q; allowed: memory, redis", cfg.State.Backend)
	}
	cfg.State.Backend = backend
	if cfg.State.TTLHours <= 0 {
		cfg.State.TTLHours = defaultStateTTLHours
	}
	if cfg.State.Redis.Prefix == "" {
		cfg.State.Redis.Prefix = defaultRedisPrefix
	}

	if cfg.Database.Enabled {
		if cfg.Database.Host == "" || cfg.Database.Name == "" {
			return fmt.Errorf("database.host and database.name are required when database.enabled is true")
		}
		if cfg.Database.Port == "" {
			cfg.Database.Port = "5432"
		}
		if cfg.Database.SSLMode == "" {
			cfg.Database.SSLMode = "disable"
		}
		if cfg.Database.MaxConnections <= 0 {
			cfg.Database.MaxConnections = 5
		}
	}
	return nil
}
