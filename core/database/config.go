package database

import (
	"fmt"
	"net/url"
)

const defaultMigrationsDir = "migrations"

// Config holds the Postgres connection of the quote journal.
type Config struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
	// MigrationsDir is relative to the working directory unless absolute.
	MigrationsDir string `yaml:"migrations_dir" envconfig:"DB_MIGRATIONS_DIR"`
}

// URL renders the connection as a postgres:// URL with escaped credentials.
func (c Config) URL() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   c.Host + ":" + c.Port,
		Path:   "/" + c.Name,
	}
	if c.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {c.SSLMode}}.Encode()
	}
	return u.String()
}

// Redacted is URL with the password masked, for logs and errors.
func (c Config) Redacted() string {
	if c.Password == "" {
		return c.URL()
	}
	masked := c
	masked.Password = "xxxxx"
	return masked.URL()
}

func (c Config) migrationsDir() string {
	if c.MigrationsDir == "" {
		return defaultMigrationsDir
	}
	return c.MigrationsDir
}

func (c Config) String() string {
	return fmt.Sprintf("%s@%s:%s/%s", c.User, c.Host, c.Port, c.Name)
}
