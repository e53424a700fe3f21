// Package config loads settings from the environment, an optional .env file
// and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/bryan-buckman/inkwell/internal/sanitize"
)

// Defaults.
const (
	DefaultDatabaseURL = "./inkwell.db"
	DefaultPort        = "4000"
	DefaultAPIURL      = "http://localhost:3000/api"
)

// Config holds process settings.
type Config struct {
	DatabaseURL    string
	DatabaseSSL    bool
	Port           string
	APIURL         string
	SanitizePolicy string
	LogLevel       string
	LogFormat      string
	CORSOrigins    []string
}

// LoadDotEnv reads KEY=VALUE files into the environment without replacing
// variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// FromEnv builds a Config from getenv (os.Getenv in production).
func FromEnv(getenv func(string) string) (*Config, error) {
	c := &Config{
		DatabaseURL:    envOr(getenv, "DATABASE_URL", DefaultDatabaseURL),
		Port:           envOr(getenv, "PORT", DefaultPort),
		APIURL:         envOr(getenv, "INKWELL_API_URL", DefaultAPIURL),
		SanitizePolicy: envOr(getenv, "INKWELL_SANITIZE", sanitize.PolicyNone),
		LogLevel:       envOr(getenv, "LOG_LEVEL", "info"),
		LogFormat:      getenv("LOG_FORMAT"),
		CORSOrigins:    splitList(envOr(getenv, "CORS_ORIGINS", "*")),
	}
	if v := strings.TrimSpace(getenv("DATABASE_SSL")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("DATABASE_SSL: %w", err)
		}
		c.DatabaseSSL = b
	}
	return c, nil
}

// Load reads .env, then the environment.
func Load() (*Config, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}
	return FromEnv(os.Getenv)
}

// ServerFlags registers the flags that override server settings.
func (c *Config) ServerFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.DatabaseURL, "db", c.DatabaseURL, "database connection string (postgres:// url or SQLite path)")
	fs.BoolVar(&c.DatabaseSSL, "db-ssl", c.DatabaseSSL, "require TLS for PostgreSQL")
	fs.StringVar(&c.Port, "port", c.Port, "HTTP listen port")
	fs.StringVar(&c.SanitizePolicy, "sanitize", c.SanitizePolicy, "content policy: none or ugc")
	c.logFlags(fs)
}

// ClientFlags registers the flags that override client settings.
func (c *Config) ClientFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.APIURL, "api", c.APIURL, "API base URL")
}

func (c *Config) logFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "log format: text or json (default by terminal)")
}

// Validate checks settings that would otherwise fail late.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return errors.New("database url is empty")
	}
	if n, err := strconv.Atoi(c.Port); err != nil || n <= 0 || n > 65535 {
		return fmt.Errorf("invalid port %q", c.Port)
	}
	if _, err := sanitize.New(c.SanitizePolicy); err != nil {
		return err
	}
	return nil
}

// Addr is the listen address for the long-running server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func envOr(getenv func(string) string, key, def string) string {
	if v := strings.TrimSpace(getenv(key)); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
