// Package config loads todosync settings.
//
// Precedence, lowest first: built-in defaults, the YAML file, TODOSYNC_*
// environment variables, then command-line flags (applied by the CLI).
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Client ClientConfig `yaml:"client"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig configures `todosync serve`.
type ServerConfig struct {
	Addr string `yaml:"addr"`

	// DB is a sqlite path or a postgres:// URL. Empty keeps items in memory.
	DB string `yaml:"db"`

	// Seed loads the sample items into an empty store at startup.
	Seed bool `yaml:"seed"`

	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ClientConfig configures the commands that talk to a server.
type ClientConfig struct {
	Server          string        `yaml:"server"`
	Debounce        time.Duration `yaml:"debounce"`
	NotificationTTL time.Duration `yaml:"notification_ttl"`
}

// LogConfig configures slog.
type LogConfig struct {
	Format string `yaml:"format"` // "text" | "json"
	Level  string `yaml:"level"`  // "debug" | "info" | "warn" | "error"
}

// Environment variables read by ApplyEnv.
const (
	EnvAddr      = "TODOSYNC_ADDR"
	EnvDB        = "TODOSYNC_DB"
	EnvSeed      = "TODOSYNC_SEED"
	EnvServer    = "TODOSYNC_SERVER"
	EnvLogFormat = "TODOSYNC_LOG_FORMAT"
	EnvLogLevel  = "TODOSYNC_LOG_LEVEL"
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:           "localhost:4000",
			AllowedOrigins: []string{"http://localhost:4200", "http://localhost:4201"},
		},
		Client: ClientConfig{
			Server:          "http://localhost:4000",
			Debounce:        300 * time.Millisecond,
			NotificationTTL: 3 * time.Second,
		},
		Log: LogConfig{
			Format: "text",
			Level:  "info",
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path and then
// the process environment. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()
		if err := Decode(f, &cfg); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	}
	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Decode overlays YAML from r onto cfg. Unknown keys are rejected.
func Decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}

// ApplyEnv overlays the TODOSYNC_* variables found by lookup.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvAddr); ok {
		cfg.Server.Addr = v
	}
	if v, ok := lookup(EnvDB); ok {
		cfg.Server.DB = v
	}
	if v, ok := lookup(EnvSeed); ok {
		seed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSeed, err)
		}
		cfg.Server.Seed = seed
	}
	if v, ok := lookup(EnvServer); ok {
		cfg.Client.Server = v
	}
	if v, ok := lookup(EnvLogFormat); ok {
		cfg.Log.Format = v
	}
	if v, ok := lookup(EnvLogLevel); ok {
		cfg.Log.Level = v
	}
	return nil
}

// Validate checks the values that cannot be caught by the YAML decoder.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Server.Addr) == "" {
		errs = append(errs, errors.New("server.addr must not be empty"))
	}
	if c.Client.Debounce <= 0 {
		errs = append(errs, fmt.Errorf("client.debounce must be positive, got %s", c.Client.Debounce))
	}
	if c.Client.NotificationTTL <= 0 {
		errs = append(errs, fmt.Errorf("client.notification_ttl must be positive, got %s", c.Client.NotificationTTL))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
