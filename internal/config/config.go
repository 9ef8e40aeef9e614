// Package config loads client settings from an optional .env file, an
// optional config file and PANEL_* environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"sitepanel.org/internal/storage"
	"sitepanel.org/internal/storage/badgerstore"
	"sitepanel.org/internal/storage/pgstore"
)

const envPrefix = "PANEL"

// Storage drivers.
const (
	DriverBadger   = "badger"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type API struct {
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RatePerSec float64       `mapstructure:"rate_per_sec"`
	Burst      int           `mapstructure:"burst"`
}

type Storage struct {
	Driver  string `mapstructure:"driver"`
	Path    string `mapstructure:"path"`
	DSN     string `mapstructure:"dsn"`
	Profile string `mapstructure:"profile"`
	Table   string `mapstructure:"table"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Config is the resolved client configuration.
type Config struct {
	API     API     `mapstructure:"api"`
	Storage Storage `mapstructure:"storage"`
	Log     Log     `mapstructure:"log"`
}

// Options control where Load looks.
type Options struct {
	// EnvFile is loaded when present; missing files are ignored.
	EnvFile string
	// ConfigFile is read when set; it must exist.
	ConfigFile string
}

func defaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:3000")
	v.SetDefault("api.timeout", 15*time.Second)
	v.SetDefault("api.rate_per_sec", 10.0)
	v.SetDefault("api.burst", 20)
	v.SetDefault("storage.driver", DriverBadger)
	v.SetDefault("storage.path", "~/.sitepanel/state")
	v.SetDefault("storage.dsn", "")
	v.SetDefault("storage.profile", "default")
	v.SetDefault("storage.table", "client_state")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load resolves configuration. Precedence, highest first: environment,
// config file, defaults. Values from the .env file never override variables
// already set in the environment.
func Load(opts Options) (Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load %s: %w", envFile, err)
	}

	v := viper.New()
	defaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", opts.ConfigFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	cfg.Storage.Path = expandHome(cfg.Storage.Path)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the client cannot run with.
func (c Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: api.base_url %q must be an absolute URL", c.API.BaseURL)
	}
	if c.API.Timeout < 0 {
		return errors.New("config: api.timeout must not be negative")
	}
	switch c.Storage.Driver {
	case DriverBadger:
		if strings.TrimSpace(c.Storage.Path) == "" {
			return errors.New("config: storage.path is required for the badger driver")
		}
	case DriverPostgres:
		if strings.TrimSpace(c.Storage.DSN) == "" {
			return errors.New("config: storage.dsn is required for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("config: unknown storage.driver %q", c.Storage.Driver)
	}
	return nil
}

// OpenStore opens the configured durable client storage.
func OpenStore(ctx context.Context, c Storage) (storage.Store, error) {
	switch c.Driver {
	case DriverMemory:
		return storage.NewMemory(), nil
	case DriverPostgres:
		s, err := pgstore.Open(c.DSN, pgstore.WithProfile(c.Profile), pgstore.WithTable(c.Table))
		if err != nil {
			return nil, err
		}
		if err := s.EnsureSchema(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	case DriverBadger, "":
		s, err := badgerstore.Open(expandHome(c.Path))
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("config: unknown storage.driver %q", c.Driver)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
