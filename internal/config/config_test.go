package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sitepanel.org/internal/storage"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.BaseURL != "http://localhost:3000" || cfg.API.Timeout != 15*time.Second || cfg.API.Burst != 20 {
		t.Fatalf("api defaults = %+v", cfg.API)
	}
	if cfg.Storage.Driver != DriverBadger || filepath.Base(cfg.Storage.Path) != "state" {
		t.Fatalf("storage defaults = %+v", cfg.Storage)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "console" {
		t.Fatalf("log defaults = %+v", cfg.Log)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PANEL_API_BASE_URL", "https://panel.example.com")
	t.Setenv("PANEL_API_TIMEOUT", "3s")
	t.Setenv("PANEL_STORAGE_DRIVER", "memory")

	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.BaseURL != "https://panel.example.com" || cfg.API.Timeout != 3*time.Second {
		t.Fatalf("api = %+v", cfg.API)
	}
	if cfg.Storage.Driver != DriverMemory {
		t.Fatalf("driver = %q", cfg.Storage.Driver)
	}
}

func TestLoadDotEnvAndConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("PANEL_LOG_LEVEL", "warn")
	envFile := filepath.Join(dir, "panel.env")
	if err := os.WriteFile(envFile, []byte("PANEL_LOG_LEVEL=debug\nPANEL_API_BURST=5\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("PANEL_API_BURST") })
	cfgFile := filepath.Join(dir, "panel.yaml")
	if err := os.WriteFile(cfgFile, []byte("storage:\n  driver: memory\nlog:\n  format: json\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(Options{EnvFile: envFile, ConfigFile: cfgFile})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Log.Level != "warn" {
		t.Fatalf(".env must not override the environment, level = %q", cfg.Log.Level)
	}
	if cfg.API.Burst != 5 {
		t.Fatalf("burst = %d, want value from .env", cfg.API.Burst)
	}
	if cfg.Storage.Driver != DriverMemory || cfg.Log.Format != "json" {
		t.Fatalf("config file values ignored: %+v %+v", cfg.Storage, cfg.Log)
	}
}

func TestValidate(t *testing.T) {
	base := Config{API: API{BaseURL: "http://localhost:3000"}, Storage: Storage{Driver: DriverMemory}}
	if err := base.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	cases := map[string]func(*Config){
		"relative url":    func(c *Config) { c.API.BaseURL = "localhost" },
		"unknown driver":  func(c *Config) { c.Storage.Driver = "redis" },
		"postgres no dsn": func(c *Config) { c.Storage.Driver = DriverPostgres },
		"badger no path":  func(c *Config) { c.Storage.Driver = DriverBadger },
	}
	for name, mutate := range cases {
		c := base
		mutate(&c)
		if err := c.Validate(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	mem, err := OpenStore(ctx, Storage{Driver: DriverMemory})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	defer mem.Close()

	dir := filepath.Join(t.TempDir(), "state")
	s, err := OpenStore(ctx, Storage{Driver: DriverBadger, Path: dir})
	if err != nil {
		t.Fatalf("badger: %v", err)
	}
	defer s.Close()
	if err := s.Set(ctx, storage.KeyAuthToken, "tok"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got, err := s.Get(ctx, storage.KeyAuthToken); err != nil || got != "tok" {
		t.Fatalf("Get = %q, %v", got, err)
	}
	if _, err := OpenStore(ctx, Storage{Driver: "redis"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
