package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"dailymission/internal/client"
)

// Config is the missionctl configuration file
type Config struct {
	ServerURL        string    `toml:"server_url"`
	StateDir         string    `toml:"state_dir"`
	BadgeSweepOnLoad bool      `toml:"badge_sweep_on_load"`
	LoadingDelay     string    `toml:"loading_delay"`
	RequestTimeout   string    `toml:"request_timeout"`
	Log              LogConfig `toml:"log"`

	loadingDelay   time.Duration
	requestTimeout time.Duration
}

type LogConfig struct {
	Level slog.Level `toml:"level"`
}

func defaultConfig() *Config {
	return &Config{
		ServerURL:      "http://localhost:8080",
		StateDir:       defaultStateDir(),
		LoadingDelay:   client.DefaultLoadingDelay.String(),
		RequestTimeout: "15s",
		Log:            LogConfig{Level: slog.LevelWarn},
	}
}

func defaultStateDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".dailymission"
	}
	return filepath.Join(dir, "dailymission")
}

// DefaultConfigPath is used when --config is not given
func DefaultConfigPath() string {
	return filepath.Join(defaultStateDir(), "missionctl.toml")
}

// LoadConfig reads path over the defaults. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	file, err := os.Open(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to open config: %w", err)
	default:
		defer file.Close()
		if err := toml.NewDecoder(file).Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if cfg.ServerURL == "" {
		return nil, errors.New("server_url must not be empty")
	}
	if cfg.StateDir == "" {
		cfg.StateDir = defaultStateDir()
	}
	if cfg.loadingDelay, err = time.ParseDuration(cfg.LoadingDelay); err != nil {
		return nil, fmt.Errorf("invalid loading_delay %q: %w", cfg.LoadingDelay, err)
	}
	if cfg.requestTimeout, err = time.ParseDuration(cfg.RequestTimeout); err != nil {
		return nil, fmt.Errorf("invalid request_timeout %q: %w", cfg.RequestTimeout, err)
	}
	if cfg.requestTimeout <= 0 {
		return nil, fmt.Errorf("request_timeout must be positive, got %s", cfg.RequestTimeout)
	}
	return cfg, nil
}

func (c *Config) snapshotPath() string {
	return filepath.Join(c.StateDir, "state.json")
}

func (c *Config) credentialsPath() string {
	return filepath.Join(c.StateDir, "credentials.json")
}
