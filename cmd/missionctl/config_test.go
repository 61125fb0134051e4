package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dailymission/internal/client"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.ServerURL != "http://localhost:8080" {
		t.Errorf("ServerURL = %q", cfg.ServerURL)
	}
	if cfg.loadingDelay != client.DefaultLoadingDelay {
		t.Errorf("loadingDelay = %v", cfg.loadingDelay)
	}
	if cfg.requestTimeout != 15*time.Second {
		t.Errorf("requestTimeout = %v", cfg.requestTimeout)
	}
	if cfg.Log.Level != slog.LevelWarn {
		t.Errorf("Log.Level = %v", cfg.Log.Level)
	}
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name: "all keys",
			content: `server_url = "https://missions.example.com"
state_dir = "/tmp/missions"
badge_sweep_on_load = true
loading_delay = "0s"
request_timeout = "3s"

[log]
level = "debug"
`,
			check: func(t *testing.T, cfg *Config) {
				if cfg.ServerURL != "https://missions.example.com" || cfg.StateDir != "/tmp/missions" {
					t.Errorf("cfg = %+v", cfg)
				}
				if !cfg.BadgeSweepOnLoad {
					t.Error("BadgeSweepOnLoad should be true")
				}
				if cfg.loadingDelay != 0 || cfg.requestTimeout != 3*time.Second {
					t.Errorf("durations = %v, %v", cfg.loadingDelay, cfg.requestTimeout)
				}
				if cfg.Log.Level != slog.LevelDebug {
					t.Errorf("Log.Level = %v", cfg.Log.Level)
				}
			},
		},
		{
			name:    "partial file keeps defaults",
			content: `server_url = "http://other:9000"` + "\n",
			check: func(t *testing.T, cfg *Config) {
				if cfg.ServerURL != "http://other:9000" {
					t.Errorf("ServerURL = %q", cfg.ServerURL)
				}
				if cfg.requestTimeout != 15*time.Second {
					t.Errorf("requestTimeout = %v", cfg.requestTimeout)
				}
			},
		},
		{name: "bad duration", content: `loading_delay = "soon"` + "\n", wantErr: true},
		{name: "zero timeout", content: `request_timeout = "0s"` + "\n", wantErr: true},
		{name: "empty server url", content: `server_url = ""` + "\n", wantErr: true},
		{name: "malformed toml", content: `server_url = `, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "missionctl.toml", tt.content)
			cfg, err := LoadConfig(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "credentials.json")

	creds, err := loadCredentials(path)
	if err != nil || creds.Token != "" {
		t.Fatalf("loadCredentials() on missing file = %+v, %v", creds, err)
	}

	if err := saveCredentials(path, credentials{Token: "abc"}); err != nil {
		t.Fatalf("saveCredentials() error = %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("credentials mode = %v, want 0600", perm)
	}

	creds, err = loadCredentials(path)
	if err != nil || creds.Token != "abc" {
		t.Fatalf("loadCredentials() = %+v, %v", creds, err)
	}

	if err := removeCredentials(path); err != nil {
		t.Fatalf("removeCredentials() error = %v", err)
	}
	if err := removeCredentials(path); err != nil {
		t.Fatalf("removeCredentials() twice error = %v", err)
	}
}

func TestRedirectError(t *testing.T) {
	tests := []struct {
		target string
		want   error
	}{
		{client.RouteRoot, errNotSignedIn},
		{client.RouteSetupProfile, errNoProfile},
		{client.RouteMission, errMissionActive},
		{client.RouteHome, errNoMission},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			if got := redirectError(tt.target); got != tt.want {
				t.Errorf("redirectError(%q) = %v, want %v", tt.target, got, tt.want)
			}
		})
	}
}

func TestTerminalRouter(t *testing.T) {
	r := &terminalRouter{logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))}

	if r.Location() != "" {
		t.Fatalf("Location() = %q before navigation", r.Location())
	}
	r.Push("/home")
	r.Push("/mission")
	r.Replace("/mission-success")
	if r.Location() != "/mission-success" {
		t.Errorf("Location() = %q", r.Location())
	}
	r.Back()
	if r.Location() != "/home" {
		t.Errorf("Location() after Back = %q", r.Location())
	}
}
