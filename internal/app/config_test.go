package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Storage.Driver != "csv" || cfg.Storage.Path != DefaultEventsFile || !cfg.Storage.Backup {
		t.Errorf("Unexpected storage defaults %+v", cfg.Storage)
	}
	if cfg.Auth.SessionTTL != 12*time.Hour {
		t.Errorf("Expected 12h session TTL, got %s", cfg.Auth.SessionTTL)
	}
	if cfg.Location().String() != "Asia/Kolkata" {
		t.Errorf("Expected Asia/Kolkata, got %s", cfg.Location())
	}
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	path := filepath.Join(dir, "board.yaml")
	content := strings.Join([]string{
		"server:",
		"  port: 9000",
		"storage:",
		"  driver: sqlite",
		"  path: data/board.db",
		"log:",
		"  level: debug",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	// Environment beats the file
	t.Setenv("BOARD_SERVER_PORT", "9090")
	t.Setenv("BOARD_AUTH_SESSION_TTL", "30m")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Expected env port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.Path != "data/board.db" {
		t.Errorf("Unexpected storage %+v", cfg.Storage)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Expected debug level, got %s", cfg.Log.Level)
	}
	if cfg.Auth.SessionTTL != 30*time.Minute {
		t.Errorf("Expected 30m TTL, got %s", cfg.Auth.SessionTTL)
	}
}

func TestLoadConfigDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("BOARD_BOARD_TIMEZONE=UTC\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("BOARD_BOARD_TIMEZONE") })

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if cfg.Board.Timezone != "UTC" {
		t.Errorf("Expected timezone from .env, got %s", cfg.Board.Timezone)
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server:  ServerConfig{Port: 8080},
			Storage: StorageConfig{Driver: "csv", Path: "events.csv"},
			Auth:    AuthConfig{SessionTTL: time.Hour},
			Board:   BoardConfig{Timezone: "Asia/Kolkata"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"Valid", func(*Config) {}, false},
		{"Port out of range", func(c *Config) { c.Server.Port = 70000 }, true},
		{"Unknown driver", func(c *Config) { c.Storage.Driver = "postgres" }, true},
		{"Empty path", func(c *Config) { c.Storage.Path = " " }, true},
		{"Unknown timezone", func(c *Config) { c.Board.Timezone = "Mars/Olympus" }, true},
		{"Zero TTL", func(c *Config) { c.Auth.SessionTTL = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		logger, err := NewLogger(LogConfig{Level: "info", Format: format})
		if err != nil {
			t.Errorf("NewLogger(%s) failed: %v", format, err)
			continue
		}
		_ = logger.Sync()
	}

	if _, err := NewLogger(LogConfig{Level: "loud"}); err == nil {
		t.Error("Expected error for unknown level")
	}
}
