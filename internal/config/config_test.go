package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Arena.MaxModelColumns != 3 {
		t.Errorf("MaxModelColumns = %d, want 3", cfg.Arena.MaxModelColumns)
	}
	if cfg.Arena.MinQuestionWords != 2 {
		t.Errorf("MinQuestionWords = %d, want 2", cfg.Arena.MinQuestionWords)
	}
	if cfg.Auth.AdminUsername != "admin" {
		t.Errorf("AdminUsername = %q, want admin", cfg.Auth.AdminUsername)
	}
	if cfg.Arena.UploadExpiry() != 30*time.Minute {
		t.Errorf("UploadExpiry() = %v, want 30m", cfg.Arena.UploadExpiry())
	}
	if Get() != cfg {
		t.Error("Get() should return the loaded config")
	}
}

func TestLoad_FileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  port: 9090
arena:
  maxModelColumns: 2
redis:
  host: ""
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Arena.MaxModelColumns != 2 {
		t.Errorf("MaxModelColumns = %d, want 2", cfg.Arena.MaxModelColumns)
	}
	if cfg.Arena.MinQuestionWords != 2 {
		t.Errorf("MinQuestionWords = %d, want default 2", cfg.Arena.MinQuestionWords)
	}
	if cfg.Redis.Enabled() {
		t.Error("Redis should be disabled when host is empty")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		arena   ArenaConfig
		wantErr bool
	}{
		{"valid", ArenaConfig{MaxModelColumns: 3, MinQuestionWords: 2}, false},
		{"too few columns", ArenaConfig{MaxModelColumns: 1, MinQuestionWords: 2}, true},
		{"zero words", ArenaConfig{MaxModelColumns: 3, MinQuestionWords: 0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Arena: tt.arena}
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDatabaseConfig_GetDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "arena", SSLMode: "disable"}
	want := "host=db port=5432 user=u password=p dbname=arena sslmode=disable"
	if got := c.GetDSN(); got != want {
		t.Errorf("GetDSN() = %q, want %q", got, want)
	}
}
