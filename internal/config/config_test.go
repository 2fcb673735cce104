package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadAppliesDefaultsAndSecrets(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("RUNWAYML_API_KEY", "runway-key")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{
		"basic_config": {"server_address": ":9000"},
		"providers": {"openai": {"model": "gpt-4o-mini", "api_key": "file-key"}},
		"databases": {"sqlite3": {"dsn": "data/app.db"}},
		"generation": {"video_provider": "runway", "poll_interval": 2}
	}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BasicConfig.ServerAddress != ":9000" {
		t.Fatalf("server address not read: %q", cfg.BasicConfig.ServerAddress)
	}
	if cfg.BasicConfig.FileBaseDir != DefaultFileBaseDir {
		t.Fatalf("expected default file base dir, got %q", cfg.BasicConfig.FileBaseDir)
	}
	if cfg.Generation.ImageCount != 4 || cfg.Generation.CooldownSeconds != 60 {
		t.Fatalf("generation defaults not applied: %+v", cfg.Generation)
	}
	if cfg.Generation.PollIntervalDuration() != 2*time.Second {
		t.Fatalf("poll interval = %v", cfg.Generation.PollIntervalDuration())
	}
	if cfg.Generation.VideoProvider != "runway" || cfg.Generation.TextProvider != "gemini" {
		t.Fatalf("unexpected providers: %+v", cfg.Generation)
	}
	if got := cfg.APIKey("gemini"); got != "gem-key" {
		t.Fatalf("gemini key from env, got %q", got)
	}
	if got := cfg.APIKey("openai"); got != "file-key" {
		t.Fatalf("config file key should win, got %q", got)
	}
	if got := cfg.APIKey("runway"); got != "runway-key" {
		t.Fatalf("runway key from env, got %q", got)
	}
	if want := filepath.Join(dir, "data/app.db"); cfg.Databases["sqlite3"].DSN != want {
		t.Fatalf("sqlite dsn not resolved: %q", cfg.Databases["sqlite3"].DSN)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BasicConfig.ServerAddress != DefaultServerAddress {
		t.Fatalf("unexpected address %q", cfg.BasicConfig.ServerAddress)
	}
	if _, ok := cfg.Databases["sqlite3"]; !ok {
		t.Fatalf("expected default sqlite database")
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestLoadRejectsUnknownVideoProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"generation": {"video_provider": "runwy"}}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "runwy") {
		t.Fatalf("expected unknown provider error, got %v", err)
	}
}
