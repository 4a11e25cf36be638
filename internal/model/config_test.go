package model

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.API.BaseURL != "http://localhost:5000" {
		t.Fatalf("unexpected base url %q", cfg.API.BaseURL)
	}
	if cfg.API.TasksPath != "/api/tasks" || cfg.API.GoalsPath != "/api/goals" {
		t.Fatalf("unexpected paths: %#v", cfg.API)
	}
	if cfg.Goals.Mode != GoalsModeRemote {
		t.Fatalf("expected remote goals mode, got %q", cfg.Goals.Mode)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("NAILEDIT_API_BASE_URL", "http://api.test:9000")
	t.Setenv("NAILEDIT_GOALS_MODE", "local")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.API.BaseURL != "http://api.test:9000" {
		t.Fatalf("env override ignored, got %q", cfg.API.BaseURL)
	}
	if cfg.Goals.Mode != GoalsModeLocal {
		t.Fatalf("expected local mode, got %q", cfg.Goals.Mode)
	}
}

func TestLoadConfigRejectsUnknownGoalsMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("goals:\n  mode: cloud\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for unknown goals mode")
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.API.BaseURL = "https://tasks.example.com"
	cfg.Goals.Mode = GoalsModeLocal
	cfg.Display.ToastSec = 7

	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}
	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if got.API.BaseURL != cfg.API.BaseURL || got.Goals.Mode != GoalsModeLocal || got.Display.ToastSec != 7 {
		t.Fatalf("round trip mismatch: %#v", got)
	}
}
