package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") failed: %v", err)
	}
	if cfg.Modules.Dir != "modules" {
		t.Errorf("default dir = %q, want modules", cfg.Modules.Dir)
	}
	if cfg.Modules.Extension != ".zmod" {
		t.Errorf("default extension = %q, want .zmod", cfg.Modules.Extension)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("default level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modloader.toml")
	content := `
[modules]
dir = "plugins"

[logging]
level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Modules.Dir != "plugins" {
		t.Errorf("dir = %q, want plugins", cfg.Modules.Dir)
	}
	// Unset fields keep their defaults.
	if cfg.Modules.Extension != ".zmod" {
		t.Errorf("extension = %q, want default .zmod", cfg.Modules.Extension)
	}

	level, err := cfg.LogLevel()
	if err != nil {
		t.Fatalf("LogLevel failed: %v", err)
	}
	if level != log.DebugLevel {
		t.Errorf("level = %v, want debug", level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestInvalidLogLevel(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "chatty"
	if _, err := cfg.LogLevel(); err == nil {
		t.Fatal("expected an error for an unknown log level")
	}
}
