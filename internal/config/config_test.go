package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	settings, found, err := Load(filepath.Join(t.TempDir(), SettingsFileName))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if found {
		t.Fatalf("expected found=false")
	}
	if settings.Render.Width != DefaultWidth || settings.Render.TimeoutSeconds != DefaultTimeout {
		t.Fatalf("expected built-in defaults, got %+v", settings.Render)
	}
	if settings.Port != DefaultPort {
		t.Fatalf("expected default port %d, got %d", DefaultPort, settings.Port)
	}
}

func TestLoadSparseFileBackfillsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, SettingsFileName)
	content := "render:\n  dark_mode: true\n  wait_seconds: 5\nworkers: 3\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}

	settings, found, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !found {
		t.Fatalf("expected found=true")
	}
	if !settings.Render.DarkMode || settings.Render.WaitSeconds != 5 {
		t.Fatalf("file values not applied: %+v", settings.Render)
	}
	if settings.Render.Width != DefaultWidth || settings.Render.Height != DefaultHeight {
		t.Fatalf("sparse fields not backfilled: %+v", settings.Render)
	}
	if settings.Workers != 3 {
		t.Fatalf("expected workers 3, got %d", settings.Workers)
	}
}

func TestLoadMalformedFileErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, SettingsFileName)
	if err := os.WriteFile(path, []byte("render: [not a mapping"), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	if _, _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestDiscoverPrefersInputFolder(t *testing.T) {
	inputDir := t.TempDir()
	content := "port: 9000\n"
	if err := os.WriteFile(filepath.Join(inputDir, SettingsFileName), []byte(content), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}

	settings, path, err := Discover(inputDir)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if path != filepath.Join(inputDir, SettingsFileName) {
		t.Fatalf("expected input-folder settings, got %q", path)
	}
	if settings.Port != 9000 {
		t.Fatalf("expected port 9000, got %d", settings.Port)
	}
}
