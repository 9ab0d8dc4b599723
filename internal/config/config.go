package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"n8n-snap/internal/model"
)

// SettingsFileName is looked up in the input folder, then the working
// directory. Flags always win over the file, the file wins over built-ins.
const SettingsFileName = "n8n-snap.yaml"

// Built-in render defaults.
const (
	DefaultWidth   = 1920
	DefaultHeight  = 1080
	DefaultTimeout = 60
	DefaultWait    = 25
	DefaultPort    = 8234
	SquareSize     = 2560
)

// Settings is the on-disk shape of the optional settings file.
type Settings struct {
	Render  model.RenderConfig `yaml:"render"`
	Port    int                `yaml:"port"`
	Workers int                `yaml:"workers"`
}

// Defaults returns the built-in render configuration.
func Defaults() model.RenderConfig {
	return model.RenderConfig{
		Width:          DefaultWidth,
		Height:         DefaultHeight,
		TimeoutSeconds: DefaultTimeout,
		WaitSeconds:    DefaultWait,
	}
}

// Load reads the settings file at path. A missing file is not an error; the
// returned Settings then carry only built-in defaults.
func Load(path string) (Settings, bool, error) {
	settings := Settings{Render: Defaults(), Port: DefaultPort}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, false, nil
		}
		return settings, false, fmt.Errorf("read settings %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return settings, false, fmt.Errorf("parse settings %s: %w", path, err)
	}
	applyFloors(&settings)
	return settings, true, nil
}

// Discover finds the settings file for a run: input folder first, then the
// working directory.
func Discover(inputDir string) (Settings, string, error) {
	candidates := []string{filepath.Join(inputDir, SettingsFileName)}
	if wd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(wd, SettingsFileName))
	}
	for _, path := range candidates {
		settings, found, err := Load(path)
		if err != nil {
			return settings, path, err
		}
		if found {
			return settings, path, nil
		}
	}
	return Settings{Render: Defaults(), Port: DefaultPort}, "", nil
}

// applyFloors backfills zero or negative values with built-ins so a sparse
// settings file never produces an unusable configuration.
func applyFloors(s *Settings) {
	if s.Render.Width <= 0 {
		s.Render.Width = DefaultWidth
	}
	if s.Render.Height <= 0 {
		s.Render.Height = DefaultHeight
	}
	if s.Render.TimeoutSeconds <= 0 {
		s.Render.TimeoutSeconds = DefaultTimeout
	}
	if s.Render.WaitSeconds <= 0 {
		s.Render.WaitSeconds = DefaultWait
	}
	if s.Render.Retries < 0 {
		s.Render.Retries = 0
	}
	if s.Port <= 0 {
		s.Port = DefaultPort
	}
	if s.Workers < 0 {
		s.Workers = 0
	}
}
