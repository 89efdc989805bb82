// Package project loads and saves the application config and YAML job files.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/piwi3910/slabnest/internal/model"
)

// DefaultConfigDir returns the default directory for application configuration.
// On all platforms this is ~/.slabnest/
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".slabnest")
}

// DefaultConfigPath returns the default path for the application config file.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

// HistoryPath returns the configured history database, or history.db in the
// config directory when none is set.
func HistoryPath(config model.AppConfig) string {
	if config.HistoryPath != "" {
		return config.HistoryPath
	}
	return filepath.Join(DefaultConfigDir(), "history.db")
}

// SaveAppConfig persists an AppConfig to the given path as JSON.
// It creates any missing parent directories automatically.
func SaveAppConfig(path string, config model.AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadAppConfig reads an AppConfig from the given path. Fields missing from
// the file keep their defaults. If the file does not exist, it returns
// DefaultAppConfig with no error.
func LoadAppConfig(path string) (model.AppConfig, error) {
	config := model.DefaultAppConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return model.AppConfig{}, err
	}
	if err := json.Unmarshal(data, &config); err != nil {
		return model.AppConfig{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	if config.RecentJobs == nil {
		config.RecentJobs = []string{}
	}
	if config.FreeRotationStep <= 0 || config.FreeRotationStep > 360 {
		return model.AppConfig{}, fmt.Errorf("free_rotation_step must be in (0, 360], got %d", config.FreeRotationStep)
	}
	return config, nil
}
