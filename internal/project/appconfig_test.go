package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/piwi3910/slabnest/internal/model"
)

func TestSaveAndLoadAppConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := model.DefaultAppConfig()
	cfg.DefaultSheetWidth = 2440
	cfg.DefaultParameters.ItemToItem = 3.2
	cfg.DefaultParameters.Criterion = model.GlobalTryEvery
	cfg.LogLevel = "debug"
	cfg.RecentJobs = []string{"/tmp/a.yaml", "/tmp/b.yaml"}

	if err := SaveAppConfig(path, cfg); err != nil {
		t.Fatalf("SaveAppConfig failed: %v", err)
	}

	loaded, err := LoadAppConfig(path)
	if err != nil {
		t.Fatalf("LoadAppConfig failed: %v", err)
	}
	if loaded.DefaultSheetWidth != 2440 {
		t.Errorf("expected DefaultSheetWidth=2440, got %f", loaded.DefaultSheetWidth)
	}
	if loaded.DefaultParameters.ItemToItem != 3.2 {
		t.Errorf("expected ItemToItem=3.2, got %f", loaded.DefaultParameters.ItemToItem)
	}
	if loaded.DefaultParameters.Criterion != model.GlobalTryEvery {
		t.Errorf("expected criterion try-every, got %s", loaded.DefaultParameters.Criterion)
	}
	if loaded.LogLevel != "debug" {
		t.Errorf("expected LogLevel=debug, got %s", loaded.LogLevel)
	}
	if len(loaded.RecentJobs) != 2 {
		t.Errorf("expected 2 recent jobs, got %d", len(loaded.RecentJobs))
	}
}

func TestLoadAppConfigMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nonexistent", "config.json")

	cfg, err := LoadAppConfig(path)
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	defaults := model.DefaultAppConfig()
	if cfg.DefaultSheetWidth != defaults.DefaultSheetWidth {
		t.Errorf("expected default sheet width %f, got %f", defaults.DefaultSheetWidth, cfg.DefaultSheetWidth)
	}
	if cfg.FreeRotationStep != defaults.FreeRotationStep {
		t.Errorf("expected rotation step %d, got %d", defaults.FreeRotationStep, cfg.FreeRotationStep)
	}
}

func TestLoadAppConfigPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"log_level":"warn","recent_jobs":null}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadAppConfig(path)
	if err != nil {
		t.Fatalf("LoadAppConfig failed: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("expected LogLevel=warn, got %s", cfg.LogLevel)
	}
	if cfg.DefaultParameters.LimitVariants != model.DefaultParameters().LimitVariants {
		t.Errorf("expected default variants, got %d", cfg.DefaultParameters.LimitVariants)
	}
	if cfg.RecentJobs == nil {
		t.Error("RecentJobs should not be nil after loading")
	}
}

func TestLoadAppConfigInvalid(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("not valid json{{{"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadAppConfig(bad); err == nil {
		t.Fatal("expected error for invalid JSON, got nil")
	}

	step := filepath.Join(dir, "step.json")
	if err := os.WriteFile(step, []byte(`{"free_rotation_step":0}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadAppConfig(step); err == nil {
		t.Fatal("expected error for a zero rotation step, got nil")
	}
}

func TestSaveAppConfigCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "dir", "config.json")

	if err := SaveAppConfig(path, model.DefaultAppConfig()); err != nil {
		t.Fatalf("SaveAppConfig should create parent dirs: %v", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatal("config file was not created")
	}
}

func TestHistoryPath(t *testing.T) {
	cfg := model.DefaultAppConfig()
	if got := HistoryPath(cfg); got != filepath.Join(DefaultConfigDir(), "history.db") {
		t.Errorf("unexpected default history path %s", got)
	}
	cfg.HistoryPath = "/var/lib/slabnest.db"
	if got := HistoryPath(cfg); got != "/var/lib/slabnest.db" {
		t.Errorf("expected configured path, got %s", got)
	}
}
