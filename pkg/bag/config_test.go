package bag

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestConfig_RejectsWarnBelowMin(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinFreeBytes = 10 << 30
	cfg.WarnFreeBytes = 1 << 30

	if err := cfg.Validate(); err == nil {
		t.Fatal("warn threshold below min threshold must be rejected")
	}
}

func TestConfig_RejectsZeroIntervals(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DiskCheckInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero disk_check_interval must be rejected")
	}

	cfg = DefaultConfig()
	cfg.WarnInterval = -time.Second
	if err := cfg.Validate(); err == nil {
		t.Error("negative warn_interval must be rejected")
	}
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bag.yaml")
	content := []byte("disk_check_interval: 1m\nmin_free_bytes: 2147483648\nwarn_free_bytes: 10737418240\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.DiskCheckInterval != time.Minute {
		t.Errorf("DiskCheckInterval = %v, want 1m", cfg.DiskCheckInterval)
	}
	if cfg.MinFreeBytes != 2<<30 {
		t.Errorf("MinFreeBytes = %d, want %d", cfg.MinFreeBytes, 2<<30)
	}
	// Untouched field keeps its default
	if cfg.WarnInterval != 5*time.Second {
		t.Errorf("WarnInterval = %v, want default 5s", cfg.WarnInterval)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("missing config file must error")
	}
}

func TestLoadConfig_InvalidValuesRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	content := []byte("min_free_bytes: 10737418240\nwarn_free_bytes: 1073741824\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("config with warn below min must be rejected")
	}
}
