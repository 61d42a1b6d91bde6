package model

import (
	"path/filepath"
	"testing"
)

func TestLoadConfig_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope", "config.yaml"))
	if err != nil {
		t.Fatalf("loading missing config: %v", err)
	}
	if cfg.Engine.DependencyDueOffsetDays != 7 {
		t.Errorf("dependency due offset = %d, want 7", cfg.Engine.DependencyDueOffsetDays)
	}
	if cfg.Engine.NotifyMaxRetries != 2 {
		t.Errorf("notify max retries = %d, want 2", cfg.Engine.NotifyMaxRetries)
	}
	if cfg.Engine.WatchBufferSize != 16 {
		t.Errorf("watch buffer size = %d, want 16", cfg.Engine.WatchBufferSize)
	}
	if cfg.Storage.DBPath == "" {
		t.Error("db path is empty")
	}
}

func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	want := &AppConfig{
		Engine: EngineConfig{
			DependencyDueOffsetDays: 3,
			NotifyMaxRetries:        5,
			NotifyRetryBackoffMS:    100,
			WatchBufferSize:         32,
		},
		Storage: StorageConfig{DBPath: "/tmp/wf.db"},
	}
	if err := SaveConfig(path, want); err != nil {
		t.Fatalf("saving config: %v", err)
	}

	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	if *got != *want {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}
