package config

import (
	"path/filepath"
	"testing"

	"archivekit/pkg/env"
)

func TestLoadCreatesDefaultsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "archivekit.json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ConflictPolicy != "Skip" {
		t.Fatalf("expected default conflict policy Skip, got %q", cfg.ConflictPolicy)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load (second pass): %v", err)
	}
	if reloaded.DefaultLevel != cfg.DefaultLevel {
		t.Fatalf("expected the saved config to round-trip, got %q vs %q", reloaded.DefaultLevel, cfg.DefaultLevel)
	}
}

func TestApplyEnvOverridesOnlyTouchesPresentKeys(t *testing.T) {
	cfg := Defaults()
	cfg.Threads = 2

	ApplyEnvOverrides(cfg, env.ConfigOverrides{}, nil)

	if cfg.Threads != 2 {
		t.Fatalf("expected Threads to be left untouched without an override key, got %d", cfg.Threads)
	}
}
