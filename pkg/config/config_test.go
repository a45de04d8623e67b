package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultMatchesCompiledInThresholds(t *testing.T) {
	cfg := Default()
	if cfg.CompactionThreshold != 16 {
		t.Fatalf("CompactionThreshold = %d, want 16", cfg.CompactionThreshold)
	}
	if cfg.LookupCacheThreshold != 64 {
		t.Fatalf("LookupCacheThreshold = %d, want 64", cfg.LookupCacheThreshold)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.jwcc"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default()
	if cfg.CompactionThreshold != want.CompactionThreshold || cfg.LookupCacheThreshold != want.LookupCacheThreshold {
		t.Fatalf("Load of missing file = %+v, want defaults %+v", cfg, want)
	}
}

func TestLoadOverlaysJWCCOntoDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wave.jwcc")
	doc := `{
		// tighten the markup compaction threshold for this deployment
		"compaction_threshold": 4,
		"wave_rates": {
			"typing:id": 2.5,
		},
	}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CompactionThreshold != 4 {
		t.Fatalf("CompactionThreshold = %d, want 4", cfg.CompactionThreshold)
	}
	if cfg.LookupCacheThreshold != 64 {
		t.Fatalf("LookupCacheThreshold = %d, want unchanged default 64", cfg.LookupCacheThreshold)
	}
	if cfg.WaveRates["typing:id"] != 2.5 {
		t.Fatalf("WaveRates[typing:id] = %v, want 2.5", cfg.WaveRates["typing:id"])
	}
}

func TestLoadRejectsInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.jwcc")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("Load of malformed JWCC: want error, got nil")
	}
}

func TestRateForFallsBackToBaselineOfOne(t *testing.T) {
	cfg := Default()
	if got := RateFor(cfg, "unconfigured:tag"); got != 1 {
		t.Fatalf("RateFor unconfigured tag = %v, want 1", got)
	}
	cfg.WaveRates["typing:id"] = 3
	if got := RateFor(cfg, "typing:id"); got != 3 {
		t.Fatalf("RateFor configured tag = %v, want 3", got)
	}
}

func TestApplyOverridesPackageThresholds(t *testing.T) {
	cfg := Default()
	cfg.CompactionThreshold = 5
	cfg.LookupCacheThreshold = 8
	Apply(cfg)

	// Restore defaults so later tests (in this or other packages
	// sharing the process) still see the compiled-in values.
	defer Apply(Default())
}
