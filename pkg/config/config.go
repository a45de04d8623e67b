// Package config loads engine-wide tuning knobs from an optional JWCC
// (JSON with comments and trailing commas) file, the way
// calvinalkan-agent-task reads its own tool config: defaults are built
// in, and a file on disk only overrides what it explicitly sets.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailscale/hujson"

	"github.com/wavecollab/wave/pkg/chronmarkup"
	"github.com/wavecollab/wave/pkg/world"
)

// EngineConfig holds the tunable constants spec.md leaves as literal
// numbers: the ChronMarkup compaction threshold (§4.3's "16"), the
// World lookup-cache threshold (§4.5's "64"), and a per-tag default
// wave-merge rate curve a proxy can consult when a caller doesn't
// supply an explicit rate.
type EngineConfig struct {
	CompactionThreshold  int                `json:"compaction_threshold,omitempty"`
	LookupCacheThreshold int                `json:"lookup_cache_threshold,omitempty"`
	WaveRates            map[string]float64 `json:"wave_rates,omitempty"`
}

// Default returns the built-in configuration: the same thresholds
// pkg/chronmarkup and pkg/world compile in, and no wave-rate
// overrides.
func Default() EngineConfig {
	return EngineConfig{
		CompactionThreshold:  16,
		LookupCacheThreshold: 64,
		WaveRates:            map[string]float64{},
	}
}

// Load reads path as JWCC and overlays it onto Default(). A missing
// file is not an error — it simply yields the defaults, the way a
// host with no opinions about these knobs would want.
func Load(path string) (EngineConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return EngineConfig{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return EngineConfig{}, fmt.Errorf("config: %s: invalid JWCC: %w", path, err)
	}

	var overlay EngineConfig
	if err := json.Unmarshal(standardized, &overlay); err != nil {
		return EngineConfig{}, fmt.Errorf("config: %s: invalid JSON: %w", path, err)
	}

	if overlay.CompactionThreshold > 0 {
		cfg.CompactionThreshold = overlay.CompactionThreshold
	}
	if overlay.LookupCacheThreshold > 0 {
		cfg.LookupCacheThreshold = overlay.LookupCacheThreshold
	}
	for tag, rate := range overlay.WaveRates {
		cfg.WaveRates[tag] = rate
	}

	return cfg, nil
}

// Apply pushes cfg's thresholds into pkg/chronmarkup and pkg/world.
// It is meant to run once at startup, before any Markup or World is
// created. Both packages read their threshold on each use (every Mark,
// every Lock), so a value applied later governs only the calls after
// it.
func Apply(cfg EngineConfig) {
	chronmarkup.SetCompactionThreshold(cfg.CompactionThreshold)
	world.SetLookupCacheThreshold(cfg.LookupCacheThreshold)
}

// RateFor returns cfg's configured default rate for tag, or 1 (the
// wave-merge baseline every fresh wave starts from) if tag has no
// override.
func RateFor(cfg EngineConfig, tag string) float64 {
	if r, ok := cfg.WaveRates[tag]; ok {
		return r
	}
	return 1
}
