package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltins_Valid(t *testing.T) {
	for _, v := range Versions() {
		cfg, err := ByVersion(v)
		require.NoError(t, err)
		assert.Equal(t, v, cfg.Version)
		assert.NoError(t, cfg.Validate(), v)
		assert.InDelta(t, 100.0, cfg.Weights.Total(), 1e-9, v)
	}
	assert.Equal(t, []string{VersionV15, VersionV48}, Versions())
	assert.Equal(t, VersionV48, Default().Version)
}

func TestByVersion_Unknown(t *testing.T) {
	_, err := ByVersion("v1.0")
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestByVersion_ReturnsIndependentCopies(t *testing.T) {
	a := Default()
	a.Metrics.ScamKeywords[0] = "mutated"
	a.Trust.HollowBands[0].Threshold = 99

	b := Default()
	assert.NotEqual(t, "mutated", b.Metrics.ScamKeywords[0])
	assert.NotEqual(t, 99.0, b.Trust.HollowBands[0].Threshold)
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"empty version", func(c *Config) { c.Version = "" }},
		{"weights do not sum to 100", func(c *Config) { c.Weights.Quality.Reach = 20 }},
		{"negative weight", func(c *Config) {
			c.Weights.Quality.Reach = -2
			c.Weights.Quality.ViewsCV += 16
		}},
		{"forwards missing from pool", func(c *Config) {
			c.Weights.Engagement.Comments += c.Weights.Engagement.Forwards
			c.Weights.Engagement.Forwards = 0
		}},
		{"multiplier above one", func(c *Config) { c.Trust.BotWallMultiplier = 1.2 }},
		{"unordered views cv", func(c *Config) { c.Metrics.ViewsCVIdealLow = 0.01 }},
		{"unordered decay", func(c *Config) { c.Metrics.DecayFlatLow = 0.9 }},
		{"unordered conviction rules", func(c *Config) { c.Conviction.ScamTwoFactors = 90 }},
		{"hollow band not open ended", func(c *Config) { c.Trust.HollowBands[3].MaxMembers = 1_000_000 }},
		{"hollow bands not increasing", func(c *Config) { c.Trust.HollowBands[1].MaxMembers = 500 }},
		{"verdict thresholds", func(c *Config) { c.Verdict.Good = 80 }},
		{"conviction scale", func(c *Config) { c.Trust.ConvictionScale = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}
}

func TestParse_OverridesBase(t *testing.T) {
	doc := []byte(`
base: v15.2
version: v15.2-tuned
trust:
  bot_wall_multiplier: 0.5
verdict:
  excellent: 80
  good: 60
  medium: 40
  high_risk: 20
`)
	cfg, err := Parse(doc)
	require.NoError(t, err)

	assert.Equal(t, "v15.2-tuned", cfg.Version)
	assert.Equal(t, 0.5, cfg.Trust.BotWallMultiplier)
	assert.Equal(t, 80, cfg.Verdict.Excellent)

	base, _ := ByVersion(VersionV15)
	assert.Equal(t, base.Weights, cfg.Weights)
	assert.Equal(t, base.Trust.HollowBands, cfg.Trust.HollowBands)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing version", "trust:\n  bot_wall_multiplier: 0.5\n"},
		{"unknown base", "base: v0\nversion: x\n"},
		{"unknown field", "version: x\ntrust:\n  bot_wal_multiplier: 0.5\n"},
		{"invalid result", "version: x\nweights:\n  quality:\n    reach: 50\n"},
		{"malformed yaml", "version: [x\n"},
		{"built-in version with changed weights", "version: v48.0\nweights:\n  quality:\n    reach: 13\n    views_cv: 13\n"},
		{"built-in version over another base", "base: v15.2\nversion: v48.0\n"},
		{"built-in version with changed threshold", "version: v15.2\nbase: v15.2\ntrust:\n  bot_wall_multiplier: 0.5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig), err.Error())
		})
	}
}

func TestParse_BuiltinVersionUnchanged(t *testing.T) {
	cfg, err := Parse([]byte("version: v48.0\ntrust:\n  hidden_comments_multiplier: 0.85\n"))
	require.NoError(t, err)

	want, _ := ByVersion(VersionV48)
	assert.Equal(t, want, cfg)
}

func TestResolve(t *testing.T) {
	cfg, err := Resolve("")
	require.NoError(t, err)
	assert.Equal(t, DefaultVersion, cfg.Version)

	cfg, err = Resolve(VersionV15)
	require.NoError(t, err)
	assert.Equal(t, VersionV15, cfg.Version)

	path := filepath.Join(t.TempDir(), "weights.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: custom-1\n"), 0o644))
	cfg, err = Resolve(path)
	require.NoError(t, err)
	assert.Equal(t, "custom-1", cfg.Version)

	_, err = Resolve(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
