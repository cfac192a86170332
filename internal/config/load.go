package config

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"reflect"

	"gopkg.in/yaml.v3"
)

// document is the on-disk layout: a built-in base plus overrides.
type document struct {
	Base   string `yaml:"base"`
	Config `yaml:",inline"`
}

// Load reads a YAML configuration file.
// The file names a built-in base (default v48.0) and overrides any subset of
// its fields. The file must declare its own version so results scored with
// it never collide with results of the base table. Reusing a built-in version
// name is allowed only when the file reproduces that table exactly.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML configuration document.
func Parse(data []byte) (Config, error) {
	var head struct {
		Base    string `yaml:"base"`
		Version string `yaml:"version"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return Config{}, fmt.Errorf("%w: decode yaml: %v", ErrInvalidConfig, err)
	}
	if head.Base == "" {
		head.Base = DefaultVersion
	}
	if head.Version == "" {
		return Config{}, fmt.Errorf("%w: version is required", ErrInvalidConfig)
	}

	base, err := ByVersion(head.Base)
	if err != nil {
		return Config{}, err
	}

	doc := document{Base: head.Base, Config: base}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return Config{}, fmt.Errorf("%w: decode yaml: %v", ErrInvalidConfig, err)
	}

	cfg := doc.Config.Clone()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	if builtin, err := ByVersion(cfg.Version); err == nil && !reflect.DeepEqual(cfg, builtin) {
		return Config{}, fmt.Errorf("%w: version %q belongs to a built-in table; a modified table needs its own version",
			ErrInvalidConfig, cfg.Version)
	}
	return cfg, nil
}

// Resolve returns a built-in version when name matches one, otherwise loads name as a file.
func Resolve(name string) (Config, error) {
	if name == "" {
		return Default(), nil
	}
	if _, ok := builtins[name]; ok {
		return ByVersion(name)
	}
	return Load(name)
}

// Validate checks internal consistency of the configuration.
func (c Config) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("%w: version is empty", ErrInvalidConfig)
	}

	weights := []struct {
		name  string
		value float64
	}{
		{"quality.views_cv", c.Weights.Quality.ViewsCV},
		{"quality.reach", c.Weights.Quality.Reach},
		{"quality.regularity", c.Weights.Quality.Regularity},
		{"quality.decay", c.Weights.Quality.Decay},
		{"engagement.comments", c.Weights.Engagement.Comments},
		{"engagement.reactions", c.Weights.Engagement.Reactions},
		{"engagement.forwards", c.Weights.Engagement.Forwards},
		{"engagement.stability", c.Weights.Engagement.Stability},
		{"engagement.trend", c.Weights.Engagement.Trend},
		{"reputation.verified", c.Weights.Reputation.Verified},
		{"reputation.age", c.Weights.Reputation.Age},
		{"reputation.premium", c.Weights.Reputation.Premium},
		{"reputation.source_diversity", c.Weights.Reputation.SourceDiversity},
	}
	for _, w := range weights {
		if w.value < 0 || math.IsNaN(w.value) || math.IsInf(w.value, 0) {
			return fmt.Errorf("%w: weight %s must be a non-negative number, got %v", ErrInvalidConfig, w.name, w.value)
		}
	}
	if total := c.Weights.Total(); math.Abs(total-100) > 1e-9 {
		return fmt.Errorf("%w: category maxima must sum to 100, got %.4f", ErrInvalidConfig, total)
	}
	// Forwards are always observable, so the floating pool always has a recipient.
	if c.Weights.Engagement.Pool() > 0 && c.Weights.Engagement.Forwards <= 0 {
		return fmt.Errorf("%w: engagement.forwards must be positive when the floating pool is non-empty", ErrInvalidConfig)
	}

	multipliers := []struct {
		name  string
		value float64
	}{
		{"forensics.cluster_multiplier", c.Forensics.ClusterMultiplier},
		{"forensics.geo_multiplier", c.Forensics.GeoMultiplier},
		{"trust.hollow_multiplier", c.Trust.HollowMultiplier},
		{"trust.zombie_engagement_multiplier", c.Trust.ZombieEngagementMultiplier},
		{"trust.satellite_multiplier", c.Trust.SatelliteMultiplier},
		{"trust.ghost_multiplier", c.Trust.GhostMultiplier},
		{"trust.zombie_audience_multiplier", c.Trust.ZombieAudienceMult},
		{"trust.member_discrepancy_multiplier", c.Trust.DiscrepancyMultiplier},
		{"trust.bot_wall_multiplier", c.Trust.BotWallMultiplier},
		{"trust.budget_cliff_multiplier", c.Trust.BudgetCliffMultiplier},
		{"trust.ad_load_multiplier", c.Trust.AdLoadMultiplier},
		{"trust.hidden_comments_multiplier", c.Trust.HiddenCommentsMultiplier},
		{"trust.conviction_floor", c.Trust.ConvictionFloor},
		{"metrics.neutral_fraction", c.Metrics.NeutralFraction},
		{"metrics.trend_stable_fraction", c.Metrics.TrendStableFraction},
		{"metrics.views_cv_chaos_floor", c.Metrics.ViewsCVChaosFloor},
	}
	for _, m := range multipliers {
		if m.value < 0 || m.value > 1 {
			return fmt.Errorf("%w: %s must be within [0,1], got %v", ErrInvalidConfig, m.name, m.value)
		}
	}

	m := c.Metrics
	if m.MinPosts < 2 {
		return fmt.Errorf("%w: metrics.min_posts must be >= 2", ErrInvalidConfig)
	}
	if m.DecayBuckets < 2 {
		return fmt.Errorf("%w: metrics.decay_buckets must be >= 2", ErrInvalidConfig)
	}
	if !(m.ViewsCVFlat < m.ViewsCVIdealLow && m.ViewsCVIdealLow <= m.ViewsCVIdealHigh && m.ViewsCVIdealHigh < m.ViewsCVChaos) {
		return fmt.Errorf("%w: views_cv thresholds must be ordered flat < ideal_low <= ideal_high < chaos", ErrInvalidConfig)
	}
	if !(m.ReachOptimalLow > 0 && m.ReachOptimalLow <= m.ReachOptimalHigh && m.ReachSoftness > 0) {
		return fmt.Errorf("%w: reach band must satisfy 0 < optimal_low <= optimal_high and softness > 0", ErrInvalidConfig)
	}
	if !(m.PostsPerDayDead > 0 && m.PostsPerDayDead < m.PostsPerDayIdealLo && m.PostsPerDayIdealLo <= m.PostsPerDayIdealHi && m.PostsPerDayIdealHi < m.PostsPerDaySpam) {
		return fmt.Errorf("%w: posts_per_day thresholds must be ordered dead < ideal_low <= ideal_high < spam", ErrInvalidConfig)
	}
	if !(m.DecayCliff < m.DecayNaturalLow && m.DecayNaturalLow <= m.DecayNaturalHigh && m.DecayNaturalHigh < m.DecayFlatLow && m.DecayFlatLow <= m.DecayFlatHigh) {
		return fmt.Errorf("%w: decay thresholds must be ordered cliff < natural_low <= natural_high < flat_low <= flat_high", ErrInvalidConfig)
	}
	if m.CommentRateTarget <= 0 || m.ReactionRateTarget <= 0 || m.ForwardRateTarget <= 0 {
		return fmt.Errorf("%w: rate targets must be positive", ErrInvalidConfig)
	}
	if !(m.StabilityCVGood < m.StabilityCVBad) {
		return fmt.Errorf("%w: stability_cv_good must be below stability_cv_bad", ErrInvalidConfig)
	}
	if !(m.TrendDying < m.TrendStable && m.TrendStable < m.TrendGrowing) {
		return fmt.Errorf("%w: trend thresholds must be ordered dying < stable < growing", ErrInvalidConfig)
	}
	if !(m.AgeMinDays < m.AgeFullDays) || m.PremiumFullRatio <= 0 {
		return fmt.Errorf("%w: age and premium parameters are inconsistent", ErrInvalidConfig)
	}

	f := c.Forensics
	if f.MinSample < 1 || f.NeighborDelta < 0 || f.ClusterSuspicious > f.ClusterFatal {
		return fmt.Errorf("%w: forensics thresholds are inconsistent", ErrInvalidConfig)
	}

	cv := c.Conviction
	if !(cv.ScamTwoFactors <= cv.ScamOneFactor && cv.ScamOneFactor <= cv.ScamAbsolute) {
		return fmt.Errorf("%w: conviction override thresholds must be ordered two_factors <= one_factor <= absolute", ErrInvalidConfig)
	}

	t := c.Trust
	if len(t.HollowBands) == 0 {
		return fmt.Errorf("%w: trust.hollow_bands is empty", ErrInvalidConfig)
	}
	for i, b := range t.HollowBands {
		last := i == len(t.HollowBands)-1
		if b.Threshold <= 0 {
			return fmt.Errorf("%w: hollow band %q threshold must be positive", ErrInvalidConfig, b.Name)
		}
		if last && b.MaxMembers != 0 {
			return fmt.Errorf("%w: last hollow band must be open-ended (max_members: 0)", ErrInvalidConfig)
		}
		if !last && (b.MaxMembers <= 0 || (i > 0 && b.MaxMembers <= t.HollowBands[i-1].MaxMembers)) {
			return fmt.Errorf("%w: hollow bands must have increasing max_members", ErrInvalidConfig)
		}
	}
	if t.ConvictionScale <= 0 {
		return fmt.Errorf("%w: trust.conviction_scale must be positive", ErrInvalidConfig)
	}

	v := c.Verdict
	if !(v.Excellent > v.Good && v.Good > v.Medium && v.Medium > v.HighRisk && v.HighRisk > 0) {
		return fmt.Errorf("%w: verdict thresholds must be strictly decreasing and positive", ErrInvalidConfig)
	}

	return nil
}
