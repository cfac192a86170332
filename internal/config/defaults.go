package config

import (
	"fmt"
	"sort"
)

// Built-in versions.
const (
	VersionV48     = "v48.0"
	VersionV15     = "v15.2"
	DefaultVersion = VersionV48
)

// Shared defaults for everything except the weight table. The two built-in
// versions differ in point allocation only.
var (
	defaultMetrics = MetricParams{
		NeutralFraction:    0.5,
		MinPosts:           3,
		DecayBuckets:       3,
		DecayMinPostAgeHrs: 24,

		ViewsCVFlat:       0.05,
		ViewsCVIdealLow:   0.25,
		ViewsCVIdealHigh:  1.0,
		ViewsCVChaos:      2.0,
		ViewsCVChaosFloor: 0.3,

		ReachOptimalLow:  0.10,
		ReachOptimalHigh: 1.0,
		ReachSoftness:    0.5,

		PostsPerDayDead:    1.0 / 7.0,
		PostsPerDayIdealLo: 1,
		PostsPerDayIdealHi: 5,
		PostsPerDaySpam:    30,

		DecayNaturalLow:  0.30,
		DecayNaturalHigh: 0.95,
		DecayFlatLow:     0.98,
		DecayFlatHigh:    1.02,
		DecayCliff:       0.2,

		CommentRateTarget:  0.005,
		ReactionRateTarget: 0.02,
		ForwardRateTarget:  0.01,

		StabilityCVGood: 0.5,
		StabilityCVBad:  2.0,

		TrendGrowing:        1.1,
		TrendStable:         0.9,
		TrendDying:          0.5,
		TrendStableFraction: 0.8,

		AgeMinDays:  30,
		AgeFullDays: 365,

		PremiumFullRatio: 0.05,

		ScamKeywords: []string{
			"guaranteed profit",
			"double your",
			"x100",
			"send usdt",
			"free airdrop",
			"investment with no risk",
			"private signals",
		},
	}

	defaultForensics = ForensicsParams{
		MinSample:          10,
		NeighborDelta:      3,
		ClusterFatal:       0.30,
		ClusterSuspicious:  0.15,
		ClusterMultiplier:  0.5,
		GeoForeignMax:      0.75,
		GeoMultiplier:      0.2,
		PremiumMinSample:   30,
		GeoMinKnownMembers: 10,
	}

	defaultConviction = ConvictionParams{
		ZeroEngagement:         Factor{Weight: 30, Threshold: 0.0005},
		ZeroEngagementMinReach: 0.30,
		UniformCadence:         Factor{Weight: 25, Threshold: 0.10},
		OnlineContradiction:    Factor{Weight: 20, Threshold: 0.02},
		OnlineMinMembers:       1000,
		ScamText:               Factor{Weight: 20, Threshold: 0.30},
		LinkSpam:               Factor{Weight: 15, Threshold: 0.50},
		DuplicateCaptions:      Factor{Weight: 15, Threshold: 0.50},
		ViewInflation:          Factor{Weight: 25, Threshold: 3.0},
		IDCluster:              Factor{Weight: 20, Threshold: 0.15},
		FlaggedMembers:         Factor{Weight: 10, Threshold: 1},
		ZeroPremium:            Factor{Weight: 10},
		ForeignAudience:        Factor{Weight: 10, Threshold: 0.50},
		AdFlood:                Factor{Weight: 10, Threshold: 0.80},
		YoungInflated:          Factor{Weight: 15, Threshold: 30},
		YoungMinMembers:        10000,

		ScamAbsolute:   80,
		ScamOneFactor:  70,
		ScamTwoFactors: 50,

		InstantReach:        10.0,
		InstantScamText:     0.80,
		InstantDeadReach:    1.0,
		InstantDeadMinPosts: 5,
	}

	defaultTrust = TrustParams{
		HollowBands: []HollowBand{
			{Name: "micro", MaxMembers: 1000, Threshold: 4.0},
			{Name: "small", MaxMembers: 10000, Threshold: 3.0},
			{Name: "medium", MaxMembers: 100000, Threshold: 2.5},
			{Name: "large", MaxMembers: 0, Threshold: 2.0},
		},
		HollowMultiplier: 0.3,

		ZombieEngagementReach:       0.5,
		ZombieEngagementReactionMax: 0.001,
		ZombieEngagementMultiplier:  0.5,

		SatelliteSourceShare: 0.5,
		SatelliteAvgComments: 1,
		SatelliteMultiplier:  0.6,

		GhostMinMembers:       20000,
		GhostOnlineMax:        0.001,
		GhostMultiplier:       0.3,
		ZombieAudienceMembers: 5000,
		ZombieAudienceOnline:  0.003,
		ZombieAudienceMult:    0.6,

		DiscrepancyMax:        0.20,
		DiscrepancyMultiplier: 0.7,

		BotWallMultiplier:     0.6,
		BudgetCliffMultiplier: 0.7,

		AdLoadMax:        0.5,
		AdLoadMultiplier: 0.8,

		HiddenCommentsMultiplier: 0.85,

		ConvictionStart: 30,
		ConvictionScale: 200,
		ConvictionFloor: 0.3,
	}

	defaultVerdict = VerdictParams{
		Excellent: 75,
		Good:      55,
		Medium:    40,
		HighRisk:  25,
	}
)

var builtins = map[string]Weights{
	VersionV48: {
		Quality:    QualityWeights{ViewsCV: 12, Reach: 14, Regularity: 8, Decay: 6},
		Engagement: EngagementWeights{Comments: 12, Reactions: 10, Forwards: 8, Stability: 5, Trend: 5},
		Reputation: ReputationWeights{Verified: 5, Age: 7, Premium: 4, SourceDiversity: 4},
	},
	VersionV15: {
		Quality:    QualityWeights{ViewsCV: 15, Reach: 15, Regularity: 10, Decay: 5},
		Engagement: EngagementWeights{Comments: 10, Reactions: 10, Forwards: 5, Stability: 5, Trend: 5},
		Reputation: ReputationWeights{Verified: 6, Age: 6, Premium: 4, SourceDiversity: 4},
	},
}

// Default returns the canonical configuration.
func Default() Config {
	cfg, _ := ByVersion(DefaultVersion)
	return cfg
}

// ByVersion returns a fresh copy of a built-in configuration.
func ByVersion(version string) (Config, error) {
	weights, ok := builtins[version]
	if !ok {
		return Config{}, fmt.Errorf("%w: unknown built-in version %q", ErrInvalidConfig, version)
	}
	cfg := Config{
		Version:    version,
		Weights:    weights,
		Metrics:    defaultMetrics,
		Forensics:  defaultForensics,
		Conviction: defaultConviction,
		Trust:      defaultTrust,
		Verdict:    defaultVerdict,
	}
	return cfg.Clone(), nil
}

// Versions lists built-in versions in lexical order.
func Versions() []string {
	out := make([]string, 0, len(builtins))
	for v := range builtins {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Clone returns a deep copy so callers never share slices.
func (c Config) Clone() Config {
	out := c
	out.Metrics.ScamKeywords = append([]string(nil), c.Metrics.ScamKeywords...)
	out.Trust.HollowBands = append([]HollowBand(nil), c.Trust.HollowBands...)
	return out
}
