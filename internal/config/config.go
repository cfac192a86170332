// Package config holds the versioned weight tables and detector thresholds
// injected into the scoring engine. Re-tuning is a data change: every
// threshold the engine uses lives here, nothing is hardcoded in converters.
package config

import (
	"errors"
)

// ErrInvalidConfig is returned when a configuration fails validation.
var ErrInvalidConfig = errors.New("invalid config")

// Config is an immutable, versioned scoring configuration.
type Config struct {
	Version    string           `yaml:"version"`
	Weights    Weights          `yaml:"weights"`
	Metrics    MetricParams     `yaml:"metrics"`
	Forensics  ForensicsParams  `yaml:"forensics"`
	Conviction ConvictionParams `yaml:"conviction"`
	Trust      TrustParams      `yaml:"trust"`
	Verdict    VerdictParams    `yaml:"verdict"`
}

// Weights are the maximum points per metric.
type Weights struct {
	Quality    QualityWeights    `yaml:"quality"`
	Engagement EngagementWeights `yaml:"engagement"`
	Reputation ReputationWeights `yaml:"reputation"`
}

type QualityWeights struct {
	ViewsCV    float64 `yaml:"views_cv"`
	Reach      float64 `yaml:"reach"`
	Regularity float64 `yaml:"regularity"`
	Decay      float64 `yaml:"decay"`
}

// Max returns the category maximum.
func (w QualityWeights) Max() float64 {
	return w.ViewsCV + w.Reach + w.Regularity + w.Decay
}

// EngagementWeights. Comments, Reactions and Forwards form the floating pool.
type EngagementWeights struct {
	Comments  float64 `yaml:"comments"`
	Reactions float64 `yaml:"reactions"`
	Forwards  float64 `yaml:"forwards"`
	Stability float64 `yaml:"stability"`
	Trend     float64 `yaml:"trend"`
}

// Pool returns the floating pool shared by comments, reactions and forwards.
func (w EngagementWeights) Pool() float64 {
	return w.Comments + w.Reactions + w.Forwards
}

// Max returns the category maximum.
func (w EngagementWeights) Max() float64 {
	return w.Pool() + w.Stability + w.Trend
}

type ReputationWeights struct {
	Verified        float64 `yaml:"verified"`
	Age             float64 `yaml:"age"`
	Premium         float64 `yaml:"premium"`
	SourceDiversity float64 `yaml:"source_diversity"`
}

// Max returns the category maximum.
func (w ReputationWeights) Max() float64 {
	return w.Verified + w.Age + w.Premium + w.SourceDiversity
}

// Total returns the sum of all category maxima.
func (w Weights) Total() float64 {
	return w.Quality.Max() + w.Engagement.Max() + w.Reputation.Max()
}

// MetricParams parameterise the metric bundle and the point converters.
type MetricParams struct {
	// NeutralFraction of max points is awarded when a metric is undefined.
	NeutralFraction float64 `yaml:"neutral_fraction"`

	MinPosts           int     `yaml:"min_posts"`
	DecayBuckets       int     `yaml:"decay_buckets"`
	DecayMinPostAgeHrs float64 `yaml:"decay_min_post_age_hours"`

	// Views CV: 0 below Flat, ramps to max at IdealLow, max until IdealHigh,
	// falls to ChaosFloor*max at Chaos.
	ViewsCVFlat       float64 `yaml:"views_cv_flat"`
	ViewsCVIdealLow   float64 `yaml:"views_cv_ideal_low"`
	ViewsCVIdealHigh  float64 `yaml:"views_cv_ideal_high"`
	ViewsCVChaos      float64 `yaml:"views_cv_chaos"`
	ViewsCVChaosFloor float64 `yaml:"views_cv_chaos_floor"`

	ReachOptimalLow  float64 `yaml:"reach_optimal_low"`
	ReachOptimalHigh float64 `yaml:"reach_optimal_high"`
	ReachSoftness    float64 `yaml:"reach_softness"`

	PostsPerDayDead    float64 `yaml:"posts_per_day_dead"`
	PostsPerDayIdealLo float64 `yaml:"posts_per_day_ideal_low"`
	PostsPerDayIdealHi float64 `yaml:"posts_per_day_ideal_high"`
	PostsPerDaySpam    float64 `yaml:"posts_per_day_spam"`

	DecayNaturalLow  float64 `yaml:"decay_natural_low"`
	DecayNaturalHigh float64 `yaml:"decay_natural_high"`
	DecayFlatLow     float64 `yaml:"decay_flat_low"`
	DecayFlatHigh    float64 `yaml:"decay_flat_high"`
	DecayCliff       float64 `yaml:"decay_cliff"`

	CommentRateTarget  float64 `yaml:"comment_rate_target"`
	ReactionRateTarget float64 `yaml:"reaction_rate_target"`
	ForwardRateTarget  float64 `yaml:"forward_rate_target"`

	StabilityCVGood float64 `yaml:"stability_cv_good"`
	StabilityCVBad  float64 `yaml:"stability_cv_bad"`

	TrendGrowing        float64 `yaml:"trend_growing"`
	TrendStable         float64 `yaml:"trend_stable"`
	TrendDying          float64 `yaml:"trend_dying"`
	TrendStableFraction float64 `yaml:"trend_stable_fraction"`

	AgeMinDays  float64 `yaml:"age_min_days"`
	AgeFullDays float64 `yaml:"age_full_days"`

	PremiumFullRatio float64 `yaml:"premium_full_ratio"`

	ScamKeywords []string `yaml:"scam_keywords"`
}

// ForensicsParams parameterise the user forensics analyzer.
type ForensicsParams struct {
	MinSample          int     `yaml:"min_sample"`
	NeighborDelta      int64   `yaml:"neighbor_delta"`
	ClusterFatal       float64 `yaml:"cluster_fatal"`
	ClusterSuspicious  float64 `yaml:"cluster_suspicious"`
	ClusterMultiplier  float64 `yaml:"cluster_multiplier"`
	GeoForeignMax      float64 `yaml:"geo_foreign_max"`
	GeoMultiplier      float64 `yaml:"geo_multiplier"`
	PremiumMinSample   int     `yaml:"premium_min_sample"`
	GeoMinKnownMembers int     `yaml:"geo_min_known_members"`
}

// Factor is a weighted conviction indicator. Threshold meaning is factor specific.
type Factor struct {
	Weight    float64 `yaml:"weight"`
	Threshold float64 `yaml:"threshold"`
}

// ConvictionParams parameterise the fraud conviction system.
// Factor thresholds are factor specific: ratios for F1, F3-F7, F11, F12, the
// max views/interval CV for F2, the neighbor ratio for F8, the flagged member
// count for F9 and the max channel age in days for F13.
type ConvictionParams struct {
	ZeroEngagement         Factor  `yaml:"f1_zero_engagement"`
	ZeroEngagementMinReach float64 `yaml:"f1_min_reach"`
	UniformCadence         Factor  `yaml:"f2_uniform_cadence"`
	OnlineContradiction    Factor  `yaml:"f3_online_contradiction"`
	OnlineMinMembers       int     `yaml:"f3_min_members"`
	ScamText               Factor  `yaml:"f4_scam_text"`
	LinkSpam               Factor  `yaml:"f5_link_spam"`
	DuplicateCaptions      Factor  `yaml:"f6_duplicate_captions"`
	ViewInflation          Factor  `yaml:"f7_view_inflation"`
	IDCluster              Factor  `yaml:"f8_id_cluster"`
	FlaggedMembers         Factor  `yaml:"f9_flagged_members"`
	ZeroPremium            Factor  `yaml:"f10_zero_premium"`
	ForeignAudience        Factor  `yaml:"f11_foreign_audience"`
	AdFlood                Factor  `yaml:"f12_ad_flood"`
	YoungInflated          Factor  `yaml:"f13_young_inflated"`
	YoungMinMembers        int     `yaml:"f13_min_members"`

	// Override rules, evaluated in order.
	ScamAbsolute   float64 `yaml:"scam_absolute"`
	ScamOneFactor  float64 `yaml:"scam_one_factor"`
	ScamTwoFactors float64 `yaml:"scam_two_factors"`

	// Instant-scam pre-check.
	InstantReach        float64 `yaml:"instant_reach"`
	InstantScamText     float64 `yaml:"instant_scam_text"`
	InstantDeadReach    float64 `yaml:"instant_dead_reach"`
	InstantDeadMinPosts int     `yaml:"instant_dead_min_posts"`
}

// HollowBand is an adaptive views/member ceiling for channels below MaxMembers.
type HollowBand struct {
	Name       string  `yaml:"name"`
	MaxMembers int     `yaml:"max_members"` // 0 = no upper bound
	Threshold  float64 `yaml:"threshold"`
}

// TrustParams parameterise the trust factor detectors.
type TrustParams struct {
	HollowBands      []HollowBand `yaml:"hollow_bands"`
	HollowMultiplier float64      `yaml:"hollow_multiplier"`

	ZombieEngagementReach       float64 `yaml:"zombie_engagement_reach"`
	ZombieEngagementReactionMax float64 `yaml:"zombie_engagement_reaction_max"`
	ZombieEngagementMultiplier  float64 `yaml:"zombie_engagement_multiplier"`

	SatelliteSourceShare float64 `yaml:"satellite_source_share"`
	SatelliteAvgComments float64 `yaml:"satellite_avg_comments"`
	SatelliteMultiplier  float64 `yaml:"satellite_multiplier"`

	GhostMinMembers       int     `yaml:"ghost_min_members"`
	GhostOnlineMax        float64 `yaml:"ghost_online_max"`
	GhostMultiplier       float64 `yaml:"ghost_multiplier"`
	ZombieAudienceMembers int     `yaml:"zombie_audience_min_members"`
	ZombieAudienceOnline  float64 `yaml:"zombie_audience_online_max"`
	ZombieAudienceMult    float64 `yaml:"zombie_audience_multiplier"`

	DiscrepancyMax        float64 `yaml:"member_discrepancy_max"`
	DiscrepancyMultiplier float64 `yaml:"member_discrepancy_multiplier"`

	BotWallMultiplier     float64 `yaml:"bot_wall_multiplier"`
	BudgetCliffMultiplier float64 `yaml:"budget_cliff_multiplier"`

	AdLoadMax        float64 `yaml:"ad_load_max"`
	AdLoadMultiplier float64 `yaml:"ad_load_multiplier"`

	HiddenCommentsMultiplier float64 `yaml:"hidden_comments_multiplier"`

	// Elevated conviction below the override thresholds:
	// multiplier = clamp(1 - conviction/ConvictionScale, ConvictionFloor, 1) once conviction >= ConvictionStart.
	ConvictionStart float64 `yaml:"conviction_start"`
	ConvictionScale float64 `yaml:"conviction_scale"`
	ConvictionFloor float64 `yaml:"conviction_floor"`
}

// VerdictParams are the final score thresholds for the non-overridden path.
type VerdictParams struct {
	Excellent int `yaml:"excellent"`
	Good      int `yaml:"good"`
	Medium    int `yaml:"medium"`
	HighRisk  int `yaml:"high_risk"`
}
