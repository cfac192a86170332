package domain

import "fmt"

// Category groups metric keys in the score breakdown.
type Category string

const (
	CategoryQuality    Category = "quality"
	CategoryEngagement Category = "engagement"
	CategoryReputation Category = "reputation"
)

// MetricKey identifies one breakdown entry.
// The numeric value is the persisted identifier; names are looked up from a
// table indexed by key, so two keys can never share a stored identifier.
type MetricKey uint8

const (
	MetricViewsCV MetricKey = iota + 1
	MetricReach
	MetricRegularity
	MetricDecay
	MetricComments
	MetricReactions
	MetricForwards
	MetricStability
	MetricTrend
	MetricVerified
	MetricAge
	MetricPremium
	MetricSourceDiversity

	metricKeyEnd
)

var metricKeyNames = [metricKeyEnd]string{
	MetricViewsCV:         "views_cv",
	MetricReach:           "reach",
	MetricRegularity:      "regularity",
	MetricDecay:           "decay",
	MetricComments:        "comments",
	MetricReactions:       "reactions",
	MetricForwards:        "forwards",
	MetricStability:       "stability",
	MetricTrend:           "trend",
	MetricVerified:        "verified",
	MetricAge:             "age",
	MetricPremium:         "premium",
	MetricSourceDiversity: "source_diversity",
}

var metricKeyCategories = [metricKeyEnd]Category{
	MetricViewsCV:         CategoryQuality,
	MetricReach:           CategoryQuality,
	MetricRegularity:      CategoryQuality,
	MetricDecay:           CategoryQuality,
	MetricComments:        CategoryEngagement,
	MetricReactions:       CategoryEngagement,
	MetricForwards:        CategoryEngagement,
	MetricStability:       CategoryEngagement,
	MetricTrend:           CategoryEngagement,
	MetricVerified:        CategoryReputation,
	MetricAge:             CategoryReputation,
	MetricPremium:         CategoryReputation,
	MetricSourceDiversity: CategoryReputation,
}

// AllMetricKeys returns every metric key in canonical order.
func AllMetricKeys() []MetricKey {
	keys := make([]MetricKey, 0, int(metricKeyEnd)-1)
	for k := MetricViewsCV; k < metricKeyEnd; k++ {
		keys = append(keys, k)
	}
	return keys
}

// Valid reports whether k is a known key.
func (k MetricKey) Valid() bool {
	return k >= MetricViewsCV && k < metricKeyEnd
}

func (k MetricKey) String() string {
	if !k.Valid() {
		return fmt.Sprintf("metric(%d)", uint8(k))
	}
	return metricKeyNames[k]
}

// Category returns the breakdown category the key belongs to.
func (k MetricKey) Category() Category {
	if !k.Valid() {
		return ""
	}
	return metricKeyCategories[k]
}

func (k MetricKey) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("unknown metric key %d", uint8(k))
	}
	return []byte(metricKeyNames[k]), nil
}

func (k *MetricKey) UnmarshalText(b []byte) error {
	parsed, err := ParseMetricKey(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseMetricKey resolves a metric key by name.
func ParseMetricKey(name string) (MetricKey, error) {
	for k := MetricViewsCV; k < metricKeyEnd; k++ {
		if metricKeyNames[k] == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown metric key %q", name)
}

// PenaltyKey identifies one trust penalty. Same storage rules as MetricKey.
type PenaltyKey uint8

const (
	PenaltyInstantScam PenaltyKey = iota + 1
	PenaltyIDCluster
	PenaltyGeoDC
	PenaltyHollowViews
	PenaltyZombieEngagement
	PenaltySatellite
	PenaltyGhostChannel
	PenaltyZombieAudience
	PenaltyMemberDiscrepancy
	PenaltyBotWall
	PenaltyBudgetCliff
	PenaltyAdLoad
	PenaltyHiddenComments
	PenaltyConviction

	penaltyKeyEnd
)

var penaltyKeyNames = [penaltyKeyEnd]string{
	PenaltyInstantScam:       "instant_scam",
	PenaltyIDCluster:         "id_cluster",
	PenaltyGeoDC:             "geo_dc",
	PenaltyHollowViews:       "hollow_views",
	PenaltyZombieEngagement:  "zombie_engagement",
	PenaltySatellite:         "satellite",
	PenaltyGhostChannel:      "ghost_channel",
	PenaltyZombieAudience:    "zombie_audience",
	PenaltyMemberDiscrepancy: "member_discrepancy",
	PenaltyBotWall:           "bot_wall",
	PenaltyBudgetCliff:       "budget_cliff",
	PenaltyAdLoad:            "ad_load",
	PenaltyHiddenComments:    "hidden_comments",
	PenaltyConviction:        "conviction",
}

// AllPenaltyKeys returns every penalty key in canonical order.
func AllPenaltyKeys() []PenaltyKey {
	keys := make([]PenaltyKey, 0, int(penaltyKeyEnd)-1)
	for k := PenaltyInstantScam; k < penaltyKeyEnd; k++ {
		keys = append(keys, k)
	}
	return keys
}

// Valid reports whether k is a known key.
func (k PenaltyKey) Valid() bool {
	return k >= PenaltyInstantScam && k < penaltyKeyEnd
}

func (k PenaltyKey) String() string {
	if !k.Valid() {
		return fmt.Sprintf("penalty(%d)", uint8(k))
	}
	return penaltyKeyNames[k]
}

func (k PenaltyKey) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("unknown penalty key %d", uint8(k))
	}
	return []byte(penaltyKeyNames[k]), nil
}

func (k *PenaltyKey) UnmarshalText(b []byte) error {
	parsed, err := ParsePenaltyKey(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParsePenaltyKey resolves a penalty key by name.
func ParsePenaltyKey(name string) (PenaltyKey, error) {
	for k := PenaltyInstantScam; k < penaltyKeyEnd; k++ {
		if penaltyKeyNames[k] == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown penalty key %q", name)
}
