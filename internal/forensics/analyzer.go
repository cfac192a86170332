// Package forensics detects manipulated audiences from a sampled member list.
package forensics

import (
	"fmt"
	"sort"

	"channel-trust-lab/internal/config"
	"channel-trust-lab/internal/domain"
)

// Penalty is one forensic trust multiplier.
type Penalty struct {
	Key        domain.PenaltyKey
	Multiplier float64
	Rationale  string
	Metrics    map[string]float64
}

// Result is the forensic analysis of one member sample.
type Result struct {
	SampleSize   int
	Insufficient bool

	NeighborRatio *float64
	ForeignRatio  *float64
	PremiumRatio  *float64
	FlaggedCount  int

	// Fatality forces trust to 0.0 and bypasses every other trust detector.
	Fatality bool

	// Multiplier is the product of Penalties (0.0 on Fatality).
	Multiplier float64
	Penalties  []Penalty

	// Supporting signals consumed by the conviction system.
	ZeroPremium bool
	Flagged     bool
}

// Analyzer runs user forensics with a fixed parameter set.
type Analyzer struct {
	params config.ForensicsParams
}

// NewAnalyzer creates a new forensics analyzer.
func NewAnalyzer(params config.ForensicsParams) *Analyzer {
	return &Analyzer{params: params}
}

// Analyze inspects the sample. A nil or undersized sample yields an
// Insufficient result with no penalty.
func (a *Analyzer) Analyze(sample *domain.MemberSample, expectedDC int) *Result {
	res := &Result{
		SampleSize: sample.Size(),
		Multiplier: 1.0,
	}
	if res.SampleSize < a.params.MinSample {
		res.Insufficient = true
		return res
	}
	members := sample.Members

	// Hidden flags
	for _, m := range members {
		if m.Scam || m.Fake {
			res.FlaggedCount++
		}
	}
	res.Flagged = res.FlaggedCount > 0

	// ID clustering
	ratio := NeighborRatio(members, a.params.NeighborDelta)
	res.NeighborRatio = &ratio
	switch {
	case ratio > a.params.ClusterFatal:
		res.Fatality = true
		res.Penalties = append(res.Penalties, Penalty{
			Key:        domain.PenaltyIDCluster,
			Multiplier: 0.0,
			Rationale:  fmt.Sprintf("FATALITY: %.0f%% of sampled IDs are sequential neighbours (> %.0f%%)", ratio*100, a.params.ClusterFatal*100),
			Metrics:    map[string]float64{"neighbor_ratio": ratio},
		})
	case ratio > a.params.ClusterSuspicious:
		res.Penalties = append(res.Penalties, Penalty{
			Key:        domain.PenaltyIDCluster,
			Multiplier: a.params.ClusterMultiplier,
			Rationale:  fmt.Sprintf("%.0f%% of sampled IDs are sequential neighbours (> %.0f%%)", ratio*100, a.params.ClusterSuspicious*100),
			Metrics:    map[string]float64{"neighbor_ratio": ratio},
		})
	}

	// Geo/DC
	if expectedDC > 0 {
		known, foreign := 0, 0
		for _, m := range members {
			if m.DCID <= 0 {
				continue
			}
			known++
			if m.DCID != expectedDC {
				foreign++
			}
		}
		if known >= a.params.GeoMinKnownMembers && known > 0 {
			fr := float64(foreign) / float64(known)
			res.ForeignRatio = &fr
			if fr > a.params.GeoForeignMax {
				res.Penalties = append(res.Penalties, Penalty{
					Key:        domain.PenaltyGeoDC,
					Multiplier: a.params.GeoMultiplier,
					Rationale:  fmt.Sprintf("%.0f%% of sampled members sit on a foreign datacenter (> %.0f%%)", fr*100, a.params.GeoForeignMax*100),
					Metrics:    map[string]float64{"foreign_ratio": fr, "expected_dc": float64(expectedDC)},
				})
			}
		}
	}

	// Premium density
	premium := 0
	for _, m := range members {
		if m.Premium {
			premium++
		}
	}
	pr := float64(premium) / float64(len(members))
	res.PremiumRatio = &pr
	res.ZeroPremium = len(members) >= a.params.PremiumMinSample && premium == 0

	if res.Fatality {
		res.Multiplier = 0.0
		return res
	}
	for _, p := range res.Penalties {
		res.Multiplier *= p.Multiplier
	}
	return res
}

// Summary projects the result onto the persisted summary.
func (r *Result) Summary() domain.ForensicsSummary {
	return domain.ForensicsSummary{
		SampleSize:    r.SampleSize,
		Insufficient:  r.Insufficient,
		NeighborRatio: r.NeighborRatio,
		ForeignRatio:  r.ForeignRatio,
		PremiumRatio:  r.PremiumRatio,
		FlaggedCount:  r.FlaggedCount,
		ZeroPremium:   r.ZeroPremium,
		Fatality:      r.Fatality,
	}
}

// NeighborRatio returns the fraction of distinct sampled IDs that have another
// sampled ID within delta. Mass-registered accounts receive consecutive IDs.
func NeighborRatio(members []domain.Member, delta int64) float64 {
	seen := make(map[int64]struct{}, len(members))
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		if _, ok := seen[m.UserID]; ok {
			continue
		}
		seen[m.UserID] = struct{}{}
		ids = append(ids, m.UserID)
	}
	if len(ids) < 2 {
		return 0
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	clustered := 0
	for i, id := range ids {
		if (i > 0 && id-ids[i-1] <= delta) || (i+1 < len(ids) && ids[i+1]-id <= delta) {
			clustered++
		}
	}
	return float64(clustered) / float64(len(ids))
}
