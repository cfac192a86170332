// Package trust combines forensic, statistical, audience, decay and content
// detectors into a single multiplier in [0, 1].
package trust

import (
	"fmt"
	"math"
	"sort"

	"channel-trust-lab/internal/config"
	"channel-trust-lab/internal/domain"
	"channel-trust-lab/internal/forensics"
	"channel-trust-lab/internal/metrics"
)

// Result is the trust factor and the penalties that produced it.
type Result struct {
	Factor   float64
	Details  domain.TrustDetails
	Fatality bool
}

// Calculator computes the trust factor.
type Calculator struct {
	params config.TrustParams
	// Bot Wall and Budget Cliff share the decay bands of the decay converter.
	decayBands config.MetricParams
}

// NewCalculator creates a new trust calculator.
func NewCalculator(cfg config.Config) *Calculator {
	return &Calculator{params: cfg.Trust, decayBands: cfg.Metrics}
}

// Compute evaluates every detector. Multipliers are independent and commute;
// only forensic FATALITY short-circuits, forcing 0.0 while the other
// penalties are still reported.
func (c *Calculator) Compute(b *metrics.Bundle, f *forensics.Result, conviction float64) Result {
	var details domain.TrustDetails
	add := func(key domain.PenaltyKey, mult float64, rationale string, m map[string]float64) {
		details = append(details, domain.TrustPenalty{Key: key, Multiplier: mult, Rationale: rationale, Metrics: m})
	}

	for _, p := range f.Penalties {
		add(p.Key, p.Multiplier, p.Rationale, p.Metrics)
	}
	c.statistical(b, add)
	c.audience(b, add)
	c.decay(b, add)
	c.content(b, conviction, add)

	sort.SliceStable(details, func(i, j int) bool { return details[i].Key < details[j].Key })

	res := Result{Details: details, Fatality: f.Fatality}
	if f.Fatality {
		res.Factor = 0
		return res
	}
	factor := 1.0
	for _, d := range details {
		factor *= d.Multiplier
	}
	res.Factor = Round4(math.Min(math.Max(factor, 0), 1))
	return res
}

type addFunc func(key domain.PenaltyKey, mult float64, rationale string, m map[string]float64)

func (c *Calculator) statistical(b *metrics.Bundle, add addFunc) {
	p := c.params

	if b.ReachRatio != nil {
		band := c.hollowBand(b.MemberCount)
		if *b.ReachRatio > band.Threshold {
			add(domain.PenaltyHollowViews, p.HollowMultiplier,
				fmt.Sprintf("reach %.0f%% exceeds the %s-channel ceiling of %.0f%%", *b.ReachRatio*100, band.Name, band.Threshold*100),
				map[string]float64{"reach": *b.ReachRatio, "threshold": band.Threshold})
		}
	}

	if b.ReachRatio != nil && b.ReactionRate != nil &&
		*b.ReachRatio > p.ZombieEngagementReach && *b.ReactionRate < p.ZombieEngagementReactionMax {
		add(domain.PenaltyZombieEngagement, p.ZombieEngagementMultiplier,
			fmt.Sprintf("reach %.0f%% with reaction rate %.3f%%", *b.ReachRatio*100, *b.ReactionRate*100),
			map[string]float64{"reach": *b.ReachRatio, "reaction_rate": *b.ReactionRate})
	}

	// Only channels with an open comment section can show dead comments.
	if b.CommentsAvailable && b.TopSourceShare != nil && b.AvgComments != nil &&
		*b.TopSourceShare > p.SatelliteSourceShare && *b.AvgComments < p.SatelliteAvgComments {
		add(domain.PenaltySatellite, p.SatelliteMultiplier,
			fmt.Sprintf("%.0f%% of posts come from one source with %.2f comments per post", *b.TopSourceShare*100, *b.AvgComments),
			map[string]float64{"top_source_share": *b.TopSourceShare, "avg_comments": *b.AvgComments})
	}
}

func (c *Calculator) audience(b *metrics.Bundle, add addFunc) {
	p := c.params

	if b.OnlineRatio != nil {
		m := map[string]float64{"members": float64(b.MemberCount), "online_ratio": *b.OnlineRatio}
		switch {
		case b.MemberCount > p.GhostMinMembers && *b.OnlineRatio < p.GhostOnlineMax:
			add(domain.PenaltyGhostChannel, p.GhostMultiplier,
				fmt.Sprintf("%d members but %.3f%% online", b.MemberCount, *b.OnlineRatio*100), m)
		case b.MemberCount > p.ZombieAudienceMembers && *b.OnlineRatio < p.ZombieAudienceOnline:
			add(domain.PenaltyZombieAudience, p.ZombieAudienceMult,
				fmt.Sprintf("%d members but %.3f%% online", b.MemberCount, *b.OnlineRatio*100), m)
		}
	}

	if b.MemberDiscrepancy != nil && *b.MemberDiscrepancy > p.DiscrepancyMax {
		add(domain.PenaltyMemberDiscrepancy, p.DiscrepancyMultiplier,
			fmt.Sprintf("declared and observed member counts differ by %.0f%%", *b.MemberDiscrepancy*100),
			map[string]float64{"discrepancy": *b.MemberDiscrepancy})
	}
}

func (c *Calculator) decay(b *metrics.Bundle, add addFunc) {
	p := c.params
	if b.DecayRatio == nil {
		return
	}

	if len(b.DecayRatios) > 0 && c.flatWall(b.DecayRatios) {
		add(domain.PenaltyBotWall, p.BotWallMultiplier,
			fmt.Sprintf("views do not decay with post age (ratio %.3f)", *b.DecayRatio),
			map[string]float64{"decay_ratio": *b.DecayRatio})
	}
	if *b.DecayRatio < c.decayBands.DecayCliff {
		add(domain.PenaltyBudgetCliff, p.BudgetCliffMultiplier,
			fmt.Sprintf("recent views dropped to %.0f%% of older posts", *b.DecayRatio*100),
			map[string]float64{"decay_ratio": *b.DecayRatio})
	}
}

func (c *Calculator) content(b *metrics.Bundle, conviction float64, add addFunc) {
	p := c.params

	if b.AdRatio != nil && *b.AdRatio > p.AdLoadMax {
		add(domain.PenaltyAdLoad, p.AdLoadMultiplier,
			fmt.Sprintf("%.0f%% of posts are advertising", *b.AdRatio*100),
			map[string]float64{"ad_ratio": *b.AdRatio})
	}

	if !b.CommentsAvailable && !b.CommentsUnknown && !b.Verified {
		add(domain.PenaltyHiddenComments, p.HiddenCommentsMultiplier,
			"comments are disabled on an unverified channel", nil)
	}

	if conviction >= p.ConvictionStart {
		mult := math.Min(math.Max(1-conviction/p.ConvictionScale, p.ConvictionFloor), 1)
		if mult < 1 {
			add(domain.PenaltyConviction, mult,
				fmt.Sprintf("conviction score %.0f depresses trust", conviction),
				map[string]float64{"conviction": conviction})
		}
	}
}

func (c *Calculator) hollowBand(members int) config.HollowBand {
	bands := c.params.HollowBands
	for _, band := range bands {
		if band.MaxMembers == 0 || members < band.MaxMembers {
			return band
		}
	}
	return bands[len(bands)-1]
}

// flatWall reports whether every consecutive decay ratio sits in the flat band.
func (c *Calculator) flatWall(ratios []float64) bool {
	for _, r := range ratios {
		if r < c.decayBands.DecayFlatLow || r > c.decayBands.DecayFlatHigh {
			return false
		}
	}
	return true
}

// Round4 rounds to four decimal places.
func Round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
