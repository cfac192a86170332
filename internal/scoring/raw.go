// Package scoring converts the metric bundle into the per-metric breakdown
// and the raw score.
package scoring

import (
	"math"

	"channel-trust-lab/internal/config"
	"channel-trust-lab/internal/domain"
	"channel-trust-lab/internal/metrics"
)

// Calculator computes the raw score.
type Calculator struct {
	weights   config.Weights
	params    config.MetricParams
	forensics config.ForensicsParams
	conv      Converters
}

// NewCalculator creates a raw score calculator from a validated config.
func NewCalculator(cfg config.Config) *Calculator {
	return &Calculator{
		weights:   cfg.Weights,
		params:    cfg.Metrics,
		forensics: cfg.Forensics,
		conv:      NewConverters(cfg.Metrics),
	}
}

// Breakdown scores every metric. Category maxima equal the configured maxima
// regardless of which engagement features are structurally available.
func (c *Calculator) Breakdown(b *metrics.Bundle) domain.Breakdown {
	return domain.Breakdown{
		Quality:    c.quality(b),
		Engagement: c.engagement(b),
		Reputation: c.reputation(b),
	}
}

// Raw returns the raw score of a breakdown, clamped to [0, 100] and rounded to 0.1.
func Raw(bd domain.Breakdown) float64 {
	return Round1(math.Min(math.Max(bd.Total(), 0), 100))
}

// Skipped returns the breakdown schema with every entry present, zero points
// and unavailable. Used by terminal paths that never reach the raw score stage.
func (c *Calculator) Skipped() domain.Breakdown {
	w := c.weights
	pool := w.Engagement.Pool()
	zero := func(key domain.MetricKey, max float64) domain.MetricEntry {
		return domain.MetricEntry{Key: key, MaxPoints: max}
	}
	return domain.Breakdown{
		Quality: category(domain.CategoryQuality,
			zero(domain.MetricViewsCV, w.Quality.ViewsCV),
			zero(domain.MetricReach, w.Quality.Reach),
			zero(domain.MetricRegularity, w.Quality.Regularity),
			zero(domain.MetricDecay, w.Quality.Decay),
		),
		Engagement: category(domain.CategoryEngagement,
			zero(domain.MetricComments, 0),
			zero(domain.MetricReactions, 0),
			zero(domain.MetricForwards, pool),
			zero(domain.MetricStability, w.Engagement.Stability),
			zero(domain.MetricTrend, w.Engagement.Trend),
		),
		Reputation: category(domain.CategoryReputation,
			zero(domain.MetricVerified, w.Reputation.Verified),
			zero(domain.MetricAge, w.Reputation.Age),
			zero(domain.MetricPremium, w.Reputation.Premium),
			zero(domain.MetricSourceDiversity, w.Reputation.SourceDiversity),
		),
	}
}

func (c *Calculator) quality(b *metrics.Bundle) domain.CategoryBreakdown {
	w := c.weights.Quality
	return category(domain.CategoryQuality,
		c.entry(domain.MetricViewsCV, b.ViewsCV, w.ViewsCV, c.conv.ViewsCV),
		c.entry(domain.MetricReach, b.ReachRatio, w.Reach, c.conv.Reach),
		c.entry(domain.MetricRegularity, b.PostsPerDay, w.Regularity, c.conv.Regularity),
		c.entry(domain.MetricDecay, b.DecayRatio, w.Decay, c.conv.Decay),
	)
}

// engagement applies floating weights: the comments/reactions/forwards pool
// is split across the structurally available features in proportion to
// their configured weights. Forwards are always available.
func (c *Calculator) engagement(b *metrics.Bundle) domain.CategoryBreakdown {
	w := c.weights.Engagement
	pool := w.Pool()

	avail := w.Forwards
	if b.CommentsAvailable {
		avail += w.Comments
	}
	if b.ReactionsAvailable {
		avail += w.Reactions
	}
	share := func(weight float64, on bool) float64 {
		if !on || avail <= 0 {
			return 0
		}
		return pool * weight / avail
	}

	p := c.params
	comments := c.entry(domain.MetricComments, b.CommentRate, share(w.Comments, b.CommentsAvailable), rate(c.conv, p.CommentRateTarget))
	if !b.CommentsAvailable {
		comments = domain.MetricEntry{Key: domain.MetricComments}
	}
	reactions := c.entry(domain.MetricReactions, b.ReactionRate, share(w.Reactions, b.ReactionsAvailable), rate(c.conv, p.ReactionRateTarget))
	if !b.ReactionsAvailable {
		reactions = domain.MetricEntry{Key: domain.MetricReactions}
	}

	return category(domain.CategoryEngagement,
		comments,
		reactions,
		c.entry(domain.MetricForwards, b.ForwardRate, share(w.Forwards, true), rate(c.conv, p.ForwardRateTarget)),
		c.entry(domain.MetricStability, b.ERCV, w.Stability, c.conv.Stability),
		c.entry(domain.MetricTrend, b.ERTrend, w.Trend, c.conv.Trend),
	)
}

func (c *Calculator) reputation(b *metrics.Bundle) domain.CategoryBreakdown {
	w := c.weights.Reputation

	verified := 0.0
	if b.Verified {
		verified = 1
	}
	verifiedEntry := c.entry(domain.MetricVerified, &verified, w.Verified, func(v, max float64) float64 {
		return clampPoints(v*max, max)
	})

	// Premium: a member sample large enough to measure density wins; otherwise
	// the channel-level premium flag grants full points; otherwise neutral.
	var premium domain.MetricEntry
	switch {
	case b.PremiumRatio != nil && b.SampleSize >= c.forensics.PremiumMinSample:
		premium = c.entry(domain.MetricPremium, b.PremiumRatio, w.Premium, c.conv.Premium)
	case b.HasPremiumFlag:
		one := 1.0
		premium = domain.MetricEntry{Key: domain.MetricPremium, Value: &one, Points: w.Premium, MaxPoints: w.Premium, Available: true}
	default:
		premium = c.entry(domain.MetricPremium, nil, w.Premium, c.conv.Premium)
	}

	return category(domain.CategoryReputation,
		verifiedEntry,
		c.entry(domain.MetricAge, b.ChannelAgeDays, w.Age, c.conv.Age),
		premium,
		c.entry(domain.MetricSourceDiversity, b.TopSourceShare, w.SourceDiversity, c.conv.SourceDiversity),
	)
}

// entry converts one metric. A nil or non-finite value gets neutral points.
func (c *Calculator) entry(key domain.MetricKey, v *float64, max float64, fn func(v, max float64) float64) domain.MetricEntry {
	e := domain.MetricEntry{Key: key, MaxPoints: max}
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		e.Points = c.conv.Neutral(max)
		return e
	}
	val := *v
	e.Value = &val
	e.Points = fn(val, max)
	e.Available = true
	return e
}

func rate(conv Converters, target float64) func(v, max float64) float64 {
	return func(v, max float64) float64 {
		return conv.Rate(v, target, max)
	}
}

func category(cat domain.Category, entries ...domain.MetricEntry) domain.CategoryBreakdown {
	cb := domain.CategoryBreakdown{Category: cat, Entries: entries}
	for _, e := range entries {
		cb.Max += e.MaxPoints
		cb.Points += e.Points
	}
	return cb
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
