package scoring

import (
	"math"

	"channel-trust-lab/internal/config"
)

// Converters map metric values to bounded points.
// Every method returns a value in [0, max]; NaN inputs yield 0.
type Converters struct {
	p config.MetricParams
}

// NewConverters creates converters for the given metric parameters.
func NewConverters(p config.MetricParams) Converters {
	return Converters{p: p}
}

// ViewsCV rewards an organic mix of ordinary and viral posts.
// Near-uniform views score nothing; extreme chaos keeps a floor.
func (c Converters) ViewsCV(cv, max float64) float64 {
	if math.IsNaN(cv) {
		return 0
	}
	p := c.p
	var pts float64
	switch {
	case cv <= p.ViewsCVFlat:
		pts = 0
	case cv < p.ViewsCVIdealLow:
		pts = max * (cv - p.ViewsCVFlat) / (p.ViewsCVIdealLow - p.ViewsCVFlat)
	case cv <= p.ViewsCVIdealHigh:
		pts = max
	case cv < p.ViewsCVChaos:
		floor := max * p.ViewsCVChaosFloor
		pts = max - (max-floor)*(cv-p.ViewsCVIdealHigh)/(p.ViewsCVChaos-p.ViewsCVIdealHigh)
	default:
		pts = max * p.ViewsCVChaosFloor
	}
	return clampPoints(pts, max)
}

// Reach scores a plausible views/members band maximally and falls off
// non-linearly above it.
func (c Converters) Reach(r, max float64) float64 {
	if math.IsNaN(r) {
		return 0
	}
	p := c.p
	var pts float64
	switch {
	case r <= 0:
		pts = 0
	case r < p.ReachOptimalLow:
		pts = max * r / p.ReachOptimalLow
	case r <= p.ReachOptimalHigh:
		pts = max
	default:
		x := (r - p.ReachOptimalHigh) / p.ReachSoftness
		pts = max / (1 + x*x)
	}
	return clampPoints(pts, max)
}

// Regularity is a log-scale bell over posts per day.
func (c Converters) Regularity(ppd, max float64) float64 {
	if math.IsNaN(ppd) {
		return 0
	}
	p := c.p
	var pts float64
	switch {
	case ppd <= p.PostsPerDayDead:
		pts = 0
	case ppd < p.PostsPerDayIdealLo:
		pts = max * math.Log(ppd/p.PostsPerDayDead) / math.Log(p.PostsPerDayIdealLo/p.PostsPerDayDead)
	case ppd <= p.PostsPerDayIdealHi:
		pts = max
	default:
		pts = max * (1 - math.Log(ppd/p.PostsPerDayIdealHi)/math.Log(p.PostsPerDaySpam/p.PostsPerDayIdealHi))
	}
	return clampPoints(pts, max)
}

// Decay scores the newest/oldest bucket ratio. Natural decay scores max,
// a flat wall and a cliff score low, growth above the flat band scores high.
func (c Converters) Decay(ratio, max float64) float64 {
	if math.IsNaN(ratio) {
		return 0
	}
	p := c.p
	low := 0.2 * max
	var pts float64
	switch {
	case ratio < p.DecayCliff:
		pts = low
	case ratio < p.DecayNaturalLow:
		pts = low + (max-low)*(ratio-p.DecayCliff)/(p.DecayNaturalLow-p.DecayCliff)
	case ratio <= p.DecayNaturalHigh:
		pts = max
	case ratio < p.DecayFlatLow:
		pts = max - (max-low)*(ratio-p.DecayNaturalHigh)/(p.DecayFlatLow-p.DecayNaturalHigh)
	case ratio <= p.DecayFlatHigh:
		pts = low
	default:
		pts = 0.8 * max
	}
	return clampPoints(pts, max)
}

// Rate is linear up to target and saturates.
func (c Converters) Rate(rate, target, max float64) float64 {
	if math.IsNaN(rate) {
		return 0
	}
	if target <= 0 {
		return 0
	}
	return clampPoints(max*math.Min(rate/target, 1), max)
}

// Stability rewards low variation of engagement across posts.
func (c Converters) Stability(cv, max float64) float64 {
	if math.IsNaN(cv) {
		return 0
	}
	p := c.p
	var pts float64
	switch {
	case cv <= p.StabilityCVGood:
		pts = max
	case cv >= p.StabilityCVBad:
		pts = 0
	default:
		pts = max * (p.StabilityCVBad - cv) / (p.StabilityCVBad - p.StabilityCVGood)
	}
	return clampPoints(pts, max)
}

// Trend: growing scores max, stable a fraction, dying nothing.
func (c Converters) Trend(t, max float64) float64 {
	if math.IsNaN(t) {
		return 0
	}
	p := c.p
	stable := max * p.TrendStableFraction
	var pts float64
	switch {
	case t >= p.TrendGrowing:
		pts = max
	case t >= p.TrendStable:
		pts = stable
	case t > p.TrendDying:
		pts = stable * (t - p.TrendDying) / (p.TrendStable - p.TrendDying)
	default:
		pts = 0
	}
	return clampPoints(pts, max)
}

// Age is linear between AgeMinDays and AgeFullDays.
func (c Converters) Age(days, max float64) float64 {
	if math.IsNaN(days) {
		return 0
	}
	p := c.p
	var pts float64
	switch {
	case days <= p.AgeMinDays:
		pts = 0
	case days >= p.AgeFullDays:
		pts = max
	default:
		pts = max * (days - p.AgeMinDays) / (p.AgeFullDays - p.AgeMinDays)
	}
	return clampPoints(pts, max)
}

// Premium is linear up to PremiumFullRatio.
func (c Converters) Premium(ratio, max float64) float64 {
	return c.Rate(ratio, c.p.PremiumFullRatio, max)
}

// SourceDiversity penalises dependence on a single forward source.
func (c Converters) SourceDiversity(topShare, max float64) float64 {
	if math.IsNaN(topShare) {
		return 0
	}
	return clampPoints(max*(1-topShare), max)
}

// Neutral returns the fallback for an undefined metric.
func (c Converters) Neutral(max float64) float64 {
	return clampPoints(max*c.p.NeutralFraction, max)
}

func clampPoints(v, max float64) float64 {
	if math.IsNaN(v) || max <= 0 {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
