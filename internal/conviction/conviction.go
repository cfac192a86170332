// Package conviction aggregates independent fraud indicators (F1-F13) into a
// conviction score that can force a SCAM verdict regardless of the numeric score.
package conviction

import (
	"fmt"

	"channel-trust-lab/internal/config"
	"channel-trust-lab/internal/domain"
	"channel-trust-lab/internal/forensics"
	"channel-trust-lab/internal/metrics"
)

// Result is the conviction evaluation of one snapshot.
type Result struct {
	// Score is the sum of triggered factor weights.
	Score float64
	// Triggered is the number of triggered factors.
	Triggered int
	Factors   []domain.ConvictionFactor
}

// Override is the outcome of the conviction decision rule.
type Override struct {
	Scam bool
	Rule string
}

// Evaluator evaluates conviction factors.
type Evaluator struct {
	params config.ConvictionParams
}

// NewEvaluator creates a new conviction evaluator.
func NewEvaluator(params config.ConvictionParams) *Evaluator {
	return &Evaluator{params: params}
}

// Evaluate runs all 13 factors. Every factor is always reported, triggered or not.
func (e *Evaluator) Evaluate(b *metrics.Bundle, f *forensics.Result, forensicsParams config.ForensicsParams) *Result {
	p := e.params
	factors := make([]domain.ConvictionFactor, 13)

	// F1: near-zero organic engagement despite high views
	factors[0] = factor("F1", "zero_engagement", p.ZeroEngagement,
		b.ReachRatio != nil && b.InteractionRate != nil &&
			*b.ReachRatio >= p.ZeroEngagementMinReach && *b.InteractionRate < p.ZeroEngagement.Threshold,
		fmt.Sprintf("reach=%s interaction_rate=%s", fmtPtr(b.ReachRatio), fmtPtr(b.InteractionRate)))

	// F2: uniform cadence combined with uniform views
	factors[1] = factor("F2", "uniform_cadence_views", p.UniformCadence,
		b.IntervalCV != nil && b.ViewsCV != nil &&
			*b.IntervalCV < p.UniformCadence.Threshold && *b.ViewsCV < p.UniformCadence.Threshold,
		fmt.Sprintf("interval_cv=%s views_cv=%s", fmtPtr(b.IntervalCV), fmtPtr(b.ViewsCV)))

	// F3: declared audience contradicts sampled online activity
	factors[2] = factor("F3", "online_contradiction", p.OnlineContradiction,
		b.MemberCount >= p.OnlineMinMembers && b.SampleSize >= forensicsParams.MinSample &&
			b.SampleOnlineRatio != nil && *b.SampleOnlineRatio < p.OnlineContradiction.Threshold,
		fmt.Sprintf("members=%d sample_online=%s", b.MemberCount, fmtPtr(b.SampleOnlineRatio)))

	// F4: text red flags
	factors[3] = factor("F4", "scam_text", p.ScamText,
		b.ScamTextRatio != nil && *b.ScamTextRatio >= p.ScamText.Threshold,
		fmt.Sprintf("scam_text_ratio=%s", fmtPtr(b.ScamTextRatio)))

	// F5: private link spam
	factors[4] = factor("F5", "link_spam", p.LinkSpam,
		b.PrivateLinkRatio != nil && *b.PrivateLinkRatio >= p.LinkSpam.Threshold,
		fmt.Sprintf("private_link_ratio=%s", fmtPtr(b.PrivateLinkRatio)))

	// F6: duplicate or templated captions
	factors[5] = factor("F6", "duplicate_captions", p.DuplicateCaptions,
		b.DuplicateTextRatio != nil && *b.DuplicateTextRatio >= p.DuplicateCaptions.Threshold,
		fmt.Sprintf("duplicate_ratio=%s", fmtPtr(b.DuplicateTextRatio)))

	// F7: view inflation
	factors[6] = factor("F7", "view_inflation", p.ViewInflation,
		b.ReachRatio != nil && *b.ReachRatio >= p.ViewInflation.Threshold,
		fmt.Sprintf("reach=%s", fmtPtr(b.ReachRatio)))

	// F8: sequential member IDs
	factors[7] = factor("F8", "id_cluster", p.IDCluster,
		f.NeighborRatio != nil && *f.NeighborRatio > p.IDCluster.Threshold,
		fmt.Sprintf("neighbor_ratio=%s", fmtPtr(f.NeighborRatio)))

	// F9: platform-flagged members
	factors[8] = factor("F9", "flagged_members", p.FlaggedMembers,
		!f.Insufficient && float64(f.FlaggedCount) >= p.FlaggedMembers.Threshold && f.FlaggedCount > 0,
		fmt.Sprintf("flagged=%d", f.FlaggedCount))

	// F10: no premium members on an adequate sample
	factors[9] = factor("F10", "zero_premium", p.ZeroPremium,
		f.ZeroPremium,
		fmt.Sprintf("sample=%d premium_ratio=%s", f.SampleSize, fmtPtr(f.PremiumRatio)))

	// F11: foreign audience
	factors[10] = factor("F11", "foreign_audience", p.ForeignAudience,
		f.ForeignRatio != nil && *f.ForeignRatio > p.ForeignAudience.Threshold,
		fmt.Sprintf("foreign_ratio=%s", fmtPtr(f.ForeignRatio)))

	// F12: advertising flood
	factors[11] = factor("F12", "ad_flood", p.AdFlood,
		b.AdRatio != nil && *b.AdRatio >= p.AdFlood.Threshold,
		fmt.Sprintf("ad_ratio=%s", fmtPtr(b.AdRatio)))

	// F13: young channel with a large declared audience
	factors[12] = factor("F13", "young_inflated", p.YoungInflated,
		b.ChannelAgeDays != nil && *b.ChannelAgeDays < p.YoungInflated.Threshold && b.MemberCount >= p.YoungMinMembers,
		fmt.Sprintf("age_days=%s members=%d", fmtPtr(b.ChannelAgeDays), b.MemberCount))

	res := &Result{Factors: factors}
	for _, fc := range factors {
		if fc.Triggered {
			res.Score += fc.Weight
			res.Triggered++
		}
	}
	return res
}

// Decide applies the override rule table, first match wins.
func (e *Evaluator) Decide(score float64, triggered int) Override {
	p := e.params
	switch {
	case score >= p.ScamAbsolute:
		return Override{Scam: true, Rule: fmt.Sprintf("conviction %.0f >= %.0f", score, p.ScamAbsolute)}
	case score >= p.ScamOneFactor && triggered >= 1:
		return Override{Scam: true, Rule: fmt.Sprintf("conviction %.0f >= %.0f with %d factor(s)", score, p.ScamOneFactor, triggered)}
	case score >= p.ScamTwoFactors && triggered >= 2:
		return Override{Scam: true, Rule: fmt.Sprintf("conviction %.0f >= %.0f with %d factors", score, p.ScamTwoFactors, triggered)}
	default:
		return Override{}
	}
}

// InstantCheck is the cheap pre-check run before forensics and scoring.
// It uses a strict subset of the factor signals at extreme thresholds plus
// platform-assigned channel labels. Returns the reasons that fired.
func (e *Evaluator) InstantCheck(meta *domain.ChannelMeta, b *metrics.Bundle) []string {
	p := e.params
	var reasons []string
	if meta.Scam {
		reasons = append(reasons, "channel is labelled SCAM by the platform")
	}
	if meta.Fake {
		reasons = append(reasons, "channel is labelled FAKE by the platform")
	}
	if b.ReachRatio != nil && *b.ReachRatio >= p.InstantReach {
		reasons = append(reasons, fmt.Sprintf("reach %.1fx exceeds %.1fx", *b.ReachRatio, p.InstantReach))
	}
	if b.ScamTextRatio != nil && *b.ScamTextRatio >= p.InstantScamText {
		reasons = append(reasons, fmt.Sprintf("%.0f%% of posts carry scam phrases", *b.ScamTextRatio*100))
	}
	if b.PostCount >= p.InstantDeadMinPosts && b.ReachRatio != nil && *b.ReachRatio >= p.InstantDeadReach &&
		b.InteractionRate != nil && *b.InteractionRate == 0 {
		reasons = append(reasons, fmt.Sprintf("zero interactions across %d posts at reach %.1fx", b.PostCount, *b.ReachRatio))
	}
	return reasons
}

func factor(id, name string, f config.Factor, triggered bool, detail string) domain.ConvictionFactor {
	return domain.ConvictionFactor{
		ID:        id,
		Name:      name,
		Weight:    f.Weight,
		Triggered: triggered,
		Detail:    detail,
	}
}

func fmtPtr(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", *v)
}
