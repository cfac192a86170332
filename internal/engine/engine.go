// Package engine assembles the scoring stages into a state machine:
//
//	RECEIVED_SNAPSHOT -> INSTANT_SCAM_CHECK -> FORENSICS -> RAW_SCORE ->
//	TRUST_FACTOR -> CONVICTION_OVERRIDE_CHECK -> FINAL_SCORE -> VERDICT
//
// with terminal states INSTANT_SCAM, FATALITY, CONVICTION_OVERRIDE and VERDICT.
// An Engine holds only its immutable configuration and is safe for
// concurrent use.
package engine

import (
	"fmt"
	"math"
	"strings"

	"channel-trust-lab/internal/config"
	"channel-trust-lab/internal/conviction"
	"channel-trust-lab/internal/domain"
	"channel-trust-lab/internal/forensics"
	"channel-trust-lab/internal/idhash"
	"channel-trust-lab/internal/metrics"
	"channel-trust-lab/internal/scoring"
	"channel-trust-lab/internal/trust"
)

// Engine scores snapshots under one configuration version.
type Engine struct {
	cfg        config.Config
	analyzer   *forensics.Analyzer
	conviction *conviction.Evaluator
	raw        *scoring.Calculator
	trust      *trust.Calculator
}

// New creates an engine. The configuration is validated and copied.
func New(cfg config.Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.Clone()
	return &Engine{
		cfg:        cfg,
		analyzer:   forensics.NewAnalyzer(cfg.Forensics),
		conviction: conviction.NewEvaluator(cfg.Conviction),
		raw:        scoring.NewCalculator(cfg),
		trust:      trust.NewCalculator(cfg),
	}, nil
}

// Version returns the configuration version results are tagged with.
func (e *Engine) Version() string {
	return e.cfg.Version
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() config.Config {
	return e.cfg.Clone()
}

// run carries the state of one scoring invocation.
type run struct {
	snap   *domain.Snapshot
	bundle *metrics.Bundle
	res    *domain.ScoreResult
}

func (r *run) enter(s domain.State) {
	r.res.Path = append(r.res.Path, s)
}

// Score runs the state machine over one snapshot.
// Structural defects fail fast; degraded signals never do.
func (e *Engine) Score(s *domain.Snapshot) (*domain.ScoreResult, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	snapshotID := s.SnapshotID
	if snapshotID == "" {
		snapshotID = idhash.ComputeSnapshotID(s.ChannelID, s.ScannedAt)
	}
	r := &run{
		snap: s,
		res: &domain.ScoreResult{
			SnapshotID:    snapshotID,
			ChannelID:     s.ChannelID,
			ScannedAt:     s.ScannedAt,
			ConfigVersion: e.cfg.Version,
			Factors:       []domain.ConvictionFactor{},
			TrustDetails:  domain.TrustDetails{},
		},
	}
	r.enter(domain.StateReceivedSnapshot)
	r.bundle = metrics.Compute(s, e.cfg.Metrics)

	e.assemble(r)

	fp, err := idhash.ComputeFingerprint(r.res)
	if err != nil {
		return nil, fmt.Errorf("score %s: %w", snapshotID, err)
	}
	r.res.Fingerprint = fp
	return r.res, nil
}

func (e *Engine) assemble(r *run) {
	res := r.res

	// INSTANT_SCAM_CHECK
	r.enter(domain.StateInstantScamCheck)
	if reasons := e.conviction.InstantCheck(r.snap.Channel, r.bundle); len(reasons) > 0 {
		res.Breakdown = e.raw.Skipped()
		res.TrustDetails = domain.TrustDetails{{
			Key:        domain.PenaltyInstantScam,
			Multiplier: 0,
			Rationale:  strings.Join(reasons, "; "),
		}}
		res.Forensics = domain.ForensicsSummary{SampleSize: r.snap.Members.Size()}
		res.Verdict = domain.VerdictScam
		res.Terminal = domain.TerminalInstantScam
		return
	}

	// FORENSICS
	r.enter(domain.StateForensics)
	fr := e.analyzer.Analyze(r.snap.Members, r.snap.Channel.ExpectedDC)
	res.Forensics = fr.Summary()

	cv := e.conviction.Evaluate(r.bundle, fr, e.cfg.Forensics)
	res.ConvictionScore = cv.Score
	res.ConvictionFactors = cv.Triggered
	res.Factors = cv.Factors

	// The raw score and trust details are still computed on FATALITY so the
	// operator can see what else was wrong with the channel.
	res.Breakdown = e.raw.Breakdown(r.bundle)
	res.RawScore = scoring.Raw(res.Breakdown)
	tr := e.trust.Compute(r.bundle, fr, cv.Score)
	res.TrustDetails = tr.Details
	if tr.Details == nil {
		res.TrustDetails = domain.TrustDetails{}
	}

	if fr.Fatality {
		res.TrustFactor = 0
		res.FinalScore = 0
		res.Verdict = domain.VerdictScam
		res.Terminal = domain.TerminalFatality
		return
	}

	// RAW_SCORE, TRUST_FACTOR
	r.enter(domain.StateRawScore)
	r.enter(domain.StateTrustFactor)
	res.TrustFactor = tr.Factor
	res.FinalScore = FinalScore(res.RawScore, res.TrustFactor)

	// CONVICTION_OVERRIDE_CHECK
	r.enter(domain.StateConvictionOverrideCheck)
	if ov := e.conviction.Decide(cv.Score, cv.Triggered); ov.Scam {
		res.Verdict = domain.VerdictScam
		res.Terminal = domain.TerminalConvictionOverride
		return
	}

	// FINAL_SCORE, VERDICT
	r.enter(domain.StateFinalScore)
	r.enter(domain.StateVerdict)
	res.Verdict = e.verdict(res.FinalScore)
	res.Terminal = domain.TerminalVerdict
}

// FinalScore returns round(raw * trust) clamped to [0, 100].
func FinalScore(raw, trustFactor float64) int {
	v := math.Round(raw * trustFactor)
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(v)
}

func (e *Engine) verdict(final int) domain.Verdict {
	v := e.cfg.Verdict
	switch {
	case final >= v.Excellent:
		return domain.VerdictExcellent
	case final >= v.Good:
		return domain.VerdictGood
	case final >= v.Medium:
		return domain.VerdictMedium
	case final >= v.HighRisk:
		return domain.VerdictHighRisk
	default:
		return domain.VerdictScam
	}
}
