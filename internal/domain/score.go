package domain

// Verdict is the human-readable assessment, ordered best to worst.
type Verdict string

const (
	VerdictExcellent Verdict = "EXCELLENT"
	VerdictGood      Verdict = "GOOD"
	VerdictMedium    Verdict = "MEDIUM"
	VerdictHighRisk  Verdict = "HIGH_RISK"
	VerdictScam      Verdict = "SCAM"
)

// Rank returns 4 for EXCELLENT down to 0 for SCAM, -1 for unknown values.
func (v Verdict) Rank() int {
	switch v {
	case VerdictExcellent:
		return 4
	case VerdictGood:
		return 3
	case VerdictMedium:
		return 2
	case VerdictHighRisk:
		return 1
	case VerdictScam:
		return 0
	default:
		return -1
	}
}

// State is a step of the scoring state machine.
type State string

const (
	StateReceivedSnapshot        State = "RECEIVED_SNAPSHOT"
	StateInstantScamCheck        State = "INSTANT_SCAM_CHECK"
	StateForensics               State = "FORENSICS"
	StateRawScore                State = "RAW_SCORE"
	StateTrustFactor             State = "TRUST_FACTOR"
	StateConvictionOverrideCheck State = "CONVICTION_OVERRIDE_CHECK"
	StateFinalScore              State = "FINAL_SCORE"
	StateVerdict                 State = "VERDICT"
)

// Terminal names the state in which scoring stopped.
type Terminal string

const (
	TerminalInstantScam        Terminal = "INSTANT_SCAM"
	TerminalFatality           Terminal = "FATALITY"
	TerminalConvictionOverride Terminal = "CONVICTION_OVERRIDE"
	TerminalVerdict            Terminal = "VERDICT"
)

// MetricEntry is one row of the score breakdown.
type MetricEntry struct {
	Key       MetricKey `json:"key"`
	Value     *float64  `json:"value"` // nil when the metric is undefined for this snapshot
	Points    float64   `json:"points"`
	MaxPoints float64   `json:"max_points"`
	Available bool      `json:"available"` // false when points are the neutral fallback or the stage was skipped
}

// CategoryBreakdown holds the entries of one category.
type CategoryBreakdown struct {
	Category Category      `json:"category"`
	Max      float64       `json:"max"`
	Points   float64       `json:"points"`
	Entries  []MetricEntry `json:"entries"`
}

// Breakdown is the full per-metric score breakdown.
type Breakdown struct {
	Quality    CategoryBreakdown `json:"quality"`
	Engagement CategoryBreakdown `json:"engagement"`
	Reputation CategoryBreakdown `json:"reputation"`
}

// Categories returns the three categories in canonical order.
func (b *Breakdown) Categories() []*CategoryBreakdown {
	return []*CategoryBreakdown{&b.Quality, &b.Engagement, &b.Reputation}
}

// Entry returns the breakdown entry for key.
func (b *Breakdown) Entry(key MetricKey) (MetricEntry, bool) {
	for _, c := range b.Categories() {
		for _, e := range c.Entries {
			if e.Key == key {
				return e, true
			}
		}
	}
	return MetricEntry{}, false
}

// Total returns the sum of category points.
func (b *Breakdown) Total() float64 {
	return b.Quality.Points + b.Engagement.Points + b.Reputation.Points
}

// TrustPenalty is one applied trust multiplier with its rationale.
type TrustPenalty struct {
	Key        PenaltyKey         `json:"key"`
	Multiplier float64            `json:"multiplier"`
	Rationale  string             `json:"rationale"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
}

// TrustDetails lists applied penalties in canonical key order, one per key.
type TrustDetails []TrustPenalty

// Lookup returns the penalty for key.
func (d TrustDetails) Lookup(key PenaltyKey) (TrustPenalty, bool) {
	for _, p := range d {
		if p.Key == key {
			return p, true
		}
	}
	return TrustPenalty{}, false
}

// ConvictionFactor is one fraud indicator F1..F13.
type ConvictionFactor struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Weight    float64 `json:"weight"`
	Triggered bool    `json:"triggered"`
	Detail    string  `json:"detail"`
}

// ForensicsSummary is the persisted subset of the forensic analysis.
type ForensicsSummary struct {
	SampleSize    int      `json:"sample_size"`
	Insufficient  bool     `json:"insufficient"`
	NeighborRatio *float64 `json:"neighbor_ratio"`
	ForeignRatio  *float64 `json:"foreign_ratio"`
	PremiumRatio  *float64 `json:"premium_ratio"`
	FlaggedCount  int      `json:"flagged_count"`
	ZeroPremium   bool     `json:"zero_premium"`
	Fatality      bool     `json:"fatality"`
}

// ScoreResult is the engine output for one snapshot.
type ScoreResult struct {
	SnapshotID    string   `json:"snapshot_id"`
	ChannelID     string   `json:"channel_id"`
	ScannedAt     int64    `json:"scanned_at"`
	ConfigVersion string   `json:"config_version"`
	RawScore      float64  `json:"raw_score"`
	TrustFactor   float64  `json:"trust_factor"`
	FinalScore    int      `json:"final_score"`
	Verdict       Verdict  `json:"verdict"`
	Terminal      Terminal `json:"terminal"`
	Path          []State  `json:"path"`

	Breakdown    Breakdown    `json:"breakdown"`
	TrustDetails TrustDetails `json:"trust_details"`

	ConvictionScore   float64            `json:"conviction_score"`
	ConvictionFactors int                `json:"conviction_factors"` // number of triggered factors
	Factors           []ConvictionFactor `json:"factors"`

	Forensics   ForensicsSummary `json:"forensics"`
	Fingerprint string           `json:"fingerprint"`
}

// ScoreRecord is a persisted ScoreResult keyed by (snapshot_id, config_version).
type ScoreRecord struct {
	SnapshotID    string
	ChannelID     string
	ConfigVersion string
	ScannedAt     int64 // Unix ms
	ScoredAt      int64 // Unix ms
	Result        *ScoreResult
}

// ScoreHistoryPoint is one entry of a channel's score time series.
// Corresponds to score_history table in ClickHouse.
type ScoreHistoryPoint struct {
	ChannelID       string
	ScannedAt       int64 // Unix ms
	ConfigVersion   string
	SnapshotID      string
	RawScore        float64
	TrustFactor     float64
	FinalScore      int
	Verdict         Verdict
	ConvictionScore float64
}

// HistoryPoint projects the result onto a history row.
func (r *ScoreResult) HistoryPoint() *ScoreHistoryPoint {
	return &ScoreHistoryPoint{
		ChannelID:       r.ChannelID,
		ScannedAt:       r.ScannedAt,
		ConfigVersion:   r.ConfigVersion,
		SnapshotID:      r.SnapshotID,
		RawScore:        r.RawScore,
		TrustFactor:     r.TrustFactor,
		FinalScore:      r.FinalScore,
		Verdict:         r.Verdict,
		ConvictionScore: r.ConvictionScore,
	}
}
