// Package verification checks that stored score records are reproducible:
// every stored snapshot is re-scored and the fresh result compared with the
// stored one, field by field.
package verification

import (
	"context"
	"fmt"
	"math"
	"strings"

	"channel-trust-lab/internal/domain"
)

// FloatTolerance is the tolerance for float64 comparisons.
const FloatTolerance = 1e-7

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string // field name, breakdown entries as "breakdown.<key>"
	Expected any    // stored value
	Actual   any    // replayed value
}

// VerificationResult contains the result of verifying a single record.
type VerificationResult struct {
	SnapshotID    string
	ConfigVersion string
	Match         bool
	Divergences   []FieldDivergence
	StoredFinal   int
	ReplayedFinal int
}

// VerificationReport contains results for batch verification.
type VerificationReport struct {
	ConfigVersion    string
	TotalRecords     int
	MatchedRecords   int
	DivergentRecords int
	Results          []VerificationResult
}

// Verifier re-scores stored snapshots and compares with stored records.
type Verifier interface {
	// VerifySnapshot verifies the record of one snapshot under the verifier's config version.
	VerifySnapshot(ctx context.Context, snapshotID string) (*VerificationResult, error)

	// VerifyAll verifies every stored record of the verifier's config version.
	VerifyAll(ctx context.Context) (*VerificationReport, error)
}

// CompareResults compares two results and returns divergences.
// A matching fingerprint short-circuits the comparison; otherwise the
// divergent fields are listed so the report shows what moved.
func CompareResults(stored, replayed *domain.ScoreResult) []FieldDivergence {
	if stored.Fingerprint != "" && stored.Fingerprint == replayed.Fingerprint {
		return nil
	}

	var d []FieldDivergence
	add := func(field string, expected, actual any) {
		d = append(d, FieldDivergence{Field: field, Expected: expected, Actual: actual})
	}

	if stored.SnapshotID != replayed.SnapshotID {
		add("SnapshotID", stored.SnapshotID, replayed.SnapshotID)
	}
	if stored.ConfigVersion != replayed.ConfigVersion {
		add("ConfigVersion", stored.ConfigVersion, replayed.ConfigVersion)
	}
	if !floatEquals(stored.RawScore, replayed.RawScore) {
		add("RawScore", stored.RawScore, replayed.RawScore)
	}
	if !floatEquals(stored.TrustFactor, replayed.TrustFactor) {
		add("TrustFactor", stored.TrustFactor, replayed.TrustFactor)
	}
	if stored.FinalScore != replayed.FinalScore {
		add("FinalScore", stored.FinalScore, replayed.FinalScore)
	}
	if stored.Verdict != replayed.Verdict {
		add("Verdict", stored.Verdict, replayed.Verdict)
	}
	if stored.Terminal != replayed.Terminal {
		add("Terminal", stored.Terminal, replayed.Terminal)
	}
	if a, b := joinPath(stored.Path), joinPath(replayed.Path); a != b {
		add("Path", a, b)
	}
	if !floatEquals(stored.ConvictionScore, replayed.ConvictionScore) {
		add("ConvictionScore", stored.ConvictionScore, replayed.ConvictionScore)
	}
	if stored.ConvictionFactors != replayed.ConvictionFactors {
		add("ConvictionFactors", stored.ConvictionFactors, replayed.ConvictionFactors)
	}

	for _, key := range domain.AllMetricKeys() {
		a, okA := stored.Breakdown.Entry(key)
		b, okB := replayed.Breakdown.Entry(key)
		field := "breakdown." + key.String()
		switch {
		case okA != okB:
			add(field, okA, okB)
		case !floatEquals(a.Points, b.Points):
			add(field, a.Points, b.Points)
		case !floatEquals(a.MaxPoints, b.MaxPoints):
			add(field+".max", a.MaxPoints, b.MaxPoints)
		}
	}

	for _, key := range domain.AllPenaltyKeys() {
		a, okA := stored.TrustDetails.Lookup(key)
		b, okB := replayed.TrustDetails.Lookup(key)
		field := "trust." + key.String()
		switch {
		case okA != okB:
			add(field, okA, okB)
		case okA && !floatEquals(a.Multiplier, b.Multiplier):
			add(field, a.Multiplier, b.Multiplier)
		}
	}

	// Only the fingerprint differs: something outside the compared fields moved.
	if len(d) == 0 && stored.Fingerprint != replayed.Fingerprint {
		add("Fingerprint", stored.Fingerprint, replayed.Fingerprint)
	}
	return d
}

// FormatDivergence renders one divergence for logs and reports.
func FormatDivergence(d FieldDivergence) string {
	return fmt.Sprintf("%s: stored=%v replayed=%v", d.Field, d.Expected, d.Actual)
}

func joinPath(path []domain.State) string {
	parts := make([]string, len(path))
	for i, s := range path {
		parts[i] = string(s)
	}
	return strings.Join(parts, ">")
}

// floatEquals compares two float64 values within FloatTolerance.
func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}
