package verification

import (
	"context"
	"errors"
	"fmt"

	"channel-trust-lab/internal/engine"
	"channel-trust-lab/internal/observability"
	"channel-trust-lab/internal/storage"
)

var (
	// ErrRecordNotFound is returned when no record exists for the snapshot and config version.
	ErrRecordNotFound = errors.New("score record not found")

	// ErrSnapshotNotFound is returned when a record points at a missing snapshot.
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// ReplayVerifier implements Verifier by re-running the engine.
type ReplayVerifier struct {
	records   storage.ScoreRecordStore
	snapshots storage.SnapshotStore
	engine    *engine.Engine
	metrics   *observability.Metrics
}

// ReplayVerifierOptions contains configuration for creating a ReplayVerifier.
type ReplayVerifierOptions struct {
	RecordStore   storage.ScoreRecordStore
	SnapshotStore storage.SnapshotStore
	Engine        *engine.Engine         // its config version selects the records to verify
	Metrics       *observability.Metrics // optional
}

// NewReplayVerifier creates a new ReplayVerifier.
func NewReplayVerifier(opts ReplayVerifierOptions) *ReplayVerifier {
	return &ReplayVerifier{
		records:   opts.RecordStore,
		snapshots: opts.SnapshotStore,
		engine:    opts.Engine,
		metrics:   opts.Metrics,
	}
}

var _ Verifier = (*ReplayVerifier)(nil)

// VerifySnapshot verifies a single record by re-scoring its snapshot.
func (v *ReplayVerifier) VerifySnapshot(ctx context.Context, snapshotID string) (*VerificationResult, error) {
	// 1. Load stored record
	stored, err := v.records.Get(ctx, snapshotID, v.engine.Version())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	// 2. Load the snapshot it was computed from
	snap, err := v.snapshots.GetByID(ctx, snapshotID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrSnapshotNotFound
		}
		return nil, err
	}

	// 3. Re-score
	replayed, err := v.engine.Score(snap)
	if err != nil {
		return nil, fmt.Errorf("re-score %s: %w", snapshotID, err)
	}

	// 4. Compare
	divergences := CompareResults(stored.Result, replayed)
	if v.metrics != nil {
		for _, d := range divergences {
			v.metrics.VerificationMismatches.WithLabelValues(d.Field).Inc()
		}
	}

	return &VerificationResult{
		SnapshotID:    snapshotID,
		ConfigVersion: stored.ConfigVersion,
		Match:         len(divergences) == 0,
		Divergences:   divergences,
		StoredFinal:   stored.Result.FinalScore,
		ReplayedFinal: replayed.FinalScore,
	}, nil
}

// VerifyAll verifies every stored record of the engine's config version.
func (v *ReplayVerifier) VerifyAll(ctx context.Context) (*VerificationReport, error) {
	records, err := v.records.GetByVersion(ctx, v.engine.Version())
	if err != nil {
		return nil, err
	}

	report := &VerificationReport{
		ConfigVersion: v.engine.Version(),
		TotalRecords:  len(records),
		Results:       make([]VerificationResult, 0, len(records)),
	}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := v.VerifySnapshot(ctx, rec.SnapshotID)
		if err != nil {
			// Record error as divergence
			report.Results = append(report.Results, VerificationResult{
				SnapshotID:    rec.SnapshotID,
				ConfigVersion: rec.ConfigVersion,
				StoredFinal:   rec.Result.FinalScore,
				Divergences: []FieldDivergence{
					{Field: "Error", Expected: nil, Actual: err.Error()},
				},
			})
			report.DivergentRecords++
			continue
		}

		report.Results = append(report.Results, *result)
		if result.Match {
			report.MatchedRecords++
		} else {
			report.DivergentRecords++
		}
	}

	return report, nil
}
