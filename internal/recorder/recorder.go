// Package recorder persists score results: the full record in the record
// store and a projection in the score history time series.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"channel-trust-lab/internal/domain"
	"channel-trust-lab/internal/storage"
)

// Recorder writes results to a record store and, optionally, a history store.
type Recorder struct {
	records storage.ScoreRecordStore
	history storage.ScoreHistoryStore // nil disables the time series
	now     func() int64
}

// New creates a Recorder. history may be nil.
func New(records storage.ScoreRecordStore, history storage.ScoreHistoryStore) *Recorder {
	return &Recorder{
		records: records,
		history: history,
		now:     func() int64 { return time.Now().UnixMilli() },
	}
}

// WithClock sets the clock used for ScoredAt.
func (r *Recorder) WithClock(now func() int64) *Recorder {
	r.now = now
	return r
}

// Record stores one result. It returns false when the (snapshot, config
// version) pair was already recorded. The history point is written in both
// cases, so a retry after a failed history write fills the gap; a history
// point that already exists counts as written.
func (r *Recorder) Record(ctx context.Context, res *domain.ScoreResult) (bool, error) {
	if res == nil {
		return false, storage.ErrInvalidInput
	}

	created := true
	err := r.records.Insert(ctx, &domain.ScoreRecord{
		SnapshotID:    res.SnapshotID,
		ChannelID:     res.ChannelID,
		ConfigVersion: res.ConfigVersion,
		ScannedAt:     res.ScannedAt,
		ScoredAt:      r.now(),
		Result:        res,
	})
	switch {
	case errors.Is(err, storage.ErrDuplicateKey):
		created = false
	case err != nil:
		return false, fmt.Errorf("insert score record %s: %w", res.SnapshotID, err)
	}

	if r.history == nil {
		return created, nil
	}
	err = r.history.InsertBulk(ctx, []*domain.ScoreHistoryPoint{res.HistoryPoint()})
	if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		return created, fmt.Errorf("insert score history %s: %w", res.SnapshotID, err)
	}
	return created, nil
}
