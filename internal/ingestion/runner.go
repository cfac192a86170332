// Package ingestion consumes snapshots pushed by the channel scanner, scores
// them and persists snapshot, record and history.
package ingestion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"channel-trust-lab/internal/domain"
	"channel-trust-lab/internal/engine"
	"channel-trust-lab/internal/idhash"
	"channel-trust-lab/internal/observability"
	"channel-trust-lab/internal/recorder"
	"channel-trust-lab/internal/storage"
)

// ErrFeedClosed is returned by Run when the source closes while the context is still live.
var ErrFeedClosed = errors.New("snapshot feed closed")

// Outcome labels one processed snapshot.
type Outcome string

const (
	OutcomeScored    Outcome = "scored"
	OutcomeDuplicate Outcome = "duplicate" // already recorded under this config version
	OutcomeStale     Outcome = "stale"     // not newer than the channel's ingest cursor
	OutcomeInvalid   Outcome = "invalid"   // undecodable or structurally incomplete
	OutcomeError     Outcome = "error"     // storage failure
)

// Stats counts processed snapshots by outcome.
type Stats struct {
	Received      int64     `json:"received"`
	Scored        int64     `json:"scored"`
	Duplicate     int64     `json:"duplicate"`
	Stale         int64     `json:"stale"`
	Invalid       int64     `json:"invalid"`
	Errors        int64     `json:"errors"`
	LastScannedAt int64     `json:"last_scanned_at"` // newest scanned_at scored, Unix ms
	LastScoredAt  time.Time `json:"last_scored_at"`
}

// Runner drives continuous ingestion from a SnapshotSource.
type Runner struct {
	source    SnapshotSource
	snapshots storage.SnapshotStore
	cursor    storage.IngestCursorStore
	engine    *engine.Engine
	recorder  *recorder.Recorder
	logger    *zap.Logger
	metrics   *observability.Metrics
	now       func() time.Time

	mu    sync.Mutex
	stats Stats
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Source        SnapshotSource
	SnapshotStore storage.SnapshotStore
	CursorStore   storage.IngestCursorStore // optional; nil accepts every snapshot
	Engine        *engine.Engine
	Recorder      *recorder.Recorder
	Logger        *zap.Logger
	Metrics       *observability.Metrics // optional
}

// NewRunner creates a new ingestion runner.
func NewRunner(opts RunnerOptions) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		source:    opts.Source,
		snapshots: opts.SnapshotStore,
		cursor:    opts.CursorStore,
		engine:    opts.Engine,
		recorder:  opts.Recorder,
		logger:    logger.Named("ingestion"),
		metrics:   opts.Metrics,
		now:       time.Now,
	}
}

// Run subscribes to the source and processes payloads until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	payloads, err := r.source.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	r.logger.Info("ingestion runner started", zap.String("config_version", r.engine.Version()))

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("ingestion runner stopping")
			return ctx.Err()

		case payload, ok := <-payloads:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				r.logger.Warn("snapshot feed closed")
				return ErrFeedClosed
			}
			r.HandlePayload(ctx, payload)
		}
	}
}

// Stats returns a copy of the current counters.
func (r *Runner) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// HandlePayload decodes one feed message and processes every snapshot in it.
// Arrays are processed in (scanned_at, channel_id, snapshot_id) order.
func (r *Runner) HandlePayload(ctx context.Context, payload []byte) []Outcome {
	snaps, err := DecodePayload(payload)
	if err != nil {
		r.logger.Warn("undecodable feed message", zap.Int("bytes", len(payload)), zap.Error(err))
		r.count(OutcomeInvalid, nil)
		r.observe(OutcomeInvalid, 0)
		return []Outcome{OutcomeInvalid}
	}

	SortSnapshots(snaps)
	outcomes := make([]Outcome, len(snaps))
	for i, s := range snaps {
		outcomes[i] = r.Process(ctx, s)
	}
	return outcomes
}

// Process handles one decoded snapshot.
func (r *Runner) Process(ctx context.Context, s *domain.Snapshot) Outcome {
	start := r.now()
	res, outcome, err := r.process(ctx, s)
	elapsed := r.now().Sub(start).Seconds()

	log := r.logger.With(zap.String("outcome", string(outcome)))
	if s != nil {
		log = log.With(zap.String("channel_id", s.ChannelID), zap.Int64("scanned_at", s.ScannedAt))
	}
	switch outcome {
	case OutcomeScored:
		log.Info("snapshot scored",
			zap.String("snapshot_id", res.SnapshotID),
			zap.Int("final_score", res.FinalScore),
			zap.String("verdict", string(res.Verdict)),
			zap.String("terminal", string(res.Terminal)))
		if r.metrics != nil {
			r.metrics.RecordResult(res, elapsed)
			r.metrics.LastIngestion.SetToCurrentTime()
		}
	case OutcomeInvalid, OutcomeError:
		log.Warn("snapshot rejected", zap.Error(err))
	default:
		log.Debug("snapshot skipped")
	}

	r.count(outcome, res)
	r.observe(outcome, elapsed)
	return outcome
}

func (r *Runner) process(ctx context.Context, s *domain.Snapshot) (*domain.ScoreResult, Outcome, error) {
	if err := s.Validate(); err != nil {
		return nil, OutcomeInvalid, err
	}
	if s.SnapshotID == "" {
		s.SnapshotID = idhash.ComputeSnapshotID(s.ChannelID, s.ScannedAt)
	}

	// 1. Drop snapshots not newer than the channel's cursor
	if r.cursor != nil {
		last, err := r.cursor.GetLastScanned(ctx, s.ChannelID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
		case err != nil:
			r.recordError("cursor")
			return nil, OutcomeError, fmt.Errorf("read cursor: %w", err)
		case s.ScannedAt <= last:
			return nil, OutcomeStale, nil
		}
	}

	// 2. Persist the snapshot; a replayed snapshot may still lack its record
	if err := r.snapshots.Insert(ctx, s); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		r.recordError("snapshot_store")
		return nil, OutcomeError, fmt.Errorf("insert snapshot: %w", err)
	}

	// 3. Score
	res, err := r.engine.Score(s)
	if err != nil {
		r.recordError("score")
		if errors.Is(err, domain.ErrInvalidSnapshot) {
			return nil, OutcomeInvalid, err
		}
		return nil, OutcomeError, err
	}

	// 4. Record
	created, err := r.recorder.Record(ctx, res)
	if err != nil {
		r.recordError("record")
		return nil, OutcomeError, err
	}

	// 5. Advance cursor
	if r.cursor != nil {
		if _, err := r.cursor.Advance(ctx, s.ChannelID, s.ScannedAt); err != nil {
			r.recordError("cursor")
			return nil, OutcomeError, fmt.Errorf("advance cursor: %w", err)
		}
	}

	if !created {
		return res, OutcomeDuplicate, nil
	}
	return res, OutcomeScored, nil
}

func (r *Runner) count(outcome Outcome, res *domain.ScoreResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stats.Received++
	switch outcome {
	case OutcomeScored:
		r.stats.Scored++
		if res.ScannedAt > r.stats.LastScannedAt {
			r.stats.LastScannedAt = res.ScannedAt
		}
		r.stats.LastScoredAt = r.now()
	case OutcomeDuplicate:
		r.stats.Duplicate++
	case OutcomeStale:
		r.stats.Stale++
	case OutcomeInvalid:
		r.stats.Invalid++
	case OutcomeError:
		r.stats.Errors++
	}
}

func (r *Runner) observe(outcome Outcome, seconds float64) {
	if r.metrics != nil {
		r.metrics.RecordFeedMessage(string(outcome), seconds)
	}
}

func (r *Runner) recordError(stage string) {
	if r.metrics != nil {
		r.metrics.RecordError(stage)
	}
}

// DecodePayload accepts one snapshot object or an array of them.
func DecodePayload(payload []byte) ([]*domain.Snapshot, error) {
	trimmed := bytes.TrimLeft(payload, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, errors.New("empty payload")
	}

	if trimmed[0] == '[' {
		var snaps []*domain.Snapshot
		if err := json.Unmarshal(trimmed, &snaps); err != nil {
			return nil, fmt.Errorf("decode snapshot array: %w", err)
		}
		for i, s := range snaps {
			if s == nil {
				return nil, fmt.Errorf("decode snapshot array: element %d is null", i)
			}
		}
		return snaps, nil
	}

	var s domain.Snapshot
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return []*domain.Snapshot{&s}, nil
}
