// Package rescore re-scores stored snapshots under a config version.
// It coordinates: load snapshots → score in parallel → persist records.
package rescore

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"channel-trust-lab/internal/domain"
	"channel-trust-lab/internal/engine"
	"channel-trust-lab/internal/observability"
	"channel-trust-lab/internal/recorder"
	"channel-trust-lab/internal/storage"
)

// Runner re-scores a range of stored snapshots with one engine.
type Runner struct {
	snapshots storage.SnapshotStore
	recorder  *recorder.Recorder
	engine    *engine.Engine
	workers   int
	start     int64
	end       int64
	logger    *zap.Logger
	metrics   *observability.Metrics
}

// Options for creating Runner.
type Options struct {
	SnapshotStore storage.SnapshotStore
	Recorder      *recorder.Recorder
	Engine        *engine.Engine

	Workers int   // <= 0 uses GOMAXPROCS
	Start   int64 // inclusive scanned_at lower bound, Unix ms
	End     int64 // inclusive upper bound; 0 means no bound

	Logger  *zap.Logger            // nil disables logging
	Metrics *observability.Metrics // nil disables metrics
}

// New creates a new Runner.
func New(opts Options) *Runner {
	end := opts.End
	if end == 0 {
		end = math.MaxInt64
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		snapshots: opts.SnapshotStore,
		recorder:  opts.Recorder,
		engine:    opts.Engine,
		workers:   opts.Workers,
		start:     opts.Start,
		end:       end,
		logger:    logger.Named("rescore"),
		metrics:   opts.Metrics,
	}
}

// RunResult contains results from one re-scoring run.
type RunResult struct {
	ConfigVersion   string
	SnapshotsLoaded int
	RecordsCreated  int
	AlreadyScored   int
	Results         []*domain.ScoreResult // every successfully scored snapshot, in load order
	Errors          []string
}

// Run executes the re-scoring run.
// Phases:
//  1. Load snapshots in the time range
//  2. Score them concurrently
//  3. Persist each result, skipping pairs already recorded
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	started := time.Now()
	result, err := r.run(ctx)

	status := "success"
	if err != nil {
		status = "failed"
	} else if len(result.Errors) > 0 {
		status = "partial"
	}
	if r.metrics != nil {
		r.metrics.RecordRescoreRun(status, time.Since(started).Seconds())
	}
	return result, err
}

func (r *Runner) run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{ConfigVersion: r.engine.Version()}
	log := r.logger.With(zap.String("config_version", result.ConfigVersion))

	// Phase 1: Load snapshots
	snaps, err := r.snapshots.GetByTimeRange(ctx, r.start, r.end)
	if err != nil {
		return nil, fmt.Errorf("phase 1 (load snapshots) failed: %w", err)
	}
	result.SnapshotsLoaded = len(snaps)
	log.Info("loaded snapshots", zap.Int("count", len(snaps)))

	if len(snaps) == 0 {
		return result, nil
	}

	// Phase 2: Score
	items, err := r.engine.ScoreBatch(ctx, snaps, r.workers)
	if err != nil {
		return nil, fmt.Errorf("phase 2 (score) failed: %w", err)
	}

	// Phase 3: Persist
	for _, item := range items {
		if item.Err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("score %s: %v", item.Snapshot.SnapshotID, item.Err))
			r.recordError("score")
			continue
		}
		result.Results = append(result.Results, item.Result)

		stored, err := r.recorder.Record(ctx, item.Result)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("persist %s: %v", item.Result.SnapshotID, err))
			r.recordError("persist")
			continue
		}
		if !stored {
			result.AlreadyScored++
			continue
		}
		result.RecordsCreated++
		if r.metrics != nil {
			r.metrics.RecordResult(item.Result, 0)
		}
	}

	log.Info("rescore completed",
		zap.Int("snapshots", result.SnapshotsLoaded),
		zap.Int("created", result.RecordsCreated),
		zap.Int("already_scored", result.AlreadyScored),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

func (r *Runner) recordError(stage string) {
	if r.metrics != nil {
		r.metrics.RecordError(stage)
	}
}
