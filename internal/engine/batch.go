package engine

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"channel-trust-lab/internal/domain"
)

// BatchItem is the outcome of scoring one snapshot of a batch.
type BatchItem struct {
	Snapshot *domain.Snapshot
	Result   *domain.ScoreResult
	Err      error
}

// ScoreBatch scores snapshots concurrently with at most workers goroutines
// (GOMAXPROCS when workers <= 0). Items keep input order. A snapshot that
// fails validation does not stop the batch; only context cancellation does.
func (e *Engine) ScoreBatch(ctx context.Context, snapshots []*domain.Snapshot, workers int) ([]BatchItem, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	items := make([]BatchItem, len(snapshots))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, s := range snapshots {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := e.Score(s)
			// each goroutine owns items[i]
			items[i] = BatchItem{Snapshot: s, Result: res, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return items, err
	}
	if err := ctx.Err(); err != nil {
		return items, err
	}
	return items, nil
}
