package postgres

import (
	"context"
	"fmt"

	"channel-trust-lab/internal/storage"
)

// IngestCursorStore implements storage.IngestCursorStore using the
// ingest_cursor table, one row per channel.
type IngestCursorStore struct {
	pool *Pool
}

// NewIngestCursorStore creates a new PostgreSQL ingest cursor store.
func NewIngestCursorStore(pool *Pool) *IngestCursorStore {
	return &IngestCursorStore{pool: pool}
}

var _ storage.IngestCursorStore = (*IngestCursorStore)(nil)

// GetLastScanned returns the newest accepted scanned_at for the channel.
func (s *IngestCursorStore) GetLastScanned(ctx context.Context, channelID string) (int64, error) {
	if channelID == "" {
		return 0, storage.ErrInvalidInput
	}

	var ts int64
	err := s.pool.QueryRow(ctx, `
		SELECT last_scanned_at FROM ingest_cursor WHERE channel_id = $1
	`, channelID).Scan(&ts)
	if err != nil {
		if isNotFoundError(err) {
			return 0, storage.ErrNotFound
		}
		return 0, fmt.Errorf("get ingest cursor: %w", err)
	}
	return ts, nil
}

// Advance moves the channel cursor forward to scannedAt.
// The conditional upsert leaves the row untouched for stale values.
func (s *IngestCursorStore) Advance(ctx context.Context, channelID string, scannedAt int64) (bool, error) {
	if channelID == "" || scannedAt <= 0 {
		return false, storage.ErrInvalidInput
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO ingest_cursor (channel_id, last_scanned_at, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (channel_id) DO UPDATE
		SET last_scanned_at = EXCLUDED.last_scanned_at,
		    updated_at = NOW()
		WHERE ingest_cursor.last_scanned_at < EXCLUDED.last_scanned_at
	`, channelID, scannedAt)
	if err != nil {
		return false, fmt.Errorf("advance ingest cursor: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
