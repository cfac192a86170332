package storage

import (
	"context"
	"errors"

	"channel-trust-lab/internal/domain"
)

// Errors returned by every backend. Stores are append-only: nothing is
// updated in place, so a second write of the same key is ErrDuplicateKey.
var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrInvalidInput = errors.New("invalid input")
)

// SnapshotStore provides access to channel_snapshots storage.
// Snapshots are immutable once stored.
type SnapshotStore interface {
	// Insert adds a new snapshot. Returns ErrDuplicateKey if snapshot_id exists.
	Insert(ctx context.Context, s *domain.Snapshot) error

	// GetByID retrieves a snapshot by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, snapshotID string) (*domain.Snapshot, error)

	// GetByChannel retrieves all snapshots of a channel, ordered by scanned_at ASC.
	GetByChannel(ctx context.Context, channelID string) ([]*domain.Snapshot, error)

	// GetByTimeRange retrieves snapshots scanned within [start, end] (inclusive),
	// ordered by scanned_at ASC, snapshot_id ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.Snapshot, error)
}

// ScoreRecordStore provides access to score_records storage.
// A record is keyed by (snapshot_id, config_version): re-scoring a snapshot
// under a new weight table adds a record, it never replaces one.
type ScoreRecordStore interface {
	// Insert adds a new record. Returns ErrDuplicateKey if (snapshot_id, config_version) exists.
	Insert(ctx context.Context, r *domain.ScoreRecord) error

	// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, records []*domain.ScoreRecord) error

	// Get retrieves the record of a snapshot under a config version. Returns ErrNotFound if not exists.
	Get(ctx context.Context, snapshotID, configVersion string) (*domain.ScoreRecord, error)

	// GetByChannel retrieves records of a channel under a config version, ordered by scanned_at ASC.
	GetByChannel(ctx context.Context, channelID, configVersion string) ([]*domain.ScoreRecord, error)

	// GetByVersion retrieves all records of a config version, ordered by scanned_at ASC, snapshot_id ASC.
	GetByVersion(ctx context.Context, configVersion string) ([]*domain.ScoreRecord, error)

	// PenaltyCounts returns how many records of a config version carry each trust penalty.
	PenaltyCounts(ctx context.Context, configVersion string) (map[domain.PenaltyKey]int, error)
}

// ScoreHistoryStore provides access to the score_history time series.
type ScoreHistoryStore interface {
	// InsertBulk adds multiple points. Returns ErrDuplicateKey if
	// (channel_id, config_version, scanned_at) exists.
	InsertBulk(ctx context.Context, points []*domain.ScoreHistoryPoint) error

	// GetByChannel retrieves a channel's points under a config version, ordered by scanned_at ASC.
	GetByChannel(ctx context.Context, channelID, configVersion string) ([]*domain.ScoreHistoryPoint, error)

	// GetByVersion retrieves all points of a config version, ordered by channel_id ASC, scanned_at ASC.
	GetByVersion(ctx context.Context, configVersion string) ([]*domain.ScoreHistoryPoint, error)
}

// IngestCursorStore tracks the newest scanned_at accepted per channel so a
// feed replay or an out-of-order push does not score a stale snapshot.
type IngestCursorStore interface {
	// GetLastScanned returns the newest accepted scanned_at. Returns ErrNotFound if the channel is unseen.
	GetLastScanned(ctx context.Context, channelID string) (int64, error)

	// Advance records scannedAt for the channel if it is newer than the stored value.
	// Returns true when the cursor moved.
	Advance(ctx context.Context, channelID string, scannedAt int64) (bool, error)
}
