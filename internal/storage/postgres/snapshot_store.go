package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"channel-trust-lab/internal/domain"
	"channel-trust-lab/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
// The snapshot is kept verbatim as a JSONB payload.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Insert adds a new snapshot. Returns ErrDuplicateKey if snapshot_id exists.
func (s *SnapshotStore) Insert(ctx context.Context, snap *domain.Snapshot) error {
	if snap == nil || snap.SnapshotID == "" || snap.ChannelID == "" {
		return storage.ErrInvalidInput
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO channel_snapshots (snapshot_id, channel_id, scanned_at, payload)
		VALUES ($1, $2, $3, $4)
	`, snap.SnapshotID, snap.ChannelID, snap.ScannedAt, payload)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// GetByID retrieves a snapshot by its ID. Returns ErrNotFound if not exists.
func (s *SnapshotStore) GetByID(ctx context.Context, snapshotID string) (*domain.Snapshot, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT payload FROM channel_snapshots WHERE snapshot_id = $1
	`, snapshotID)

	snap, err := scanSnapshot(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot by id: %w", err)
	}
	return snap, nil
}

// GetByChannel retrieves all snapshots of a channel, ordered by scanned_at ASC.
func (s *SnapshotStore) GetByChannel(ctx context.Context, channelID string) ([]*domain.Snapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT payload FROM channel_snapshots
		WHERE channel_id = $1
		ORDER BY scanned_at ASC, snapshot_id ASC
	`, channelID)
	if err != nil {
		return nil, fmt.Errorf("get snapshots by channel: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// GetByTimeRange retrieves snapshots scanned within [start, end] (inclusive).
func (s *SnapshotStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.Snapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT payload FROM channel_snapshots
		WHERE scanned_at >= $1 AND scanned_at <= $2
		ORDER BY scanned_at ASC, snapshot_id ASC
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("get snapshots by time range: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

func scanSnapshot(row pgx.Row) (*domain.Snapshot, error) {
	var payload []byte
	if err := row.Scan(&payload); err != nil {
		return nil, err
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

func scanSnapshots(rows pgx.Rows) ([]*domain.Snapshot, error) {
	var result []*domain.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		result = append(result, snap)
	}
	return result, rows.Err()
}
