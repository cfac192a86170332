package memory

import (
	"context"
	"sort"
	"sync"

	"channel-trust-lab/internal/domain"
	"channel-trust-lab/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Snapshot // keyed by snapshot_id
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		data: make(map[string]*domain.Snapshot),
	}
}

// Insert adds a new snapshot. Returns ErrDuplicateKey if snapshot_id exists.
func (s *SnapshotStore) Insert(_ context.Context, snap *domain.Snapshot) error {
	if snap == nil || snap.SnapshotID == "" || snap.ChannelID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[snap.SnapshotID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[snap.SnapshotID] = snap.Clone()
	return nil
}

// GetByID retrieves a snapshot by its ID. Returns ErrNotFound if not exists.
func (s *SnapshotStore) GetByID(_ context.Context, snapshotID string) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, exists := s.data[snapshotID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return snap.Clone(), nil
}

// GetByChannel retrieves all snapshots of a channel, ordered by scanned_at ASC.
func (s *SnapshotStore) GetByChannel(_ context.Context, channelID string) ([]*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Snapshot
	for _, snap := range s.data {
		if snap.ChannelID == channelID {
			result = append(result, snap.Clone())
		}
	}
	sortSnapshots(result)
	return result, nil
}

// GetByTimeRange retrieves snapshots scanned within [start, end] (inclusive).
func (s *SnapshotStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Snapshot
	for _, snap := range s.data {
		if snap.ScannedAt >= start && snap.ScannedAt <= end {
			result = append(result, snap.Clone())
		}
	}
	sortSnapshots(result)
	return result, nil
}

func sortSnapshots(snaps []*domain.Snapshot) {
	sort.Slice(snaps, func(i, j int) bool {
		if snaps[i].ScannedAt != snaps[j].ScannedAt {
			return snaps[i].ScannedAt < snaps[j].ScannedAt
		}
		return snaps[i].SnapshotID < snaps[j].SnapshotID
	})
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)
