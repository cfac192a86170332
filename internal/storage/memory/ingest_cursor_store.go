package memory

import (
	"context"
	"sync"

	"channel-trust-lab/internal/storage"
)

// IngestCursorStore is an in-memory implementation of storage.IngestCursorStore.
type IngestCursorStore struct {
	mu      sync.Mutex
	cursors map[string]int64
}

// NewIngestCursorStore creates a new in-memory ingest cursor store.
func NewIngestCursorStore() *IngestCursorStore {
	return &IngestCursorStore{
		cursors: make(map[string]int64),
	}
}

// GetLastScanned returns the newest accepted scanned_at for the channel.
func (s *IngestCursorStore) GetLastScanned(_ context.Context, channelID string) (int64, error) {
	if channelID == "" {
		return 0, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ts, ok := s.cursors[channelID]
	if !ok {
		return 0, storage.ErrNotFound
	}
	return ts, nil
}

// Advance moves the channel cursor forward to scannedAt.
func (s *IngestCursorStore) Advance(_ context.Context, channelID string, scannedAt int64) (bool, error) {
	if channelID == "" || scannedAt <= 0 {
		return false, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ts, ok := s.cursors[channelID]; ok && ts >= scannedAt {
		return false, nil
	}
	s.cursors[channelID] = scannedAt
	return true, nil
}

var _ storage.IngestCursorStore = (*IngestCursorStore)(nil)
