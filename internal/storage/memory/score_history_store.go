package memory

import (
	"context"
	"sort"
	"sync"

	"channel-trust-lab/internal/domain"
	"channel-trust-lab/internal/storage"
)

type historyKey struct {
	channelID     string
	configVersion string
	scannedAt     int64
}

// ScoreHistoryStore is an in-memory implementation of storage.ScoreHistoryStore.
type ScoreHistoryStore struct {
	mu   sync.RWMutex
	data map[historyKey]*domain.ScoreHistoryPoint
}

// NewScoreHistoryStore creates a new in-memory score history store.
func NewScoreHistoryStore() *ScoreHistoryStore {
	return &ScoreHistoryStore{
		data: make(map[historyKey]*domain.ScoreHistoryPoint),
	}
}

// InsertBulk adds multiple points atomically. Fails entire batch on any duplicate.
func (s *ScoreHistoryStore) InsertBulk(_ context.Context, points []*domain.ScoreHistoryPoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[historyKey]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.ChannelID == "" || p.ConfigVersion == "" {
			return storage.ErrInvalidInput
		}
		k := historyKey{p.ChannelID, p.ConfigVersion, p.ScannedAt}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	for _, p := range points {
		copy := *p
		s.data[historyKey{p.ChannelID, p.ConfigVersion, p.ScannedAt}] = &copy
	}
	return nil
}

// GetByChannel retrieves a channel's points under a config version, ordered by scanned_at ASC.
func (s *ScoreHistoryStore) GetByChannel(_ context.Context, channelID, configVersion string) ([]*domain.ScoreHistoryPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ScoreHistoryPoint
	for k, p := range s.data {
		if k.channelID == channelID && k.configVersion == configVersion {
			copy := *p
			result = append(result, &copy)
		}
	}
	sortPoints(result)
	return result, nil
}

// GetByVersion retrieves all points of a config version, ordered by channel_id ASC, scanned_at ASC.
func (s *ScoreHistoryStore) GetByVersion(_ context.Context, configVersion string) ([]*domain.ScoreHistoryPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ScoreHistoryPoint
	for k, p := range s.data {
		if k.configVersion == configVersion {
			copy := *p
			result = append(result, &copy)
		}
	}
	sortPoints(result)
	return result, nil
}

func sortPoints(points []*domain.ScoreHistoryPoint) {
	sort.Slice(points, func(i, j int) bool {
		if points[i].ChannelID != points[j].ChannelID {
			return points[i].ChannelID < points[j].ChannelID
		}
		return points[i].ScannedAt < points[j].ScannedAt
	})
}

var _ storage.ScoreHistoryStore = (*ScoreHistoryStore)(nil)
