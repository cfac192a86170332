package memory

import (
	"context"
	"sort"
	"sync"

	"channel-trust-lab/internal/domain"
	"channel-trust-lab/internal/storage"
)

type recordKey struct {
	snapshotID    string
	configVersion string
}

// ScoreRecordStore is an in-memory implementation of storage.ScoreRecordStore.
type ScoreRecordStore struct {
	mu   sync.RWMutex
	data map[recordKey]*domain.ScoreRecord
}

// NewScoreRecordStore creates a new in-memory score record store.
func NewScoreRecordStore() *ScoreRecordStore {
	return &ScoreRecordStore{
		data: make(map[recordKey]*domain.ScoreRecord),
	}
}

func keyOf(r *domain.ScoreRecord) recordKey {
	return recordKey{snapshotID: r.SnapshotID, configVersion: r.ConfigVersion}
}

func validRecord(r *domain.ScoreRecord) bool {
	return r != nil && r.SnapshotID != "" && r.ConfigVersion != "" && r.Result != nil
}

func cloneRecord(r *domain.ScoreRecord) *domain.ScoreRecord {
	c := *r
	c.Result = r.Result.Clone()
	return &c
}

// Insert adds a new record. Returns ErrDuplicateKey if (snapshot_id, config_version) exists.
func (s *ScoreRecordStore) Insert(_ context.Context, r *domain.ScoreRecord) error {
	if !validRecord(r) {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[keyOf(r)]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[keyOf(r)] = cloneRecord(r)
	return nil
}

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
func (s *ScoreRecordStore) InsertBulk(_ context.Context, records []*domain.ScoreRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[recordKey]struct{}, len(records))

	// First pass: check for duplicates (existing + intra-batch)
	for _, r := range records {
		if !validRecord(r) {
			return storage.ErrInvalidInput
		}
		k := keyOf(r)
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	for _, r := range records {
		s.data[keyOf(r)] = cloneRecord(r)
	}
	return nil
}

// Get retrieves the record of a snapshot under a config version. Returns ErrNotFound if not exists.
func (s *ScoreRecordStore) Get(_ context.Context, snapshotID, configVersion string) (*domain.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[recordKey{snapshotID: snapshotID, configVersion: configVersion}]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneRecord(r), nil
}

// GetByChannel retrieves records of a channel under a config version, ordered by scanned_at ASC.
func (s *ScoreRecordStore) GetByChannel(_ context.Context, channelID, configVersion string) ([]*domain.ScoreRecord, error) {
	return s.filter(func(r *domain.ScoreRecord) bool {
		return r.ChannelID == channelID && r.ConfigVersion == configVersion
	}), nil
}

// GetByVersion retrieves all records of a config version.
func (s *ScoreRecordStore) GetByVersion(_ context.Context, configVersion string) ([]*domain.ScoreRecord, error) {
	return s.filter(func(r *domain.ScoreRecord) bool {
		return r.ConfigVersion == configVersion
	}), nil
}

// PenaltyCounts returns how many records of a config version carry each trust penalty.
func (s *ScoreRecordStore) PenaltyCounts(_ context.Context, configVersion string) (map[domain.PenaltyKey]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[domain.PenaltyKey]int)
	for _, r := range s.data {
		if r.ConfigVersion != configVersion {
			continue
		}
		for _, p := range r.Result.TrustDetails {
			counts[p.Key]++
		}
	}
	return counts, nil
}

func (s *ScoreRecordStore) filter(keep func(*domain.ScoreRecord) bool) []*domain.ScoreRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ScoreRecord
	for _, r := range s.data {
		if keep(r) {
			result = append(result, cloneRecord(r))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].ScannedAt != result[j].ScannedAt {
			return result[i].ScannedAt < result[j].ScannedAt
		}
		return result[i].SnapshotID < result[j].SnapshotID
	})
	return result
}

var _ storage.ScoreRecordStore = (*ScoreRecordStore)(nil)
