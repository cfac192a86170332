package ingestion

import (
	"errors"
	"sort"

	"channel-trust-lab/internal/domain"
)

// ErrInvalidOrdering is returned when snapshots are not properly ordered.
var ErrInvalidOrdering = errors.New("snapshots are not in deterministic order")

// SortSnapshots orders snapshots by (scanned_at ASC, channel_id ASC, snapshot_id ASC).
// A burst delivered out of order is processed oldest first so the ingest
// cursor does not reject older scans of the same channel.
func SortSnapshots(snaps []*domain.Snapshot) {
	sort.SliceStable(snaps, func(i, j int) bool {
		return compareSnapshots(snaps[i], snaps[j]) < 0
	})
}

// ValidateSnapshotOrdering checks if snapshots are properly ordered.
// Returns ErrInvalidOrdering if not.
func ValidateSnapshotOrdering(snaps []*domain.Snapshot) error {
	for i := 1; i < len(snaps); i++ {
		if compareSnapshots(snaps[i-1], snaps[i]) >= 0 {
			return ErrInvalidOrdering
		}
	}
	return nil
}

// compareSnapshots returns:
// -1 if a < b
// 0 if a == b
// 1 if a > b
func compareSnapshots(a, b *domain.Snapshot) int {
	if a.ScannedAt != b.ScannedAt {
		if a.ScannedAt < b.ScannedAt {
			return -1
		}
		return 1
	}
	if a.ChannelID != b.ChannelID {
		if a.ChannelID < b.ChannelID {
			return -1
		}
		return 1
	}
	if a.SnapshotID != b.SnapshotID {
		if a.SnapshotID < b.SnapshotID {
			return -1
		}
		return 1
	}
	return 0
}
