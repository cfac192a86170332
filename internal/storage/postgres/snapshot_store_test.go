package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channel-trust-lab/internal/domain"
	"channel-trust-lab/internal/storage"
)

func createTestSnapshot(id, channel string, scannedAt int64) *domain.Snapshot {
	observed := 1180
	return &domain.Snapshot{
		SnapshotID: id,
		ChannelID:  channel,
		ScannedAt:  scannedAt,
		Channel: &domain.ChannelMeta{
			Username:         channel,
			MemberCount:      1200,
			CreatedAt:        ptr(scannedAt - 86_400_000*300),
			CommentsEnabled:  domain.Flag(true),
			ReactionsEnabled: domain.Flag(true),
		},
		Posts: []domain.Post{
			{MessageID: 10, PostedAt: scannedAt - 3_600_000, Views: 420, Forwards: 3, Reactions: 12, Text: "weekly digest"},
			{MessageID: 11, PostedAt: scannedAt - 7_200_000, Views: 380, IsAd: true},
		},
		Members: &domain.MemberSample{Members: []domain.Member{
			{UserID: 5_000_001, Premium: true, DCID: 2},
			{UserID: 7_100_000, RecentlyOnline: true},
		}},
		Health: &domain.ChannelHealth{OnlineCount: domain.Count(14), ObservedMemberCount: &observed},
	}
}

func TestSnapshotStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSnapshotStore(pool)

	snap := createTestSnapshot("snap-001", "chan-a", 1_700_000_000_000)
	require.NoError(t, store.Insert(ctx, snap))

	got, err := store.GetByID(ctx, "snap-001")
	require.NoError(t, err)
	assert.Equal(t, snap, got)
}

func TestSnapshotStore_DuplicateKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSnapshotStore(pool)

	require.NoError(t, store.Insert(ctx, createTestSnapshot("snap-001", "chan-a", 1000)))
	err := store.Insert(ctx, createTestSnapshot("snap-001", "chan-a", 2000))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestSnapshotStore_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := NewSnapshotStore(pool).GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSnapshotStore_Queries(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSnapshotStore(pool)

	for _, snap := range []*domain.Snapshot{
		createTestSnapshot("s3", "chan-a", 3000),
		createTestSnapshot("s1", "chan-a", 1000),
		createTestSnapshot("s2", "chan-b", 2000),
	} {
		require.NoError(t, store.Insert(ctx, snap))
	}

	byChannel, err := store.GetByChannel(ctx, "chan-a")
	require.NoError(t, err)
	require.Len(t, byChannel, 2)
	assert.Equal(t, "s1", byChannel[0].SnapshotID)
	assert.Equal(t, "s3", byChannel[1].SnapshotID)

	inRange, err := store.GetByTimeRange(ctx, 1500, 3000)
	require.NoError(t, err)
	require.Len(t, inRange, 2)
	assert.Equal(t, "s2", inRange[0].SnapshotID)
}
