package memory

import (
	"context"
	"errors"
	"testing"

	"channel-trust-lab/internal/domain"
	"channel-trust-lab/internal/storage"
)

func testRecord(snapshotID, channel, version string, scannedAt int64, penalties ...domain.PenaltyKey) *domain.ScoreRecord {
	details := domain.TrustDetails{}
	for _, k := range penalties {
		details = append(details, domain.TrustPenalty{Key: k, Multiplier: 0.8, Rationale: k.String()})
	}
	return &domain.ScoreRecord{
		SnapshotID:    snapshotID,
		ChannelID:     channel,
		ConfigVersion: version,
		ScannedAt:     scannedAt,
		ScoredAt:      scannedAt + 10,
		Result: &domain.ScoreResult{
			SnapshotID:    snapshotID,
			ChannelID:     channel,
			ConfigVersion: version,
			ScannedAt:     scannedAt,
			RawScore:      70,
			TrustFactor:   0.8,
			FinalScore:    56,
			Verdict:       domain.VerdictGood,
			TrustDetails:  details,
		},
	}
}

func TestScoreRecordStore_InsertAndGet(t *testing.T) {
	store := NewScoreRecordStore()
	ctx := context.Background()

	rec := testRecord("s1", "chan", "v48.0", 1000, domain.PenaltyAdLoad)
	if err := store.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.Get(ctx, "s1", "v48.0")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Result.FinalScore != 56 {
		t.Errorf("FinalScore = %d, want 56", got.Result.FinalScore)
	}

	got.Result.TrustDetails[0].Multiplier = 0
	again, _ := store.Get(ctx, "s1", "v48.0")
	if again.Result.TrustDetails[0].Multiplier != 0.8 {
		t.Errorf("stored record changed through returned pointer")
	}

	if _, err := store.Get(ctx, "s1", "v15.2"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for other version, got %v", err)
	}
}

func TestScoreRecordStore_VersionsCoexist(t *testing.T) {
	store := NewScoreRecordStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testRecord("s1", "chan", "v48.0", 1000)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, testRecord("s1", "chan", "v15.2", 1000)); err != nil {
		t.Fatalf("Insert under second version failed: %v", err)
	}
	if err := store.Insert(ctx, testRecord("s1", "chan", "v48.0", 1000)); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestScoreRecordStore_InsertBulkIsAtomic(t *testing.T) {
	store := NewScoreRecordStore()
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.ScoreRecord{
		testRecord("s1", "chan", "v48.0", 1000),
		testRecord("s2", "chan", "v48.0", 2000),
		testRecord("s1", "chan", "v48.0", 1000),
	})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey, got %v", err)
	}

	all, _ := store.GetByVersion(ctx, "v48.0")
	if len(all) != 0 {
		t.Errorf("Expected no records after failed batch, got %d", len(all))
	}

	if err := store.InsertBulk(ctx, []*domain.ScoreRecord{{SnapshotID: "x"}}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestScoreRecordStore_Queries(t *testing.T) {
	store := NewScoreRecordStore()
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.ScoreRecord{
		testRecord("s3", "a", "v48.0", 3000, domain.PenaltyAdLoad, domain.PenaltyBotWall),
		testRecord("s1", "a", "v48.0", 1000, domain.PenaltyAdLoad),
		testRecord("s2", "b", "v48.0", 2000),
		testRecord("s1", "a", "v15.2", 1000, domain.PenaltyBotWall),
	})
	if err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	byChannel, _ := store.GetByChannel(ctx, "a", "v48.0")
	if len(byChannel) != 2 || byChannel[0].SnapshotID != "s1" || byChannel[1].SnapshotID != "s3" {
		t.Errorf("unexpected GetByChannel result: %v", byChannel)
	}

	byVersion, _ := store.GetByVersion(ctx, "v48.0")
	if len(byVersion) != 3 {
		t.Errorf("Expected 3 records, got %d", len(byVersion))
	}

	counts, err := store.PenaltyCounts(ctx, "v48.0")
	if err != nil {
		t.Fatalf("PenaltyCounts failed: %v", err)
	}
	if counts[domain.PenaltyAdLoad] != 2 || counts[domain.PenaltyBotWall] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}
}
