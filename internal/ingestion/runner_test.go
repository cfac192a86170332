package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"channel-trust-lab/internal/config"
	"channel-trust-lab/internal/domain"
	"channel-trust-lab/internal/engine"
	"channel-trust-lab/internal/ingestion/stub"
	"channel-trust-lab/internal/recorder"
	"channel-trust-lab/internal/storage/memory"
)

const day = int64(86_400_000)

func snapshot(channelID string, scannedAt int64) *domain.Snapshot {
	created := scannedAt - 200*day
	posts := make([]domain.Post, 12)
	for i := range posts {
		posts[i] = domain.Post{
			MessageID: int64(i + 1),
			PostedAt:  scannedAt - int64(15-i)*day,
			Views:     900 + 13*i,
			Forwards:  5,
			Reactions: 20,
			Comments:  4,
			Text:      fmt.Sprintf("%s post %d", channelID, i),
		}
	}
	return &domain.Snapshot{
		ChannelID: channelID,
		ScannedAt: scannedAt,
		Channel: &domain.ChannelMeta{
			MemberCount:      4000,
			CreatedAt:        &created,
			CommentsEnabled:  domain.Flag(true),
			ReactionsEnabled: domain.Flag(true),
		},
		Posts: posts,
	}
}

type fixture struct {
	snapshots *memory.SnapshotStore
	records   *memory.ScoreRecordStore
	history   *memory.ScoreHistoryStore
	cursor    *memory.IngestCursorStore
}

func newFixture() fixture {
	return fixture{
		snapshots: memory.NewSnapshotStore(),
		records:   memory.NewScoreRecordStore(),
		history:   memory.NewScoreHistoryStore(),
		cursor:    memory.NewIngestCursorStore(),
	}
}

func (f fixture) runner(t *testing.T, source SnapshotSource) *Runner {
	t.Helper()
	eng, err := engine.New(config.Default())
	require.NoError(t, err)
	return NewRunner(RunnerOptions{
		Source:        source,
		SnapshotStore: f.snapshots,
		CursorStore:   f.cursor,
		Engine:        eng,
		Recorder:      recorder.New(f.records, f.history),
		Logger:        zaptest.NewLogger(t),
	})
}

func TestRunner_ScoresAndPersists(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	base := int64(1_700_000_000_000)

	source, err := stub.NewJSONSource(snapshot("alpha", base), snapshot("beta", base+1000))
	require.NoError(t, err)
	r := f.runner(t, source)

	err = r.Run(ctx)
	assert.ErrorIs(t, err, ErrFeedClosed)

	stats := r.Stats()
	assert.Equal(t, int64(2), stats.Received)
	assert.Equal(t, int64(2), stats.Scored)
	assert.Equal(t, base+1000, stats.LastScannedAt)

	records, err := f.records.GetByVersion(ctx, config.DefaultVersion)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "alpha", records[0].ChannelID)

	// Snapshot id defaults to the content-derived id.
	stored, err := f.snapshots.GetByChannel(ctx, "alpha")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.NotEmpty(t, stored[0].SnapshotID)
	assert.Equal(t, records[0].SnapshotID, stored[0].SnapshotID)

	points, err := f.history.GetByChannel(ctx, "beta", config.DefaultVersion)
	require.NoError(t, err)
	assert.Len(t, points, 1)

	last, err := f.cursor.GetLastScanned(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, base, last)
}

func TestRunner_StaleSnapshotIsSkipped(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	base := int64(1_700_000_000_000)

	r := f.runner(t, stub.NewSource())
	newer, err := json.Marshal(snapshot("alpha", base+day))
	require.NoError(t, err)
	older, err := json.Marshal(snapshot("alpha", base))
	require.NoError(t, err)

	assert.Equal(t, []Outcome{OutcomeScored}, r.HandlePayload(ctx, newer))
	assert.Equal(t, []Outcome{OutcomeStale}, r.HandlePayload(ctx, older))
	assert.Equal(t, []Outcome{OutcomeStale}, r.HandlePayload(ctx, newer))

	stats := r.Stats()
	assert.Equal(t, int64(1), stats.Scored)
	assert.Equal(t, int64(2), stats.Stale)
}

func TestRunner_ArrayPayloadIsOrdered(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	base := int64(1_700_000_000_000)

	// Out of order burst: without sorting the older scan would be stale.
	payload, err := json.Marshal([]*domain.Snapshot{
		snapshot("alpha", base+2*day),
		snapshot("alpha", base),
		snapshot("alpha", base+day),
	})
	require.NoError(t, err)

	r := f.runner(t, stub.NewSource())
	outcomes := r.HandlePayload(ctx, payload)
	assert.Equal(t, []Outcome{OutcomeScored, OutcomeScored, OutcomeScored}, outcomes)

	points, err := f.history.GetByChannel(ctx, "alpha", config.DefaultVersion)
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, base, points[0].ScannedAt)
}

func TestRunner_InvalidPayloads(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	r := f.runner(t, stub.NewSource())

	missingChannel := snapshot("alpha", 1_700_000_000_000)
	missingChannel.Channel = nil
	b, err := json.Marshal(missingChannel)
	require.NoError(t, err)

	assert.Equal(t, []Outcome{OutcomeInvalid}, r.HandlePayload(ctx, []byte("{not json")))
	assert.Equal(t, []Outcome{OutcomeInvalid}, r.HandlePayload(ctx, []byte("   ")))
	assert.Equal(t, []Outcome{OutcomeInvalid}, r.HandlePayload(ctx, []byte("[null]")))
	assert.Equal(t, []Outcome{OutcomeInvalid}, r.HandlePayload(ctx, b))

	assert.Equal(t, int64(4), r.Stats().Invalid)

	all, err := f.snapshots.GetByTimeRange(ctx, 0, 1<<62)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRunner_AlreadyRecordedIsDuplicate(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	s := snapshot("alpha", 1_700_000_000_000)
	s.SnapshotID = "fixed"

	// Recorded by an earlier run, cursor lost.
	eng, err := engine.New(config.Default())
	require.NoError(t, err)
	res, err := eng.Score(s)
	require.NoError(t, err)
	_, err = recorder.New(f.records, f.history).Record(ctx, res)
	require.NoError(t, err)

	b, err := json.Marshal(s)
	require.NoError(t, err)

	r := f.runner(t, stub.NewSource())
	assert.Equal(t, []Outcome{OutcomeDuplicate}, r.HandlePayload(ctx, b))

	last, err := f.cursor.GetLastScanned(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, s.ScannedAt, last)
}

func TestRunner_StopsOnCancel(t *testing.T) {
	f := newFixture()
	blocking := &blockingSource{ch: make(chan []byte)}
	r := f.runner(t, blocking)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := r.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type blockingSource struct {
	ch chan []byte
}

func (b *blockingSource) Subscribe(context.Context) (<-chan []byte, error) {
	return b.ch, nil
}
