package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"channel-trust-lab/internal/config"
	"channel-trust-lab/internal/domain"
	"channel-trust-lab/internal/engine"
	"channel-trust-lab/internal/ingestion"
	"channel-trust-lab/internal/ingestion/stub"
	"channel-trust-lab/internal/recorder"
	"channel-trust-lab/internal/reporting"
	"channel-trust-lab/internal/storage/memory"
)

const day = int64(86_400_000)

func snapshot(channelID string, scannedAt int64) *domain.Snapshot {
	created := scannedAt - 500*day
	posts := make([]domain.Post, 10)
	for i := range posts {
		posts[i] = domain.Post{
			MessageID: int64(i + 1),
			PostedAt:  scannedAt - int64(12-i)*day,
			Views:     1200 + 9*i,
			Forwards:  6,
			Reactions: 25,
			Comments:  5,
			Text:      fmt.Sprintf("daily digest %d", i),
		}
	}
	return &domain.Snapshot{
		ChannelID: channelID,
		ScannedAt: scannedAt,
		Channel: &domain.ChannelMeta{
			MemberCount:      5000,
			CreatedAt:        &created,
			CommentsEnabled:  domain.Flag(true),
			ReactionsEnabled: domain.Flag(true),
		},
		Posts: posts,
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	eng, err := engine.New(config.Default())
	require.NoError(t, err)

	records := memory.NewScoreRecordStore()
	history := memory.NewScoreHistoryStore()
	runner := ingestion.NewRunner(ingestion.RunnerOptions{
		Source:        stub.NewSource(),
		SnapshotStore: memory.NewSnapshotStore(),
		CursorStore:   memory.NewIngestCursorStore(),
		Engine:        eng,
		Recorder:      recorder.New(records, history),
		Logger:        zaptest.NewLogger(t),
	})

	return NewServer(Options{
		Engine:         eng,
		Runner:         runner,
		Records:        records,
		Reporter:       reporting.NewGenerator(records, history),
		Logger:         zaptest.NewLogger(t),
		MetricsHandler: http.NotFoundHandler(),
	})
}

func do(t *testing.T, s *Server, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestScore(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/score", mustJSON(t, snapshot("alpha", 1_700_000_000_000)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res domain.ScoreResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "alpha", res.ChannelID)
	assert.Equal(t, config.DefaultVersion, res.ConfigVersion)
	assert.NotEmpty(t, res.Fingerprint)
	assert.GreaterOrEqual(t, res.FinalScore, 0)
	assert.LessOrEqual(t, res.FinalScore, 100)

	// Scoring alone does not persist.
	rec = do(t, s, http.MethodGet, "/channels/alpha/latest", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScore_BadInput(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/score", []byte("{"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	incomplete := snapshot("alpha", 1_700_000_000_000)
	incomplete.Posts = nil
	rec = do(t, s, http.MethodPost, "/score", mustJSON(t, incomplete))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "posts section is missing")
}

func TestIngestAndQuery(t *testing.T) {
	s := newTestServer(t)
	base := int64(1_700_000_000_000)

	payload := mustJSON(t, []*domain.Snapshot{snapshot("alpha", base), snapshot("alpha", base+day)})
	rec := do(t, s, http.MethodPost, "/ingest", payload)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var ing IngestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ing))
	assert.Equal(t, []ingestion.Outcome{ingestion.OutcomeScored, ingestion.OutcomeScored}, ing.Outcomes)

	rec = do(t, s, http.MethodGet, "/channels/alpha/records", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var results []domain.ScoreResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 2)
	assert.Equal(t, base, results[0].ScannedAt)

	rec = do(t, s, http.MethodGet, "/channels/alpha/latest", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var latest domain.ScoreResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &latest))
	assert.Equal(t, base+day, latest.ScannedAt)

	rec = do(t, s, http.MethodGet, "/channels/alpha/records?version="+config.VersionV15, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = do(t, s, http.MethodGet, "/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.NotNil(t, status.Ingestion)
	assert.Equal(t, int64(2), status.Ingestion.Scored)
	assert.Equal(t, config.DefaultVersion, status.ConfigVersion)
}

func TestIngest_Invalid(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodPost, "/ingest", []byte("nope"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestReport(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/ingest", mustJSON(t, snapshot("alpha", 1_700_000_000_000)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/report", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "# Channel Score Report"))
	assert.Contains(t, rec.Body.String(), "| alpha |")

	rec = do(t, s, http.MethodGet, "/report?format=csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "channel_id,"))
}

func TestShutdownWithoutStart(t *testing.T) {
	s := newTestServer(t)
	assert.NoError(t, s.Shutdown(context.Background()))
}
