package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"channel-trust-lab/internal/domain"
	"channel-trust-lab/internal/storage"
)

// ScoreRecordStore implements storage.ScoreRecordStore using PostgreSQL.
//
// The full result is stored in score_records.result. Breakdown entries and
// trust penalties are also exploded into score_breakdown_entries and
// score_trust_penalties, keyed by their numeric identifiers.
type ScoreRecordStore struct {
	pool *Pool
}

// NewScoreRecordStore creates a new ScoreRecordStore.
func NewScoreRecordStore(pool *Pool) *ScoreRecordStore {
	return &ScoreRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ScoreRecordStore = (*ScoreRecordStore)(nil)

const insertRecordQuery = `
	INSERT INTO score_records (
		snapshot_id, config_version, channel_id, scanned_at, scored_at,
		raw_score, trust_factor, final_score, verdict, terminal,
		conviction_score, fingerprint, result
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, $9, $10,
		$11, $12, $13
	)
`

const insertEntryQuery = `
	INSERT INTO score_breakdown_entries (
		snapshot_id, config_version, metric_key, value, points, max_points, available
	) VALUES ($1, $2, $3, $4, $5, $6, $7)
`

const insertPenaltyQuery = `
	INSERT INTO score_trust_penalties (
		snapshot_id, config_version, penalty_key, multiplier, rationale
	) VALUES ($1, $2, $3, $4, $5)
`

const selectRecordColumns = `
	SELECT snapshot_id, config_version, channel_id, scanned_at, scored_at, result
	FROM score_records
`

// Insert adds a new record. Returns ErrDuplicateKey if (snapshot_id, config_version) exists.
func (s *ScoreRecordStore) Insert(ctx context.Context, r *domain.ScoreRecord) error {
	return s.InsertBulk(ctx, []*domain.ScoreRecord{r})
}

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
func (s *ScoreRecordStore) InsertBulk(ctx context.Context, records []*domain.ScoreRecord) error {
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		if r == nil || r.SnapshotID == "" || r.ConfigVersion == "" || r.Result == nil {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, r := range records {
		if err := insertRecord(ctx, tx, r); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert score record %s/%s: %w", r.SnapshotID, r.ConfigVersion, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func insertRecord(ctx context.Context, tx pgx.Tx, r *domain.ScoreRecord) error {
	res := r.Result
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	_, err = tx.Exec(ctx, insertRecordQuery,
		r.SnapshotID, r.ConfigVersion, r.ChannelID, r.ScannedAt, r.ScoredAt,
		res.RawScore, res.TrustFactor, res.FinalScore, string(res.Verdict), string(res.Terminal),
		res.ConvictionScore, res.Fingerprint, payload,
	)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, c := range res.Breakdown.Categories() {
		for _, e := range c.Entries {
			batch.Queue(insertEntryQuery,
				r.SnapshotID, r.ConfigVersion, int16(e.Key), e.Value, e.Points, e.MaxPoints, e.Available)
		}
	}
	for _, p := range res.TrustDetails {
		batch.Queue(insertPenaltyQuery,
			r.SnapshotID, r.ConfigVersion, int16(p.Key), p.Multiplier, p.Rationale)
	}
	if batch.Len() == 0 {
		return nil
	}
	return tx.SendBatch(ctx, batch).Close()
}

// Get retrieves the record of a snapshot under a config version. Returns ErrNotFound if not exists.
func (s *ScoreRecordStore) Get(ctx context.Context, snapshotID, configVersion string) (*domain.ScoreRecord, error) {
	row := s.pool.QueryRow(ctx, selectRecordColumns+`
		WHERE snapshot_id = $1 AND config_version = $2
	`, snapshotID, configVersion)

	r, err := scanScoreRecord(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get score record: %w", err)
	}
	return r, nil
}

// GetByChannel retrieves records of a channel under a config version, ordered by scanned_at ASC.
func (s *ScoreRecordStore) GetByChannel(ctx context.Context, channelID, configVersion string) ([]*domain.ScoreRecord, error) {
	rows, err := s.pool.Query(ctx, selectRecordColumns+`
		WHERE channel_id = $1 AND config_version = $2
		ORDER BY scanned_at ASC, snapshot_id ASC
	`, channelID, configVersion)
	if err != nil {
		return nil, fmt.Errorf("get score records by channel: %w", err)
	}
	defer rows.Close()

	return scanScoreRecords(rows)
}

// GetByVersion retrieves all records of a config version.
func (s *ScoreRecordStore) GetByVersion(ctx context.Context, configVersion string) ([]*domain.ScoreRecord, error) {
	rows, err := s.pool.Query(ctx, selectRecordColumns+`
		WHERE config_version = $1
		ORDER BY scanned_at ASC, snapshot_id ASC
	`, configVersion)
	if err != nil {
		return nil, fmt.Errorf("get score records by version: %w", err)
	}
	defer rows.Close()

	return scanScoreRecords(rows)
}

// PenaltyCounts returns how many records of a config version carry each trust penalty.
func (s *ScoreRecordStore) PenaltyCounts(ctx context.Context, configVersion string) (map[domain.PenaltyKey]int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT penalty_key, COUNT(*)
		FROM score_trust_penalties
		WHERE config_version = $1
		GROUP BY penalty_key
	`, configVersion)
	if err != nil {
		return nil, fmt.Errorf("count penalties: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.PenaltyKey]int)
	for rows.Next() {
		var (
			key   int16
			count int64
		)
		if err := rows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("scan penalty count: %w", err)
		}
		counts[domain.PenaltyKey(key)] = int(count)
	}
	return counts, rows.Err()
}

func scanScoreRecord(row pgx.Row) (*domain.ScoreRecord, error) {
	var (
		r       domain.ScoreRecord
		payload []byte
	)
	err := row.Scan(&r.SnapshotID, &r.ConfigVersion, &r.ChannelID, &r.ScannedAt, &r.ScoredAt, &payload)
	if err != nil {
		return nil, err
	}

	var res domain.ScoreResult
	if err := json.Unmarshal(payload, &res); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	r.Result = &res
	return &r, nil
}

func scanScoreRecords(rows pgx.Rows) ([]*domain.ScoreRecord, error) {
	var result []*domain.ScoreRecord
	for rows.Next() {
		r, err := scanScoreRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan score record: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
