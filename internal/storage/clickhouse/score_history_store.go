package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"channel-trust-lab/internal/domain"
	"channel-trust-lab/internal/storage"
)

// ScoreHistoryStore implements storage.ScoreHistoryStore using ClickHouse.
type ScoreHistoryStore struct {
	conn *Conn
}

// NewScoreHistoryStore creates a new ScoreHistoryStore.
func NewScoreHistoryStore(conn *Conn) *ScoreHistoryStore {
	return &ScoreHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ScoreHistoryStore = (*ScoreHistoryStore)(nil)

const historyColumns = `
	channel_id, scanned_at, config_version, snapshot_id,
	raw_score, trust_factor, final_score, verdict, conviction_score
`

// InsertBulk adds multiple points. Fails entire batch on any duplicate.
func (s *ScoreHistoryStore) InsertBulk(ctx context.Context, points []*domain.ScoreHistoryPoint) error {
	if len(points) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[string]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.ChannelID == "" || p.ConfigVersion == "" {
			return storage.ErrInvalidInput
		}
		key := fmt.Sprintf("%s|%s|%d", p.ChannelID, p.ConfigVersion, p.ScannedAt)
		if _, exists := seen[key]; exists {
			return storage.ErrDuplicateKey
		}
		seen[key] = struct{}{}
	}

	// ReplacingMergeTree would silently collapse duplicates; keep append-only semantics
	for _, p := range points {
		exists, err := s.exists(ctx, p.ChannelID, p.ConfigVersion, p.ScannedAt)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO score_history (`+historyColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			p.ChannelID, p.ScannedAt, p.ConfigVersion, p.SnapshotID,
			p.RawScore, p.TrustFactor, uint8(p.FinalScore), string(p.Verdict), p.ConvictionScore,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByChannel retrieves a channel's points under a config version, ordered by scanned_at ASC.
func (s *ScoreHistoryStore) GetByChannel(ctx context.Context, channelID, configVersion string) ([]*domain.ScoreHistoryPoint, error) {
	query := `
		SELECT ` + historyColumns + `
		FROM score_history FINAL
		WHERE channel_id = ? AND config_version = ?
		ORDER BY scanned_at ASC
	`

	rows, err := s.conn.Query(ctx, query, channelID, configVersion)
	if err != nil {
		return nil, fmt.Errorf("query by channel: %w", err)
	}
	defer rows.Close()

	return scanHistoryPoints(rows)
}

// GetByVersion retrieves all points of a config version, ordered by channel_id ASC, scanned_at ASC.
func (s *ScoreHistoryStore) GetByVersion(ctx context.Context, configVersion string) ([]*domain.ScoreHistoryPoint, error) {
	query := `
		SELECT ` + historyColumns + `
		FROM score_history FINAL
		WHERE config_version = ?
		ORDER BY channel_id ASC, scanned_at ASC
	`

	rows, err := s.conn.Query(ctx, query, configVersion)
	if err != nil {
		return nil, fmt.Errorf("query by version: %w", err)
	}
	defer rows.Close()

	return scanHistoryPoints(rows)
}

func (s *ScoreHistoryStore) exists(ctx context.Context, channelID, configVersion string, scannedAt int64) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `
		SELECT count() FROM score_history
		WHERE channel_id = ? AND config_version = ? AND scanned_at = ?
	`, channelID, configVersion, scannedAt).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanHistoryPoints(rows driver.Rows) ([]*domain.ScoreHistoryPoint, error) {
	var result []*domain.ScoreHistoryPoint
	for rows.Next() {
		var (
			p       domain.ScoreHistoryPoint
			final   uint8
			verdict string
		)
		err := rows.Scan(
			&p.ChannelID, &p.ScannedAt, &p.ConfigVersion, &p.SnapshotID,
			&p.RawScore, &p.TrustFactor, &final, &verdict, &p.ConvictionScore,
		)
		if err != nil {
			return nil, fmt.Errorf("scan score history: %w", err)
		}
		p.FinalScore = int(final)
		p.Verdict = domain.Verdict(verdict)
		result = append(result, &p)
	}
	return result, rows.Err()
}
