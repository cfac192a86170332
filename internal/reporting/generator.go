package reporting

import (
	"context"
	"sort"
	"time"

	"channel-trust-lab/internal/domain"
	"channel-trust-lab/internal/storage"
)

// Generator produces reports from stored data.
type Generator struct {
	recordStore  storage.ScoreRecordStore
	historyStore storage.ScoreHistoryStore // optional, needed for version comparison
	now          func() time.Time          // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. historyStore may be nil.
func NewGenerator(recordStore storage.ScoreRecordStore, historyStore storage.ScoreHistoryStore) *Generator {
	return &Generator{
		recordStore:  recordStore,
		historyStore: historyStore,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a report for configVersion. When compareVersion is not
// empty and a history store is configured, the latest score of every channel
// under both versions is compared.
func (g *Generator) Generate(ctx context.Context, configVersion, compareVersion string) (*Report, error) {
	records, err := g.recordStore.GetByVersion(ctx, configVersion)
	if err != nil {
		return nil, err
	}

	penaltyCounts, err := g.recordStore.PenaltyCounts(ctx, configVersion)
	if err != nil {
		return nil, err
	}

	report := &Report{
		GeneratedAt:   g.now(),
		ConfigVersion: configVersion,
		Summary:       summarize(records),
		Verdicts:      verdictRows(records),
		Terminals:     terminalRows(records),
		Penalties:     penaltyRows(penaltyCounts, len(records)),
		Channels:      channelRows(records),
	}

	if compareVersion != "" && g.historyStore != nil {
		rows, err := g.compareVersions(ctx, configVersion, compareVersion)
		if err != nil {
			return nil, err
		}
		report.CompareVersion = compareVersion
		report.VersionComparison = rows
	}

	return report, nil
}

// summarize computes the data summary. Records arrive ordered by scanned_at.
func summarize(records []*domain.ScoreRecord) DataSummary {
	s := DataSummary{TotalRecords: len(records)}
	if len(records) == 0 {
		return s
	}

	channels := make(map[string]struct{})
	finals := make([]float64, len(records))
	var finalSum, trustSum float64
	s.DateRangeStart = records[0].ScannedAt
	s.DateRangeEnd = records[0].ScannedAt

	for i, r := range records {
		channels[r.ChannelID] = struct{}{}
		if r.ScannedAt < s.DateRangeStart {
			s.DateRangeStart = r.ScannedAt
		}
		if r.ScannedAt > s.DateRangeEnd {
			s.DateRangeEnd = r.ScannedAt
		}
		finals[i] = float64(r.Result.FinalScore)
		finalSum += finals[i]
		trustSum += r.Result.TrustFactor
	}

	s.TotalChannels = len(channels)
	s.FinalMean = finalSum / float64(len(records))
	s.TrustMean = trustSum / float64(len(records))
	s.FinalMedian = median(finals)
	return s
}

var verdictOrder = []domain.Verdict{
	domain.VerdictExcellent,
	domain.VerdictGood,
	domain.VerdictMedium,
	domain.VerdictHighRisk,
	domain.VerdictScam,
}

var terminalOrder = []domain.Terminal{
	domain.TerminalVerdict,
	domain.TerminalConvictionOverride,
	domain.TerminalFatality,
	domain.TerminalInstantScam,
}

func verdictRows(records []*domain.ScoreRecord) []VerdictRow {
	counts := make(map[domain.Verdict]int)
	for _, r := range records {
		counts[r.Result.Verdict]++
	}
	rows := make([]VerdictRow, len(verdictOrder))
	for i, v := range verdictOrder {
		rows[i] = VerdictRow{Verdict: string(v), Count: counts[v], Share: share(counts[v], len(records))}
	}
	return rows
}

func terminalRows(records []*domain.ScoreRecord) []TerminalRow {
	counts := make(map[domain.Terminal]int)
	for _, r := range records {
		counts[r.Result.Terminal]++
	}
	rows := make([]TerminalRow, len(terminalOrder))
	for i, t := range terminalOrder {
		rows[i] = TerminalRow{Terminal: string(t), Count: counts[t], Share: share(counts[t], len(records))}
	}
	return rows
}

// penaltyRows lists only penalties that fired at least once.
func penaltyRows(counts map[domain.PenaltyKey]int, total int) []PenaltyRow {
	var rows []PenaltyRow
	for _, key := range domain.AllPenaltyKeys() {
		n := counts[key]
		if n == 0 {
			continue
		}
		rows = append(rows, PenaltyRow{Penalty: key.String(), Count: n, Share: share(n, total)})
	}
	return rows
}

// channelRows keeps the latest record per channel.
func channelRows(records []*domain.ScoreRecord) []ChannelRow {
	latest := make(map[string]*domain.ScoreRecord)
	for _, r := range records {
		if cur, ok := latest[r.ChannelID]; !ok || r.ScannedAt >= cur.ScannedAt {
			latest[r.ChannelID] = r
		}
	}

	rows := make([]ChannelRow, 0, len(latest))
	for _, r := range latest {
		rows = append(rows, ChannelRow{
			ChannelID:         r.ChannelID,
			SnapshotID:        r.SnapshotID,
			ScannedAt:         r.ScannedAt,
			RawScore:          r.Result.RawScore,
			TrustFactor:       r.Result.TrustFactor,
			FinalScore:        r.Result.FinalScore,
			Verdict:           string(r.Result.Verdict),
			Terminal:          string(r.Result.Terminal),
			ConvictionFactors: r.Result.ConvictionFactors,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].FinalScore != rows[j].FinalScore {
			return rows[i].FinalScore > rows[j].FinalScore
		}
		return rows[i].ChannelID < rows[j].ChannelID
	})
	return rows
}

// compareVersions pairs the latest history point of each channel present under both versions.
func (g *Generator) compareVersions(ctx context.Context, base, compare string) ([]VersionComparisonRow, error) {
	basePoints, err := g.historyStore.GetByVersion(ctx, base)
	if err != nil {
		return nil, err
	}
	comparePoints, err := g.historyStore.GetByVersion(ctx, compare)
	if err != nil {
		return nil, err
	}

	baseLatest := latestPoints(basePoints)
	compareLatest := latestPoints(comparePoints)

	var rows []VersionComparisonRow
	for channelID, b := range baseLatest {
		c, ok := compareLatest[channelID]
		if !ok {
			continue
		}
		rows = append(rows, VersionComparisonRow{
			ChannelID:      channelID,
			BaseFinal:      b.FinalScore,
			CompareFinal:   c.FinalScore,
			Delta:          c.FinalScore - b.FinalScore,
			BaseVerdict:    string(b.Verdict),
			CompareVerdict: string(c.Verdict),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].ChannelID < rows[j].ChannelID
	})
	return rows, nil
}

func latestPoints(points []*domain.ScoreHistoryPoint) map[string]*domain.ScoreHistoryPoint {
	latest := make(map[string]*domain.ScoreHistoryPoint)
	for _, p := range points {
		if cur, ok := latest[p.ChannelID]; !ok || p.ScannedAt >= cur.ScannedAt {
			latest[p.ChannelID] = p
		}
	}
	return latest
}

func share(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}

// median returns the median of values; values is reordered.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sort.Float64s(values)
	mid := len(values) / 2
	if len(values)%2 == 1 {
		return values[mid]
	}
	return (values[mid-1] + values[mid]) / 2
}
