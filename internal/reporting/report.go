package reporting

import "time"

// Report summarises stored score records of one config version.
type Report struct {
	// Metadata
	GeneratedAt    time.Time
	ConfigVersion  string
	CompareVersion string // empty when no version comparison was requested

	Summary DataSummary

	// Distributions (sorted best verdict first, penalties in canonical key order)
	Verdicts  []VerdictRow
	Terminals []TerminalRow
	Penalties []PenaltyRow

	// Latest record per channel, sorted by final score DESC, channel_id ASC
	Channels []ChannelRow

	// Latest history point per channel under both versions, sorted by channel_id
	VersionComparison []VersionComparisonRow
}

// DataSummary contains data description.
type DataSummary struct {
	TotalRecords   int
	TotalChannels  int
	DateRangeStart int64 // Unix ms
	DateRangeEnd   int64 // Unix ms
	FinalMean      float64
	FinalMedian    float64
	TrustMean      float64
}

// VerdictRow counts records by verdict.
type VerdictRow struct {
	Verdict string
	Count   int
	Share   float64 // Count / TotalRecords, 0 for an empty report
}

// TerminalRow counts records by terminal state.
type TerminalRow struct {
	Terminal string
	Count    int
	Share    float64
}

// PenaltyRow counts records carrying a trust penalty.
type PenaltyRow struct {
	Penalty string
	Count   int
	Share   float64
}

// ChannelRow is the latest score of one channel.
type ChannelRow struct {
	ChannelID         string
	SnapshotID        string
	ScannedAt         int64
	RawScore          float64
	TrustFactor       float64
	FinalScore        int
	Verdict           string
	Terminal          string
	ConvictionFactors int
}

// VersionComparisonRow compares a channel's latest score under two versions.
type VersionComparisonRow struct {
	ChannelID      string
	BaseFinal      int
	CompareFinal   int
	Delta          int // CompareFinal - BaseFinal
	BaseVerdict    string
	CompareVerdict string
}
