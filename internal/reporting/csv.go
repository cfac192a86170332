package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders channel rows as CSV string.
func RenderCSV(rows []ChannelRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("channel_id,snapshot_id,scanned_at,raw_score,trust_factor,")
	sb.WriteString("final_score,verdict,terminal,conviction_factors\n")

	// Rows
	for _, c := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%d,%.6f,%.6f,%d,%s,%s,%d\n",
			csvField(c.ChannelID),
			csvField(c.SnapshotID),
			c.ScannedAt,
			c.RawScore,
			c.TrustFactor,
			c.FinalScore,
			c.Verdict,
			c.Terminal,
			c.ConvictionFactors,
		))
	}

	return sb.String()
}

// csvField quotes a value containing a separator, quote or newline.
func csvField(s string) string {
	if !strings.ContainsAny(s, ",\"\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
