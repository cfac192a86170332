package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Channel Score Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Config version: %s\n\n", r.ConfigVersion))

	// Data Summary
	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Records | %d |\n", r.Summary.TotalRecords))
	sb.WriteString(fmt.Sprintf("| Channels | %d |\n", r.Summary.TotalChannels))
	sb.WriteString(fmt.Sprintf("| Date Range Start (ms) | %d |\n", r.Summary.DateRangeStart))
	sb.WriteString(fmt.Sprintf("| Date Range End (ms) | %d |\n", r.Summary.DateRangeEnd))
	sb.WriteString(fmt.Sprintf("| Final Score Mean | %.2f |\n", r.Summary.FinalMean))
	sb.WriteString(fmt.Sprintf("| Final Score Median | %.2f |\n", r.Summary.FinalMedian))
	sb.WriteString(fmt.Sprintf("| Trust Factor Mean | %.4f |\n", r.Summary.TrustMean))
	sb.WriteString("\n")

	// Verdicts
	sb.WriteString("## Verdict Distribution\n\n")
	sb.WriteString("| Verdict | Count | Share |\n")
	sb.WriteString("|---------|-------|-------|\n")
	for _, v := range r.Verdicts {
		sb.WriteString(fmt.Sprintf("| %s | %d | %.2f%% |\n", v.Verdict, v.Count, v.Share*100))
	}
	sb.WriteString("\n")

	// Terminals
	sb.WriteString("## Terminal States\n\n")
	sb.WriteString("| Terminal | Count | Share |\n")
	sb.WriteString("|----------|-------|-------|\n")
	for _, t := range r.Terminals {
		sb.WriteString(fmt.Sprintf("| %s | %d | %.2f%% |\n", t.Terminal, t.Count, t.Share*100))
	}
	sb.WriteString("\n")

	// Penalties
	sb.WriteString("## Trust Penalties\n\n")
	if len(r.Penalties) > 0 {
		sb.WriteString("| Penalty | Records | Share |\n")
		sb.WriteString("|---------|---------|-------|\n")
		for _, p := range r.Penalties {
			sb.WriteString(fmt.Sprintf("| %s | %d | %.2f%% |\n", p.Penalty, p.Count, p.Share*100))
		}
	} else {
		sb.WriteString("No trust penalties applied.\n")
	}
	sb.WriteString("\n")

	// Channels
	sb.WriteString("## Channels\n\n")
	if len(r.Channels) > 0 {
		sb.WriteString("| Channel | Snapshot | Raw | Trust | Final | Verdict | Terminal | Factors |\n")
		sb.WriteString("|---------|----------|-----|-------|-------|---------|----------|---------|\n")
		for _, c := range r.Channels {
			sb.WriteString(fmt.Sprintf("| %s | %s | %.2f | %.4f | %d | %s | %s | %d |\n",
				c.ChannelID, c.SnapshotID, c.RawScore, c.TrustFactor,
				c.FinalScore, c.Verdict, c.Terminal, c.ConvictionFactors))
		}
	} else {
		sb.WriteString("No score records available.\n")
	}
	sb.WriteString("\n")

	// Version comparison
	if r.CompareVersion != "" {
		sb.WriteString(fmt.Sprintf("## %s vs %s\n\n", r.ConfigVersion, r.CompareVersion))
		if len(r.VersionComparison) > 0 {
			sb.WriteString("| Channel | Base Final | Compare Final | Delta | Base Verdict | Compare Verdict |\n")
			sb.WriteString("|---------|------------|---------------|-------|--------------|-----------------|\n")
			for _, c := range r.VersionComparison {
				sb.WriteString(fmt.Sprintf("| %s | %d | %d | %+d | %s | %s |\n",
					c.ChannelID, c.BaseFinal, c.CompareFinal, c.Delta, c.BaseVerdict, c.CompareVerdict))
			}
		} else {
			sb.WriteString("No channels scored under both versions.\n")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
