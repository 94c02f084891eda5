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
	sb.WriteString("# Token Leaderboard\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sortedBy := string(r.SortedBy)
	if sortedBy == "" {
		sortedBy = "insertion order"
	}
	sb.WriteString(fmt.Sprintf("Sorted by: %s\n\n", sortedBy))

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Tokens | %d |\n", r.Summary.TotalTokens))
	sb.WriteString(fmt.Sprintf("| Lifetime Votes | %d |\n", r.Summary.TotalVotes))
	sb.WriteString(fmt.Sprintf("| Votes (24h) | %d |\n", r.Summary.TotalVotes24h))
	sb.WriteString(fmt.Sprintf("| Mean Ranking | %.1f |\n", r.Summary.MeanRanking))
	sb.WriteString(fmt.Sprintf("| Oldest Listing | %s |\n", formatMs(r.Summary.OldestAt)))
	sb.WriteString(fmt.Sprintf("| Newest Listing | %s |\n", formatMs(r.Summary.NewestAt)))
	sb.WriteString("\n")

	// Leaderboard
	sb.WriteString("## Leaderboard\n\n")
	if len(r.Rows) == 0 {
		sb.WriteString("No approved tokens.\n")
		return sb.String()
	}
	sb.WriteString("| # | Symbol | Name | Votes | Votes 24h | Ranking | Listed |\n")
	sb.WriteString("|---|--------|------|-------|-----------|---------|--------|\n")
	for _, row := range r.Rows {
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %d | %d | %.1f | %s |\n",
			row.Position,
			mdCell(row.Symbol),
			mdCell(row.Name),
			row.Votes,
			row.Votes24h,
			row.Ranking,
			formatMs(row.CreatedAt),
		))
	}

	return sb.String()
}

func formatMs(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

func mdCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
