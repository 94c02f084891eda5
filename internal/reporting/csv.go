package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders leaderboard rows as CSV string.
func RenderCSV(rows []Row) string {
	var sb strings.Builder

	// Header
	sb.WriteString("position,symbol,name,votes,votes24h,ranking,created_at\n")

	// Rows
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%d,%s,%s,%d,%d,%.1f,%d\n",
			r.Position,
			csvField(r.Symbol),
			csvField(r.Name),
			r.Votes,
			r.Votes24h,
			r.Ranking,
			r.CreatedAt,
		))
	}

	return sb.String()
}

// csvField quotes values that contain separators, quotes or newlines.
func csvField(s string) string {
	if !strings.ContainsAny(s, ",\"\r\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
