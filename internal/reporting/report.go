package reporting

import (
	"time"

	"token-board/internal/domain"
	"token-board/internal/ranking"
)

// Report is a leaderboard snapshot.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	SortedBy    ranking.SortKey

	// Summary
	Summary Summary

	// Rows in leaderboard order
	Rows []Row
}

// Summary holds board-wide totals.
type Summary struct {
	TotalTokens   int
	TotalVotes    int64
	TotalVotes24h int
	MeanRanking   float64
	OldestAt      int64 // Unix ms, 0 when the board is empty
	NewestAt      int64 // Unix ms, 0 when the board is empty
}

// Row is one leaderboard line.
type Row struct {
	Position  int
	Symbol    string
	Name      string
	Votes     int64
	Votes24h  int
	Ranking   float64
	CreatedAt int64
}

func rowFromView(pos int, v domain.TokenView) Row {
	return Row{
		Position:  pos,
		Symbol:    v.Symbol,
		Name:      v.Name,
		Votes:     v.Votes,
		Votes24h:  v.Votes24h,
		Ranking:   v.Ranking,
		CreatedAt: v.CreatedAt,
	}
}
