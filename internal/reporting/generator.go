package reporting

import (
	"context"
	"time"

	"token-board/internal/domain"
	"token-board/internal/ranking"
)

// Source yields read views in the requested order.
type Source interface {
	List(ctx context.Context, key ranking.SortKey) ([]domain.TokenView, error)
}

// Generator produces leaderboard reports.
type Generator struct {
	source Source
	now    func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(source Source) *Generator {
	return &Generator{
		source: source,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a report sorted by key. SortNone keeps insertion order.
// A limit > 0 truncates the rows; the summary always covers the whole board.
func (g *Generator) Generate(ctx context.Context, key ranking.SortKey, limit int) (*Report, error) {
	views, err := g.source.List(ctx, key)
	if err != nil {
		return nil, err
	}

	r := &Report{
		GeneratedAt: g.now(),
		SortedBy:    key,
		Summary:     summarize(views),
	}

	n := len(views)
	if limit > 0 && limit < n {
		n = limit
	}
	r.Rows = make([]Row, 0, n)
	for i := 0; i < n; i++ {
		r.Rows = append(r.Rows, rowFromView(i+1, views[i]))
	}
	return r, nil
}

func summarize(views []domain.TokenView) Summary {
	s := Summary{TotalTokens: len(views)}
	if len(views) == 0 {
		return s
	}

	var rankingSum float64
	s.OldestAt = views[0].CreatedAt
	s.NewestAt = views[0].CreatedAt
	for _, v := range views {
		s.TotalVotes += v.Votes
		s.TotalVotes24h += v.Votes24h
		rankingSum += v.Ranking
		if v.CreatedAt < s.OldestAt {
			s.OldestAt = v.CreatedAt
		}
		if v.CreatedAt > s.NewestAt {
			s.NewestAt = v.CreatedAt
		}
	}
	s.MeanRanking = rankingSum / float64(len(views))
	return s
}
