// Package ranking derives read views of the board: admin scores and rolling
// 24h vote counts joined onto tokens.
package ranking

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"token-board/internal/domain"
)

// Score bounds.
const (
	MinScore = 0.0
	MaxScore = 100.0
)

// Clamp bounds a ranking score to [MinScore, MaxScore] and rounds it to one decimal.
func Clamp(v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: ranking must be a finite number", domain.ErrInvalidValue)
	}
	v = math.Max(MinScore, math.Min(MaxScore, v))
	return math.Round(v*10) / 10, nil
}

// ProjectForRead joins tokens with their 24h vote counts. Symbols missing from
// counts get zero. Order of tokens is preserved.
func ProjectForRead(tokens []*domain.Token, counts map[string]int) []domain.TokenView {
	views := make([]domain.TokenView, 0, len(tokens))
	for _, t := range tokens {
		if t == nil {
			continue
		}
		views = append(views, domain.TokenView{
			Token:    *t,
			Votes24h: counts[t.Symbol],
		})
	}
	return views
}

// SortKey selects the ordering of a leaderboard.
type SortKey string

const (
	SortNone      SortKey = ""
	SortVotes     SortKey = "votes"
	SortVotes24h  SortKey = "votes24h"
	SortRanking   SortKey = "ranking"
	SortCreatedAt SortKey = "createdAt"
)

// ParseSortKey validates a sort key. The empty key keeps insertion order.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(s); k {
	case SortNone, SortVotes, SortVotes24h, SortRanking, SortCreatedAt:
		return k, nil
	}
	return SortNone, fmt.Errorf("%w: unknown sort key %q", domain.ErrInvalidValue, s)
}

// Sort orders views descending by key. The sort is stable, so ties keep insertion order.
func Sort(views []domain.TokenView, key SortKey) {
	var less func(a, b domain.TokenView) bool
	switch key {
	case SortVotes:
		less = func(a, b domain.TokenView) bool { return a.Votes > b.Votes }
	case SortVotes24h:
		less = func(a, b domain.TokenView) bool { return a.Votes24h > b.Votes24h }
	case SortRanking:
		less = func(a, b domain.TokenView) bool { return a.Ranking > b.Ranking }
	case SortCreatedAt:
		less = func(a, b domain.TokenView) bool { return a.CreatedAt > b.CreatedAt }
	default:
		return
	}
	sort.SliceStable(views, func(i, j int) bool { return less(views[i], views[j]) })
}

// TokenLister lists tokens in insertion order.
type TokenLister interface {
	List(ctx context.Context) ([]*domain.Token, error)
}

// WindowCounter counts ledger events per symbol in the rolling window ending at now.
type WindowCounter interface {
	Counts24h(ctx context.Context, now time.Time) (map[string]int, error)
}

// Engine builds read views from the registry and the ledger.
type Engine struct {
	tokens TokenLister
	counts WindowCounter
}

// NewEngine creates an Engine.
func NewEngine(tokens TokenLister, counts WindowCounter) *Engine {
	return &Engine{tokens: tokens, counts: counts}
}

// Views returns all tokens with votes24h filled in, in insertion order.
func (e *Engine) Views(ctx context.Context, now time.Time) ([]domain.TokenView, error) {
	tokens, err := e.tokens.List(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := e.counts.Counts24h(ctx, now)
	if err != nil {
		return nil, err
	}
	return ProjectForRead(tokens, counts), nil
}
