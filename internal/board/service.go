// Package board wires the vote ledger, token registry and notification bus
// into the operation set served over HTTP.
//
// A vote flows: token lookup → ledger rate-limit check and append →
// counter increment → voteUpdate broadcast.
package board

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"token-board/internal/domain"
	"token-board/internal/ledger"
	"token-board/internal/notify"
	"token-board/internal/observability"
	"token-board/internal/ranking"
	"token-board/internal/registry"
	"token-board/internal/storage"
)

// Service is the token board.
type Service struct {
	registry  *registry.Registry
	ledger    *ledger.Ledger
	engine    *ranking.Engine
	publisher *notify.Publisher

	now    func() time.Time
	logger *log.Logger
}

// Options for creating Service.
type Options struct {
	// Required stores
	TokenStore     storage.TokenStore
	VoteEventStore storage.VoteEventStore

	// Publisher receives every voteUpdate. A new one is created when nil.
	Publisher *notify.Publisher

	// Ledger overrides the default 12h TTL / 24h window.
	Ledger *ledger.Config

	// Now is the clock. Defaults to time.Now.
	Now    func() time.Time
	Logger *log.Logger
}

// New creates a Service.
func New(opts Options) *Service {
	reg := registry.New(opts.TokenStore)
	led := ledger.New(opts.VoteEventStore, opts.Ledger)

	pub := opts.Publisher
	if pub == nil {
		pub = notify.NewPublisher()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stdout, "[board] ", log.LstdFlags|log.Lshortfile)
	}

	return &Service{
		registry:  reg,
		ledger:    led,
		engine:    ranking.NewEngine(reg, led),
		publisher: pub,
		now:       now,
		logger:    logger,
	}
}

// Publisher returns the bus updates are published on.
func (s *Service) Publisher() *notify.Publisher {
	return s.publisher
}

// List returns all tokens with votes24h, ordered by key (insertion order when empty).
func (s *Service) List(ctx context.Context, key ranking.SortKey) ([]domain.TokenView, error) {
	views, err := s.engine.Views(ctx, s.now())
	if err != nil {
		return nil, err
	}
	ranking.Sort(views, key)
	return views, nil
}

// Submit approves a new token.
func (s *Service) Submit(ctx context.Context, c *registry.Candidate) (*domain.Token, error) {
	t, err := s.registry.Submit(ctx, c, s.now())
	if err != nil {
		return nil, err
	}
	observability.RecordTokenSubmitted()
	s.logger.Printf("token approved: symbol=%s name=%q", t.Symbol, t.Name)
	return t, nil
}

// Remove deletes a token. Its ledger history is kept.
func (s *Service) Remove(ctx context.Context, symbol string) error {
	if err := s.registry.Remove(ctx, symbol); err != nil {
		return err
	}
	observability.RecordTokenRemoved()
	s.logger.Printf("token removed: symbol=%s", symbol)
	return nil
}

// CastVote records a vote by voterID for symbol and broadcasts the new count.
func (s *Service) CastVote(ctx context.Context, symbol, voterID string) (domain.VoteUpdate, error) {
	if _, err := s.registry.Get(ctx, symbol); err != nil {
		return domain.VoteUpdate{}, err
	}

	if _, err := s.ledger.RecordVoteAttempt(ctx, symbol, voterID, s.now()); err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			observability.RecordVoteRateLimited()
		}
		return domain.VoteUpdate{}, err
	}

	// The token may have been removed between lookup and increment; the
	// accepted event stays in the ledger either way.
	t, err := s.registry.IncrementVotes(ctx, symbol)
	if err != nil {
		return domain.VoteUpdate{}, err
	}

	update := domain.VoteUpdate{Symbol: t.Symbol, Votes: t.Votes}
	observability.RecordVoteAccepted(symbol)
	s.publish(update)
	return update, nil
}

// SetVotes overwrites the lifetime counter of symbol.
func (s *Service) SetVotes(ctx context.Context, symbol string, value float64) (*domain.Token, error) {
	t, err := s.registry.SetVotes(ctx, symbol, value)
	if err != nil {
		return nil, err
	}
	observability.RecordAdminOverride("votes")
	s.publish(domain.VoteUpdate{Symbol: t.Symbol, Votes: t.Votes})
	return t, nil
}

// SetRanking sets the admin score of symbol, clamped to [0,100].
func (s *Service) SetRanking(ctx context.Context, symbol string, value float64) (*domain.Token, error) {
	t, err := s.registry.SetRanking(ctx, symbol, value)
	if err != nil {
		return nil, err
	}
	observability.RecordAdminOverride("ranking")
	s.publish(domain.VoteUpdate{Symbol: t.Symbol, Votes: t.Votes})
	return t, nil
}

func (s *Service) publish(u domain.VoteUpdate) {
	observability.RecordBroadcast()
	s.publisher.Publish(u)
}
