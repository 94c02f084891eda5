// Package ledger implements the vote ledger: an append-only log of accepted
// votes that decides per-voter rate limits and yields rolling vote counts.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"token-board/internal/domain"
	"token-board/internal/keylock"
	"token-board/internal/storage"
)

const (
	// DefaultTTL is the minimum interval between accepted votes of one voter for one symbol.
	DefaultTTL = 12 * time.Hour

	// DefaultWindow is the rolling window for recent vote counts.
	DefaultWindow = 24 * time.Hour

	hourMs = int64(time.Hour / time.Millisecond)
)

// Config configures ledger timing.
type Config struct {
	TTL    time.Duration
	Window time.Duration
}

// DefaultConfig returns the 12h TTL / 24h window configuration.
func DefaultConfig() Config {
	return Config{
		TTL:    DefaultTTL,
		Window: DefaultWindow,
	}
}

// Ledger records vote attempts against a storage.VoteEventStore.
type Ledger struct {
	events storage.VoteEventStore
	config Config
	locks  *keylock.Locker
}

// New creates a Ledger. A nil config uses DefaultConfig.
func New(events storage.VoteEventStore, config *Config) *Ledger {
	cfg := DefaultConfig()
	if config != nil {
		cfg = *config
	}
	return &Ledger{
		events: events,
		config: cfg,
		locks:  keylock.New(),
	}
}

// TTL returns the configured rate-limit interval.
func (l *Ledger) TTL() time.Duration {
	return l.config.TTL
}

// RecordVoteAttempt appends a vote by voterID for symbol at now unless the
// voter's previous vote for the same symbol is younger than the TTL, in which
// case a *domain.RateLimitError carrying the remaining whole hours (rounded up)
// is returned. Attempts for the same (voterID, symbol) are serialized; the
// event is persisted before the call returns.
func (l *Ledger) RecordVoteAttempt(ctx context.Context, symbol, voterID string, now time.Time) (*domain.VoteEvent, error) {
	if symbol == "" || voterID == "" {
		return nil, domain.ErrInvalidPayload
	}

	unlock := l.locks.Lock(keylock.Key(voterID, symbol))
	defer unlock()

	nowMs := now.UnixMilli()
	ttlMs := l.config.TTL.Milliseconds()

	last, err := l.events.Latest(ctx, symbol, voterID)
	switch {
	case err == nil:
		if elapsed := nowMs - last.Timestamp; elapsed < ttlMs {
			remaining := ttlMs - elapsed
			return nil, &domain.RateLimitError{
				Symbol:         symbol,
				HoursRemaining: int((remaining + hourMs - 1) / hourMs),
			}
		}
	case errors.Is(err, storage.ErrNotFound):
		// first vote for this pair
	default:
		return nil, fmt.Errorf("%w: latest vote: %w", domain.ErrStorageUnavailable, err)
	}

	e := &domain.VoteEvent{
		Symbol:    symbol,
		VoterID:   voterID,
		Timestamp: nowMs,
	}
	if err := l.events.Append(ctx, e); err != nil {
		return nil, fmt.Errorf("%w: append vote: %w", domain.ErrStorageUnavailable, err)
	}
	return e, nil
}

// Count24h counts events for symbol with timestamp in [now-window, now].
func (l *Ledger) Count24h(ctx context.Context, symbol string, now time.Time) (int, error) {
	start, end := l.bounds(now)
	n, err := l.events.CountBySymbol(ctx, symbol, start, end)
	if err != nil {
		return 0, fmt.Errorf("%w: count votes: %w", domain.ErrStorageUnavailable, err)
	}
	return n, nil
}

// Counts24h counts events per symbol with timestamp in [now-window, now].
func (l *Ledger) Counts24h(ctx context.Context, now time.Time) (map[string]int, error) {
	start, end := l.bounds(now)
	counts, err := l.events.CountAll(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: count votes: %w", domain.ErrStorageUnavailable, err)
	}
	return counts, nil
}

func (l *Ledger) bounds(now time.Time) (int64, int64) {
	end := now.UnixMilli()
	return end - l.config.Window.Milliseconds(), end
}
