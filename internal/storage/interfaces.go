package storage

import (
	"context"

	"token-board/internal/domain"
)

// TokenStore provides access to approved tokens.
type TokenStore interface {
	// List returns all tokens in insertion order.
	List(ctx context.Context) ([]*domain.Token, error)

	// Get retrieves a token by symbol. Returns ErrNotFound if not exists.
	Get(ctx context.Context, symbol string) (*domain.Token, error)

	// Insert appends a new token. Returns ErrDuplicateKey if symbol exists.
	Insert(ctx context.Context, t *domain.Token) error

	// Update overwrites the token with the same symbol. Returns ErrNotFound if not exists.
	Update(ctx context.Context, t *domain.Token) error

	// Delete removes the token with the given symbol. Returns ErrNotFound if not exists.
	Delete(ctx context.Context, symbol string) error
}

// VoteEventStore provides access to the append-only vote ledger.
type VoteEventStore interface {
	// Append persists a new vote event before returning.
	Append(ctx context.Context, e *domain.VoteEvent) error

	// Latest returns the most recent event for (symbol, voterID). Returns ErrNotFound if none.
	Latest(ctx context.Context, symbol, voterID string) (*domain.VoteEvent, error)

	// CountBySymbol counts events for symbol with timestamp within [start, end] (inclusive).
	CountBySymbol(ctx context.Context, symbol string, start, end int64) (int, error)

	// CountAll counts events per symbol with timestamp within [start, end] (inclusive).
	CountAll(ctx context.Context, start, end int64) (map[string]int, error)
}
