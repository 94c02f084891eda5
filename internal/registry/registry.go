// Package registry owns approved tokens: submission, removal and the
// counters and scores attached to each symbol.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"token-board/internal/domain"
	"token-board/internal/keylock"
	"token-board/internal/ranking"
	"token-board/internal/storage"
)

// Registry applies token mutations through a storage.TokenStore.
// Mutations of the same symbol are serialized.
type Registry struct {
	store storage.TokenStore
	locks *keylock.Locker
}

// New creates a Registry.
func New(store storage.TokenStore) *Registry {
	return &Registry{
		store: store,
		locks: keylock.New(),
	}
}

// Candidate is a submitted token before approval.
type Candidate struct {
	Symbol string
	Name   string
	Extra  map[string]json.RawMessage
}

// ParseCandidate decodes a submission body. Reserved counters in the body are ignored.
func ParseCandidate(body []byte) (*Candidate, error) {
	var t domain.Token
	if err := json.Unmarshal(body, &t); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	return &Candidate{Symbol: t.Symbol, Name: t.Name, Extra: t.Extra}, nil
}

// List returns all tokens in insertion order.
func (r *Registry) List(ctx context.Context) ([]*domain.Token, error) {
	tokens, err := r.store.List(ctx)
	if err != nil {
		return nil, wrapStorage("list tokens", err)
	}
	return tokens, nil
}

// Get returns the token with symbol.
func (r *Registry) Get(ctx context.Context, symbol string) (*domain.Token, error) {
	t, err := r.store.Get(ctx, symbol)
	if err != nil {
		return nil, wrapStorage("get token", err)
	}
	return t, nil
}

// Submit approves a candidate: createdAt=now, votes=0, ranking=0.
func (r *Registry) Submit(ctx context.Context, c *Candidate, now time.Time) (*domain.Token, error) {
	if c == nil || strings.TrimSpace(c.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidPayload)
	}
	symbol := strings.TrimSpace(c.Symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", domain.ErrInvalidPayload)
	}

	t := &domain.Token{
		Symbol:    symbol,
		Name:      c.Name,
		CreatedAt: now.UnixMilli(),
		Extra:     c.Extra,
	}
	if raw, ok := t.Extra["mint"]; ok {
		var mint string
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) || json.Unmarshal(raw, &mint) != nil {
			return nil, fmt.Errorf("%w: mint must be a string", domain.ErrInvalidPayload)
		}
		if mint != "" {
			if err := domain.ValidateMint(mint); err != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
			}
		}
	}

	unlock := r.locks.Lock(t.Symbol)
	defer unlock()

	if err := r.store.Insert(ctx, t); err != nil {
		return nil, wrapStorage("insert token", err)
	}
	return t.Clone(), nil
}

// Remove deletes the token with symbol.
func (r *Registry) Remove(ctx context.Context, symbol string) error {
	unlock := r.locks.Lock(symbol)
	defer unlock()

	if err := r.store.Delete(ctx, symbol); err != nil {
		return wrapStorage("delete token", err)
	}
	return nil
}

// IncrementVotes adds one to the lifetime vote counter.
func (r *Registry) IncrementVotes(ctx context.Context, symbol string) (*domain.Token, error) {
	return r.mutate(ctx, symbol, func(t *domain.Token) {
		t.Votes++
	})
}

// SetVotes overwrites the vote counter. value must be a finite, non-negative integer.
// The counter is deliberately decoupled from the ledger afterwards.
func (r *Registry) SetVotes(ctx context.Context, symbol string, value float64) (*domain.Token, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 || value != math.Trunc(value) || value >= math.MaxInt64 {
		return nil, fmt.Errorf("%w: votes must be a non-negative integer", domain.ErrInvalidValue)
	}
	return r.mutate(ctx, symbol, func(t *domain.Token) {
		t.Votes = int64(value)
	})
}

// SetRanking clamps value to [0,100], rounds it to one decimal and stores it.
func (r *Registry) SetRanking(ctx context.Context, symbol string, value float64) (*domain.Token, error) {
	score, err := ranking.Clamp(value)
	if err != nil {
		return nil, err
	}
	return r.mutate(ctx, symbol, func(t *domain.Token) {
		t.Ranking = score
	})
}

func (r *Registry) mutate(ctx context.Context, symbol string, apply func(*domain.Token)) (*domain.Token, error) {
	unlock := r.locks.Lock(symbol)
	defer unlock()

	t, err := r.store.Get(ctx, symbol)
	if err != nil {
		return nil, wrapStorage("get token", err)
	}
	apply(t)
	if err := r.store.Update(ctx, t); err != nil {
		return nil, wrapStorage("update token", err)
	}
	return t, nil
}

// wrapStorage maps storage errors onto board error kinds.
func wrapStorage(op string, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return domain.ErrNotFound
	case errors.Is(err, storage.ErrDuplicateKey):
		return domain.ErrDuplicateSymbol
	case errors.Is(err, storage.ErrInvalidInput):
		return fmt.Errorf("%w: %s", domain.ErrInvalidPayload, op)
	default:
		return fmt.Errorf("%w: %s: %w", domain.ErrStorageUnavailable, op, err)
	}
}
