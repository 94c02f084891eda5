package memory

import (
	"context"
	"sync"

	"token-board/internal/domain"
	"token-board/internal/storage"
)

// TokenStore is an in-memory implementation of storage.TokenStore.
type TokenStore struct {
	mu   sync.RWMutex
	data []*domain.Token // insertion order
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		data: make([]*domain.Token, 0),
	}
}

// List returns copies of all tokens in insertion order.
func (s *TokenStore) List(_ context.Context) ([]*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Token, 0, len(s.data))
	for _, t := range s.data {
		result = append(result, t.Clone())
	}
	return result, nil
}

// Get retrieves a token by symbol. Returns ErrNotFound if not exists.
func (s *TokenStore) Get(_ context.Context, symbol string) (*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(symbol)
	if i < 0 {
		return nil, storage.ErrNotFound
	}
	return s.data[i].Clone(), nil
}

// Insert appends a new token. Returns ErrDuplicateKey if symbol exists.
func (s *TokenStore) Insert(_ context.Context, t *domain.Token) error {
	if t == nil || t.Symbol == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(t.Symbol) >= 0 {
		return storage.ErrDuplicateKey
	}
	s.data = append(s.data, t.Clone())
	return nil
}

// Update overwrites the token with the same symbol. Returns ErrNotFound if not exists.
func (s *TokenStore) Update(_ context.Context, t *domain.Token) error {
	if t == nil || t.Symbol == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(t.Symbol)
	if i < 0 {
		return storage.ErrNotFound
	}
	s.data[i] = t.Clone()
	return nil
}

// Delete removes the token with the given symbol. Returns ErrNotFound if not exists.
func (s *TokenStore) Delete(_ context.Context, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(symbol)
	if i < 0 {
		return storage.ErrNotFound
	}
	s.data = append(s.data[:i], s.data[i+1:]...)
	return nil
}

// indexOf must be called with mu held.
func (s *TokenStore) indexOf(symbol string) int {
	for i, t := range s.data {
		if t.Symbol == symbol {
			return i
		}
	}
	return -1
}

// Verify interface compliance at compile time.
var _ storage.TokenStore = (*TokenStore)(nil)
