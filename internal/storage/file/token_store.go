package file

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"token-board/internal/domain"
	"token-board/internal/storage"
)

// TokenStore implements storage.TokenStore on top of tokens.json.
type TokenStore struct {
	path   string
	logger *log.Logger

	// mu serializes whole-document rewrites.
	mu sync.Mutex
}

// NewTokenStore creates a TokenStore for the document at path.
func NewTokenStore(path string, logger *log.Logger) *TokenStore {
	return &TokenStore{path: path, logger: logger}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

// load reads every token record. A document that is not a JSON list reads as
// empty; elements that do not decode are kept as raw records.
func (s *TokenStore) load() ([]record[domain.Token], error) {
	items, ok, err := readList(s.path)
	if err != nil {
		return nil, readError(s.path, err)
	}
	if !ok {
		s.logger.Printf("%s is not a JSON list (using empty collection)", s.path)
		return nil, nil
	}

	records := make([]record[domain.Token], 0, len(items))
	for i, raw := range items {
		var t domain.Token
		if err := json.Unmarshal(raw, &t); err != nil {
			s.logger.Printf("%s: keeping undecodable record %d as is: %v", s.path, i, err)
			records = append(records, record[domain.Token]{raw: raw})
			continue
		}
		records = append(records, record[domain.Token]{raw: raw, value: &t})
	}
	return records, nil
}

func (s *TokenStore) save(records []record[domain.Token]) error {
	if records == nil {
		records = []record[domain.Token]{}
	}
	return writeJSON(s.path, records)
}

// List returns all tokens in document order.
func (s *TokenStore) List(_ context.Context) ([]*domain.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}
	tokens := make([]*domain.Token, 0, len(records))
	for _, r := range records {
		if r.value != nil {
			tokens = append(tokens, r.value)
		}
	}
	return tokens, nil
}

// Get retrieves the first token with symbol. Returns ErrNotFound if not exists.
func (s *TokenStore) Get(_ context.Context, symbol string) (*domain.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		if r.value != nil && r.value.Symbol == symbol {
			return r.value, nil
		}
	}
	return nil, storage.ErrNotFound
}

// Insert appends a token and rewrites the document. Returns ErrDuplicateKey if symbol exists.
func (s *TokenStore) Insert(_ context.Context, t *domain.Token) error {
	if t == nil || t.Symbol == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	for _, r := range records {
		if r.value != nil && r.value.Symbol == t.Symbol {
			return storage.ErrDuplicateKey
		}
	}
	return s.save(append(records, record[domain.Token]{value: t.Clone()}))
}

// Update overwrites the first token with the same symbol. Returns ErrNotFound if not exists.
func (s *TokenStore) Update(_ context.Context, t *domain.Token) error {
	if t == nil || t.Symbol == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	for i, r := range records {
		if r.value != nil && r.value.Symbol == t.Symbol {
			records[i] = record[domain.Token]{value: t.Clone()}
			return s.save(records)
		}
	}
	return storage.ErrNotFound
}

// Delete removes every token with symbol. Returns ErrNotFound when nothing was removed.
func (s *TokenStore) Delete(_ context.Context, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	kept := make([]record[domain.Token], 0, len(records))
	for _, r := range records {
		if r.value == nil || r.value.Symbol != symbol {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(records) {
		return storage.ErrNotFound
	}
	return s.save(kept)
}
