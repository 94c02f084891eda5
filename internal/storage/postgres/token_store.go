package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"token-board/internal/domain"
	"token-board/internal/storage"
)

// TokenStore implements storage.TokenStore using PostgreSQL.
// Insertion order is the serial id.
type TokenStore struct {
	pool *Pool
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

// List returns all tokens ordered by insertion.
func (s *TokenStore) List(ctx context.Context) (_ []*domain.Token, err error) {
	defer func(start time.Time) { observe("token_list", start, err) }(time.Now())

	rows, err := s.pool.Query(ctx, `
		SELECT symbol, name, votes, ranking, created_at, extra
		FROM tokens
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query tokens: %w", err)
	}
	defer rows.Close()

	tokens := make([]*domain.Token, 0)
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tokens: %w", err)
	}
	return tokens, nil
}

// Get retrieves a token by symbol. Returns ErrNotFound if not exists.
func (s *TokenStore) Get(ctx context.Context, symbol string) (_ *domain.Token, err error) {
	defer func(start time.Time) { observe("token_get", start, err) }(time.Now())

	row := s.pool.QueryRow(ctx, `
		SELECT symbol, name, votes, ranking, created_at, extra
		FROM tokens
		WHERE symbol = $1
	`, symbol)

	t, err := scanToken(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

// Insert adds a new token. Returns ErrDuplicateKey if symbol exists.
func (s *TokenStore) Insert(ctx context.Context, t *domain.Token) (err error) {
	if t == nil || t.Symbol == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("token_insert", start, err) }(time.Now())

	extra, err := encodeExtra(t.Extra)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO tokens (symbol, name, votes, ranking, created_at, extra)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, t.Symbol, t.Name, t.Votes, t.Ranking, t.CreatedAt, extra)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

// Update overwrites the token with the same symbol. Returns ErrNotFound if not exists.
func (s *TokenStore) Update(ctx context.Context, t *domain.Token) (err error) {
	if t == nil || t.Symbol == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("token_update", start, err) }(time.Now())

	extra, err := encodeExtra(t.Extra)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE tokens
		SET name = $2, votes = $3, ranking = $4, created_at = $5, extra = $6
		WHERE symbol = $1
	`, t.Symbol, t.Name, t.Votes, t.Ranking, t.CreatedAt, extra)
	if err != nil {
		return fmt.Errorf("update token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes the token with the given symbol. Returns ErrNotFound if not exists.
func (s *TokenStore) Delete(ctx context.Context, symbol string) (err error) {
	defer func(start time.Time) { observe("token_delete", start, err) }(time.Now())

	tag, err := s.pool.Exec(ctx, `DELETE FROM tokens WHERE symbol = $1`, symbol)
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanToken(row rowScanner) (*domain.Token, error) {
	var (
		t     domain.Token
		extra []byte
	)
	if err := row.Scan(&t.Symbol, &t.Name, &t.Votes, &t.Ranking, &t.CreatedAt, &extra); err != nil {
		if isNotFoundError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("scan token: %w", err)
	}
	if len(extra) > 0 {
		var m map[string]json.RawMessage
		if err := json.Unmarshal(extra, &m); err != nil {
			return nil, fmt.Errorf("decode token extra: %w", err)
		}
		if len(m) > 0 {
			t.Extra = m
		}
	}
	return &t, nil
}

func encodeExtra(extra map[string]json.RawMessage) ([]byte, error) {
	if len(extra) == 0 {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(extra)
	if err != nil {
		return nil, fmt.Errorf("encode token extra: %w", err)
	}
	return b, nil
}
