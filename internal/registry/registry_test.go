package registry

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-board/internal/domain"
	"token-board/internal/storage"
	"token-board/internal/storage/memory"
)

// validMint is the wrapped SOL mint address.
const validMint = "So11111111111111111111111111111111111111112"

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	return New(memory.NewTokenStore())
}

func submit(t *testing.T, r *Registry, symbol string) *domain.Token {
	t.Helper()
	tok, err := r.Submit(context.Background(), &Candidate{Symbol: symbol, Name: symbol + " token"}, time.UnixMilli(1000))
	require.NoError(t, err)
	return tok
}

func TestSubmit_Defaults(t *testing.T) {
	r := newRegistry(t)
	now := time.UnixMilli(1_700_000_000_123)

	c, err := ParseCandidate([]byte(`{"symbol":"FOO","name":"Foo","votes":99,"ranking":50,"logo":"x.png"}`))
	require.NoError(t, err)

	tok, err := r.Submit(context.Background(), c, now)
	require.NoError(t, err)
	assert.Equal(t, "FOO", tok.Symbol)
	assert.Equal(t, int64(0), tok.Votes)
	assert.Equal(t, 0.0, tok.Ranking)
	assert.Equal(t, now.UnixMilli(), tok.CreatedAt)
	assert.Equal(t, "x.png", tok.ExtraString("logo"))

	list, err := r.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "FOO", list[0].Symbol)
}

func TestSubmit_Rejections(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()

	tests := []struct {
		name string
		c    *Candidate
	}{
		{"nil", nil},
		{"missing name", &Candidate{Symbol: "FOO"}},
		{"blank name", &Candidate{Symbol: "FOO", Name: "  "}},
		{"missing symbol", &Candidate{Name: "Foo"}},
		{"bad mint", &Candidate{Symbol: "FOO", Name: "Foo", Extra: map[string]json.RawMessage{"mint": json.RawMessage(`"0OIl"`)}}},
		{"short mint", &Candidate{Symbol: "FOO", Name: "Foo", Extra: map[string]json.RawMessage{"mint": json.RawMessage(`"abc"`)}}},
		{"numeric mint", &Candidate{Symbol: "FOO", Name: "Foo", Extra: map[string]json.RawMessage{"mint": json.RawMessage(`123`)}}},
		{"object mint", &Candidate{Symbol: "FOO", Name: "Foo", Extra: map[string]json.RawMessage{"mint": json.RawMessage(`{"address":"x"}`)}}},
		{"null mint", &Candidate{Symbol: "FOO", Name: "Foo", Extra: map[string]json.RawMessage{"mint": json.RawMessage(`null`)}}},
		{"blank symbol", &Candidate{Symbol: " \t", Name: "Foo"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Submit(ctx, tt.c, time.Now())
			assert.ErrorIs(t, err, domain.ErrInvalidPayload)
		})
	}

	list, err := r.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSubmit_ValidMint(t *testing.T) {
	r := newRegistry(t)
	c := &Candidate{Symbol: "SOL", Name: "Wrapped SOL", Extra: map[string]json.RawMessage{"mint": json.RawMessage(`"` + validMint + `"`)}}

	tok, err := r.Submit(context.Background(), c, time.Now())
	require.NoError(t, err)
	assert.Equal(t, validMint, tok.ExtraString("mint"))
}

func TestSubmit_Duplicate(t *testing.T) {
	r := newRegistry(t)
	submit(t, r, "FOO")

	_, err := r.Submit(context.Background(), &Candidate{Symbol: "FOO", Name: "again"}, time.Now())
	assert.ErrorIs(t, err, domain.ErrDuplicateSymbol)
}

func TestSubmit_TrimsSymbol(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()

	tok, err := r.Submit(ctx, &Candidate{Symbol: "  BAR ", Name: "Bar"}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "BAR", tok.Symbol)

	got, err := r.Get(ctx, "BAR")
	require.NoError(t, err)
	assert.Equal(t, "BAR", got.Symbol)

	_, err = r.Submit(ctx, &Candidate{Symbol: "BAR\n", Name: "Bar again"}, time.Now())
	assert.ErrorIs(t, err, domain.ErrDuplicateSymbol)

	list, err := r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestParseCandidate_Invalid(t *testing.T) {
	_, err := ParseCandidate([]byte(`[1,2]`))
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)

	_, err = ParseCandidate([]byte(`null`))
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)
}

func TestRemove(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()
	submit(t, r, "FOO")
	submit(t, r, "BAR")

	require.NoError(t, r.Remove(ctx, "FOO"))

	list, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "BAR", list[0].Symbol)

	assert.ErrorIs(t, r.Remove(ctx, "FOO"), domain.ErrNotFound)
}

func TestIncrementVotes(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()
	submit(t, r, "FOO")

	tok, err := r.IncrementVotes(ctx, "FOO")
	require.NoError(t, err)
	assert.Equal(t, int64(1), tok.Votes)

	tok, err = r.IncrementVotes(ctx, "FOO")
	require.NoError(t, err)
	assert.Equal(t, int64(2), tok.Votes)

	_, err = r.IncrementVotes(ctx, "NOPE")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIncrementVotes_Concurrent(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()
	submit(t, r, "FOO")

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.IncrementVotes(ctx, "FOO")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	tok, err := r.Get(ctx, "FOO")
	require.NoError(t, err)
	assert.Equal(t, int64(n), tok.Votes)
}

func TestSetVotes(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()
	submit(t, r, "FOO")

	tok, err := r.SetVotes(ctx, "FOO", 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), tok.Votes)

	tok, err = r.SetVotes(ctx, "FOO", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), tok.Votes)

	for _, v := range []float64{-1, 1.5, math.NaN(), math.Inf(1), math.Pow(2, 63), 1e19} {
		_, err := r.SetVotes(ctx, "FOO", v)
		assert.ErrorIs(t, err, domain.ErrInvalidValue, "value %v", v)
	}

	got, err := r.Get(ctx, "FOO")
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Votes)

	// Largest float64 below 2^63 still fits
	largest := math.Nextafter(math.Pow(2, 63), 0)
	tok, err = r.SetVotes(ctx, "FOO", largest)
	require.NoError(t, err)
	assert.Equal(t, int64(largest), tok.Votes)
	assert.Greater(t, tok.Votes, int64(0))

	_, err = r.SetVotes(ctx, "NOPE", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSetRanking(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()
	submit(t, r, "FOO")

	tests := []struct {
		in   float64
		want float64
	}{
		{150, 100},
		{-5, 0},
		{33.26, 33.3},
	}
	for _, tt := range tests {
		tok, err := r.SetRanking(ctx, "FOO", tt.in)
		require.NoError(t, err)
		assert.InDelta(t, tt.want, tok.Ranking, 1e-9)

		stored, err := r.Get(ctx, "FOO")
		require.NoError(t, err)
		assert.InDelta(t, tt.want, stored.Ranking, 1e-9)
	}

	_, err := r.SetRanking(ctx, "FOO", math.NaN())
	assert.ErrorIs(t, err, domain.ErrInvalidValue)

	_, err = r.SetRanking(ctx, "NOPE", 10)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

type brokenStore struct {
	storage.TokenStore
}

func (brokenStore) List(context.Context) ([]*domain.Token, error) {
	return nil, errors.Join(storage.ErrUnavailable, errors.New("disk gone"))
}

func (brokenStore) Get(context.Context, string) (*domain.Token, error) {
	return &domain.Token{Symbol: "FOO", Name: "Foo"}, nil
}

func (brokenStore) Update(context.Context, *domain.Token) error {
	return storage.ErrUnavailable
}

func TestStorageFailure(t *testing.T) {
	r := New(brokenStore{})
	ctx := context.Background()

	_, err := r.List(ctx)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)

	_, err = r.IncrementVotes(ctx, "FOO")
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.ErrorIs(t, err, storage.ErrUnavailable)
}
