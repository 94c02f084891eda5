package memory

import (
	"context"
	"sync"

	"token-board/internal/domain"
	"token-board/internal/storage"
)

// voteKey is the (symbol, voter) pair used for rate limiting.
type voteKey struct {
	Symbol  string
	VoterID string
}

// VoteEventStore is an in-memory implementation of storage.VoteEventStore.
type VoteEventStore struct {
	mu     sync.RWMutex
	data   []*domain.VoteEvent
	latest map[voteKey]*domain.VoteEvent
}

// NewVoteEventStore creates a new in-memory vote event store.
func NewVoteEventStore() *VoteEventStore {
	return &VoteEventStore{
		data:   make([]*domain.VoteEvent, 0),
		latest: make(map[voteKey]*domain.VoteEvent),
	}
}

// Append adds a vote event.
func (s *VoteEventStore) Append(_ context.Context, e *domain.VoteEvent) error {
	if e == nil || e.Symbol == "" || e.VoterID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	eventCopy := *e
	s.data = append(s.data, &eventCopy)

	key := voteKey{Symbol: e.Symbol, VoterID: e.VoterID}
	if prev, ok := s.latest[key]; !ok || eventCopy.Timestamp >= prev.Timestamp {
		s.latest[key] = &eventCopy
	}
	return nil
}

// Latest returns the most recent event for (symbol, voterID). Returns ErrNotFound if none.
func (s *VoteEventStore) Latest(_ context.Context, symbol, voterID string) (*domain.VoteEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.latest[voteKey{Symbol: symbol, VoterID: voterID}]
	if !ok {
		return nil, storage.ErrNotFound
	}
	eventCopy := *e
	return &eventCopy, nil
}

// CountBySymbol counts events for symbol within [start, end] (inclusive).
func (s *VoteEventStore) CountBySymbol(_ context.Context, symbol string, start, end int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, e := range s.data {
		if e.Symbol == symbol && e.Timestamp >= start && e.Timestamp <= end {
			n++
		}
	}
	return n, nil
}

// CountAll counts events per symbol within [start, end] (inclusive).
func (s *VoteEventStore) CountAll(_ context.Context, start, end int64) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, e := range s.data {
		if e.Timestamp >= start && e.Timestamp <= end {
			counts[e.Symbol]++
		}
	}
	return counts, nil
}

// Len returns the number of stored events.
func (s *VoteEventStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Verify interface compliance at compile time.
var _ storage.VoteEventStore = (*VoteEventStore)(nil)
