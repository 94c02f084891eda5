package file

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"token-board/internal/domain"
	"token-board/internal/storage"
)

// VoteEventStore implements storage.VoteEventStore on top of votes.json.
// Every Append rewrites the full ledger before returning.
type VoteEventStore struct {
	path   string
	logger *log.Logger

	// mu serializes whole-document rewrites.
	mu sync.Mutex
}

// NewVoteEventStore creates a VoteEventStore for the document at path.
func NewVoteEventStore(path string, logger *log.Logger) *VoteEventStore {
	return &VoteEventStore{path: path, logger: logger}
}

// Compile-time interface check.
var _ storage.VoteEventStore = (*VoteEventStore)(nil)

// load reads the ledger. A document that is not a JSON list is replaced by
// an empty list. Elements that do not decode to an event are kept as raw
// records and ignored by queries. Must be called with mu held.
func (s *VoteEventStore) load() ([]record[domain.VoteEvent], error) {
	items, ok, err := readList(s.path)
	if err != nil {
		return nil, readError(s.path, err)
	}
	if !ok {
		s.logger.Printf("%s is not a JSON list, resetting ledger", s.path)
		if err := writeJSON(s.path, []*domain.VoteEvent{}); err != nil {
			return nil, err
		}
		return nil, nil
	}

	records := make([]record[domain.VoteEvent], 0, len(items))
	for i, raw := range items {
		var e domain.VoteEvent
		if err := json.Unmarshal(raw, &e); err != nil || e.Symbol == "" {
			s.logger.Printf("%s: record %d is not a vote event, keeping it as is", s.path, i)
			records = append(records, record[domain.VoteEvent]{raw: raw})
			continue
		}
		records = append(records, record[domain.VoteEvent]{raw: raw, value: &e})
	}
	return records, nil
}

// decodedEvents returns the decoded events of records.
func decodedEvents(records []record[domain.VoteEvent]) []*domain.VoteEvent {
	out := make([]*domain.VoteEvent, 0, len(records))
	for _, r := range records {
		if r.value != nil {
			out = append(out, r.value)
		}
	}
	return out
}

// Append adds the event and persists the whole ledger.
func (s *VoteEventStore) Append(_ context.Context, e *domain.VoteEvent) error {
	if e == nil || e.Symbol == "" || e.VoterID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	eventCopy := *e
	records = append(records, record[domain.VoteEvent]{value: &eventCopy})
	return writeJSON(s.path, records)
}

// Latest returns the event with the greatest timestamp for (symbol, voterID).
func (s *VoteEventStore) Latest(_ context.Context, symbol, voterID string) (*domain.VoteEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}

	var latest *domain.VoteEvent
	for _, e := range decodedEvents(records) {
		if e.Symbol != symbol || e.VoterID != voterID {
			continue
		}
		if latest == nil || e.Timestamp > latest.Timestamp {
			latest = e
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}
	return latest, nil
}

// CountBySymbol counts events for symbol within [start, end] (inclusive).
func (s *VoteEventStore) CountBySymbol(_ context.Context, symbol string, start, end int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return 0, err
	}

	n := 0
	for _, e := range decodedEvents(records) {
		if e.Symbol == symbol && e.Timestamp >= start && e.Timestamp <= end {
			n++
		}
	}
	return n, nil
}

// CountAll counts events per symbol within [start, end] (inclusive).
func (s *VoteEventStore) CountAll(_ context.Context, start, end int64) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, e := range decodedEvents(records) {
		if e.Timestamp >= start && e.Timestamp <= end {
			counts[e.Symbol]++
		}
	}
	return counts, nil
}
