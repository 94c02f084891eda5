package memory

import (
	"context"
	"errors"
	"testing"

	"token-board/internal/domain"
	"token-board/internal/storage"
)

func TestVoteEventStore_Latest(t *testing.T) {
	store := NewVoteEventStore()
	ctx := context.Background()

	events := []*domain.VoteEvent{
		{Symbol: "FOO", VoterID: "1.1.1.1", Timestamp: 3000},
		{Symbol: "FOO", VoterID: "1.1.1.1", Timestamp: 1000}, // older, appended later
		{Symbol: "FOO", VoterID: "2.2.2.2", Timestamp: 5000},
		{Symbol: "BAR", VoterID: "1.1.1.1", Timestamp: 9000},
	}
	for _, e := range events {
		if err := store.Append(ctx, e); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	got, err := store.Latest(ctx, "FOO", "1.1.1.1")
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if got.Timestamp != 3000 {
		t.Errorf("Latest timestamp: got %d, want 3000", got.Timestamp)
	}

	if _, err := store.Latest(ctx, "BAZ", "1.1.1.1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestVoteEventStore_Counts(t *testing.T) {
	store := NewVoteEventStore()
	ctx := context.Background()

	for _, e := range []*domain.VoteEvent{
		{Symbol: "FOO", VoterID: "a", Timestamp: 1000},
		{Symbol: "FOO", VoterID: "b", Timestamp: 2000},
		{Symbol: "FOO", VoterID: "c", Timestamp: 3000},
		{Symbol: "BAR", VoterID: "a", Timestamp: 2500},
	} {
		_ = store.Append(ctx, e)
	}

	n, err := store.CountBySymbol(ctx, "FOO", 2000, 3000)
	if err != nil {
		t.Fatalf("CountBySymbol failed: %v", err)
	}
	if n != 2 {
		t.Errorf("CountBySymbol: got %d, want 2", n)
	}

	all, err := store.CountAll(ctx, 2000, 3000)
	if err != nil {
		t.Fatalf("CountAll failed: %v", err)
	}
	if all["FOO"] != 2 || all["BAR"] != 1 {
		t.Errorf("CountAll: got %v", all)
	}
	if store.Len() != 4 {
		t.Errorf("Len: got %d, want 4", store.Len())
	}
}

func TestVoteEventStore_InvalidInput(t *testing.T) {
	store := NewVoteEventStore()
	ctx := context.Background()

	if err := store.Append(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil, got %v", err)
	}
	if err := store.Append(ctx, &domain.VoteEvent{Symbol: "FOO"}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty voter, got %v", err)
	}
}
