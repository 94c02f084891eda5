package clickhouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"token-board/internal/domain"
	"token-board/internal/storage"
)

// VoteEventStore implements storage.VoteEventStore using ClickHouse.
// MergeTree has no uniqueness; every Append is a new row.
type VoteEventStore struct {
	conn *Conn
}

// NewVoteEventStore creates a new VoteEventStore.
func NewVoteEventStore(conn *Conn) *VoteEventStore {
	return &VoteEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.VoteEventStore = (*VoteEventStore)(nil)

// Append adds an event to the ledger.
func (s *VoteEventStore) Append(ctx context.Context, e *domain.VoteEvent) (err error) {
	if e == nil || e.Symbol == "" || e.VoterID == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("vote_append", start, err) }(time.Now())

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO vote_events (symbol, voter_id, timestamp_ms)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	if err := batch.Append(e.Symbol, e.VoterID, e.Timestamp); err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// Latest returns the most recent event for (symbol, voterID). Returns ErrNotFound if none.
func (s *VoteEventStore) Latest(ctx context.Context, symbol, voterID string) (_ *domain.VoteEvent, err error) {
	defer func(start time.Time) { observe("vote_latest", start, err) }(time.Now())

	var e domain.VoteEvent
	err = s.conn.QueryRow(ctx, `
		SELECT symbol, voter_id, timestamp_ms
		FROM vote_events
		WHERE symbol = ? AND voter_id = ?
		ORDER BY timestamp_ms DESC
		LIMIT 1
	`, symbol, voterID).Scan(&e.Symbol, &e.VoterID, &e.Timestamp)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("query latest vote: %w", err)
	}
	return &e, nil
}

// CountBySymbol counts events for symbol with timestamp in [start, end].
func (s *VoteEventStore) CountBySymbol(ctx context.Context, symbol string, start, end int64) (_ int, err error) {
	defer func(t time.Time) { observe("vote_count", t, err) }(time.Now())

	var n uint64
	err = s.conn.QueryRow(ctx, `
		SELECT count()
		FROM vote_events
		WHERE symbol = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
	`, symbol, start, end).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count votes: %w", err)
	}
	return int(n), nil
}

// CountAll counts events per symbol with timestamp in [start, end].
func (s *VoteEventStore) CountAll(ctx context.Context, start, end int64) (_ map[string]int, err error) {
	defer func(t time.Time) { observe("vote_count_all", t, err) }(time.Now())

	rows, err := s.conn.Query(ctx, `
		SELECT symbol, count()
		FROM vote_events
		WHERE timestamp_ms >= ? AND timestamp_ms <= ?
		GROUP BY symbol
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("count votes by symbol: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			symbol string
			n      uint64
		)
		if err := rows.Scan(&symbol, &n); err != nil {
			return nil, fmt.Errorf("scan vote count: %w", err)
		}
		counts[symbol] = int(n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vote counts: %w", err)
	}
	return counts, nil
}
