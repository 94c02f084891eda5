package domain

import (
	"encoding/json"
	"errors"
	"math"
)

// VoteEvent is one accepted vote in the ledger. Immutable once appended.
// Corresponds to one element of votes.json and to the vote_events table.
type VoteEvent struct {
	Symbol    string `json:"symbol"`
	VoterID   string `json:"voterId"`   // client IP
	Timestamp int64  `json:"timestamp"` // Unix timestamp in milliseconds
}

// UnmarshalJSON reads a ledger record. The timestamp may be written in any
// JSON number form (1.5e12) but must be an integral number of milliseconds.
func (e *VoteEvent) UnmarshalJSON(data []byte) error {
	var rec struct {
		Symbol    string   `json:"symbol"`
		VoterID   string   `json:"voterId"`
		Timestamp *float64 `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	if rec.Timestamp == nil {
		return errors.New("vote event: missing timestamp")
	}
	ts := *rec.Timestamp
	if ts != math.Trunc(ts) || math.Abs(ts) >= 1<<63 {
		return errors.New("vote event: timestamp is not an integral millisecond value")
	}

	*e = VoteEvent{
		Symbol:    rec.Symbol,
		VoterID:   rec.VoterID,
		Timestamp: int64(ts),
	}
	return nil
}

// VoteUpdate is broadcast to observers after any votes-affecting mutation.
type VoteUpdate struct {
	Symbol string `json:"symbol"`
	Votes  int64  `json:"votes"`
}

// VoteUpdateEvent is the event name observers listen for.
const VoteUpdateEvent = "voteUpdate"
