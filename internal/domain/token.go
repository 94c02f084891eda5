package domain

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Reserved JSON keys of a token record. Everything else a client submits is
// kept in Token.Extra and written back unchanged.
const (
	fieldSymbol    = "symbol"
	fieldName      = "name"
	fieldVotes     = "votes"
	fieldRanking   = "ranking"
	fieldCreatedAt = "createdAt"
	fieldVotes24h  = "votes24h"
)

// Token is an approved token on the board.
// Corresponds to one element of tokens.json and to the tokens table in PostgreSQL.
type Token struct {
	Symbol    string  // unique key
	Name      string  // display name, required
	Votes     int64   // lifetime vote counter, >= 0
	Ranking   float64 // admin score in [0,100], 1 decimal
	CreatedAt int64   // Unix timestamp in milliseconds

	// Extra holds free-form submitted fields (logo, mint, links...).
	Extra map[string]json.RawMessage
}

// Clone returns a deep copy of the token.
func (t *Token) Clone() *Token {
	if t == nil {
		return nil
	}
	c := *t
	if t.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(t.Extra))
		for k, v := range t.Extra {
			c.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return &c
}

// fields flattens the token into a single JSON object map.
func (t Token) fields() (map[string]json.RawMessage, error) {
	m := make(map[string]json.RawMessage, len(t.Extra)+5)
	for k, v := range t.Extra {
		if isReserved(k) {
			continue
		}
		m[k] = v
	}

	values := map[string]any{
		fieldSymbol:    t.Symbol,
		fieldName:      t.Name,
		fieldVotes:     t.Votes,
		fieldRanking:   t.Ranking,
		fieldCreatedAt: t.CreatedAt,
	}
	for k, v := range values {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		m[k] = raw
	}
	return m, nil
}

// MarshalJSON writes reserved and free-form fields as one flat object.
func (t Token) MarshalJSON() ([]byte, error) {
	m, err := t.fields()
	if err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// UnmarshalJSON reads a flat token object. Reserved fields of the wrong type
// fall back to their zero value instead of failing the whole record.
func (t *Token) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return errors.New("token: null record")
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}

	*t = Token{}
	t.Symbol = rawString(m[fieldSymbol])
	t.Name = rawString(m[fieldName])
	t.CreatedAt = int64(rawNumber(m[fieldCreatedAt]))

	if v := rawNumber(m[fieldVotes]); v > 0 && v < 1<<63 {
		t.Votes = int64(v)
	}
	t.Ranking = rawNumber(m[fieldRanking])

	for k, v := range m {
		if isReserved(k) || k == fieldVotes24h {
			continue
		}
		if t.Extra == nil {
			t.Extra = make(map[string]json.RawMessage)
		}
		t.Extra[k] = v
	}
	return nil
}

// ExtraString returns a free-form field as a string, or "" when absent or not a string.
func (t *Token) ExtraString(key string) string {
	if t.Extra == nil {
		return ""
	}
	return rawString(t.Extra[key])
}

func isReserved(k string) bool {
	switch k {
	case fieldSymbol, fieldName, fieldVotes, fieldRanking, fieldCreatedAt:
		return true
	}
	return false
}

func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func rawNumber(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0
	}
	return f
}

// TokenView is a token joined with its rolling 24h vote count for reads.
// Votes24h is derived from the vote ledger and never persisted.
type TokenView struct {
	Token
	Votes24h int
}

// MarshalJSON writes the token fields plus votes24h.
func (v TokenView) MarshalJSON() ([]byte, error) {
	m, err := v.Token.fields()
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(v.Votes24h)
	if err != nil {
		return nil, err
	}
	m[fieldVotes24h] = raw
	return json.Marshal(m)
}
