package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"token-board/internal/domain"
	"token-board/internal/ranking"
	"token-board/internal/registry"
)

// listTokens returns every approved token with its 24h vote count.
// GET /api/approved[?sort=votes|votes24h|ranking|createdAt]
func (s *Server) listTokens(w http.ResponseWriter, r *http.Request) {
	key, err := ranking.ParseSortKey(r.URL.Query().Get("sort"))
	if err != nil {
		s.fail(w, err)
		return
	}

	views, err := s.board.List(r.Context(), key)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// submitToken approves a new token.
// POST /api/approved
func (s *Server) submitToken(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		s.fail(w, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err))
		return
	}

	c, err := registry.ParseCandidate(body)
	if err != nil {
		s.fail(w, err)
		return
	}

	t, err := s.board.Submit(r.Context(), c)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// removeToken deletes a token.
// DELETE /api/approved/{symbol}
func (s *Server) removeToken(w http.ResponseWriter, r *http.Request) {
	if err := s.board.Remove(r.Context(), chi.URLParam(r, "symbol")); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// castVote records a vote from the client IP.
// PUT /api/approved/{symbol}/vote
func (s *Server) castVote(w http.ResponseWriter, r *http.Request) {
	update, err := s.board.CastVote(r.Context(), chi.URLParam(r, "symbol"), ClientIP(r, s.trustProxy))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, update)
}

// setVotes overwrites the vote counter.
// PUT /api/approved/{symbol}/votes {"votes": n}
func (s *Server) setVotes(w http.ResponseWriter, r *http.Request) {
	v, err := s.readNumber(w, r, "votes")
	if err != nil {
		s.fail(w, err)
		return
	}

	t, err := s.board.SetVotes(r.Context(), chi.URLParam(r, "symbol"), v)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// setRanking sets the admin score.
// PUT /api/approved/{symbol}/ranking {"ranking": x}
func (s *Server) setRanking(w http.ResponseWriter, r *http.Request) {
	v, err := s.readNumber(w, r, "ranking")
	if err != nil {
		s.fail(w, err)
		return
	}

	t, err := s.board.SetRanking(r.Context(), chi.URLParam(r, "symbol"), v)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// readNumber decodes a JSON object body and returns its numeric field.
func (s *Server) readNumber(w http.ResponseWriter, r *http.Request, field string) (float64, error) {
	var body map[string]json.RawMessage
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBodyBytes)).Decode(&body); err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}

	raw, ok := body[field]
	if !ok {
		return 0, fmt.Errorf("%w: %s is required", domain.ErrInvalidValue, field)
	}
	// null decodes into *float64 as nil rather than failing.
	var v *float64
	if err := json.Unmarshal(raw, &v); err != nil || v == nil {
		return 0, fmt.Errorf("%w: %s must be a number", domain.ErrInvalidValue, field)
	}
	return *v, nil
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Printf("request failed: %v", err)
	}
	writeError(w, status, msg)
}
