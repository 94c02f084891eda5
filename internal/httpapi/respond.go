package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"token-board/internal/domain"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// statusFor maps a board error onto an HTTP status and client message.
func statusFor(err error) (int, string) {
	var rl *domain.RateLimitError
	switch {
	case errors.As(err, &rl):
		return http.StatusTooManyRequests, rl.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "Token not found"
	case errors.Is(err, domain.ErrInvalidPayload):
		return http.StatusBadRequest, "Invalid payload"
	case errors.Is(err, domain.ErrInvalidValue):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrDuplicateSymbol):
		return http.StatusConflict, "Token already exists"
	case errors.Is(err, domain.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "Storage unavailable"
	default:
		return http.StatusInternalServerError, "Internal error"
	}
}
