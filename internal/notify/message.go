package notify

import (
	"encoding/json"

	"token-board/internal/domain"
)

// Message is the envelope pushed to WebSocket clients.
type Message struct {
	Event string            `json:"event"`
	Data  domain.VoteUpdate `json:"data"`
}

// EncodeUpdate renders update as a voteUpdate message.
func EncodeUpdate(update domain.VoteUpdate) ([]byte, error) {
	return json.Marshal(Message{Event: domain.VoteUpdateEvent, Data: update})
}
