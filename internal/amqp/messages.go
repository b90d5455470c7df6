package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SyncRequestMessage asks the sync worker to reload the ledger from its source.
// It carries no ledger data; the worker always copies the full source.
type SyncRequestMessage struct {
	ID          string    `json:"id"`
	RequestedBy string    `json:"requested_by"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewSyncRequestMessage creates a request with a fresh id.
func NewSyncRequestMessage(requestedBy string) *SyncRequestMessage {
	return &SyncRequestMessage{
		ID:          uuid.NewString(),
		RequestedBy: requestedBy,
		RequestedAt: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *SyncRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SyncRequestMessageFromJSON decodes a message and checks its id.
func SyncRequestMessageFromJSON(data []byte) (*SyncRequestMessage, error) {
	var msg SyncRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(msg.ID); err != nil {
		return nil, fmt.Errorf("invalid message id %q: %w", msg.ID, err)
	}
	return &msg, nil
}
