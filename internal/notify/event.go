package notify

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// DecodeEvent parses a broker payload produced by BrokerEmitter
func DecodeEvent(body []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if msg.ID == "" || msg.UserID == "" || msg.Title == "" {
		return Message{}, fmt.Errorf("%w: id, userId and title are required", ErrInvalidEvent)
	}
	if err := uuid.Validate(msg.ID); err != nil {
		return Message{}, fmt.Errorf("%w: id: %v", ErrInvalidEvent, err)
	}
	if err := uuid.Validate(msg.UserID); err != nil {
		return Message{}, fmt.Errorf("%w: userId: %v", ErrInvalidEvent, err)
	}
	return msg, nil
}
