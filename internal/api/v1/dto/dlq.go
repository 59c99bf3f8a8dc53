package dto

import (
	"encoding/base64"
	"time"
)

// PubSubPushRequest is the body Pub/Sub POSTs to a push subscription endpoint.
type PubSubPushRequest struct {
	Message      PubSubMessage `json:"message"`
	Subscription string        `json:"subscription"`
}

// PubSubMessage is the pushed message. Data is base64 encoded.
type PubSubMessage struct {
	Data        string            `json:"data"`
	MessageID   string            `json:"messageId"`
	Attributes  map[string]string `json:"attributes"`
	PublishTime *time.Time        `json:"publishTime,omitempty"`
}

// Payload returns the decoded data, or the raw data when it is not valid base64.
func (m PubSubMessage) Payload() []byte {
	decoded, err := base64.StdEncoding.DecodeString(m.Data)
	if err != nil {
		return []byte(m.Data)
	}
	return decoded
}

// DeadLetterResponseDTO is a stored dead letter as returned to administrators.
type DeadLetterResponseDTO struct {
	ID         int64             `json:"id"`
	Source     string            `json:"source"`
	MessageID  string            `json:"message_id"`
	Payload    string            `json:"payload"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Status     string            `json:"status"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// DeadLetterStatusDTO is the body of PUT /admin/dead-letters/{id}/status
type DeadLetterStatusDTO struct {
	Status string `json:"status" validate:"required,oneof=unprocessed replayed discarded"`
}
