package model

import "time"

const (
	DLQSourceRelay = "relay"
	DLQSourcePush  = "push"
)

const (
	DeadLetterUnprocessed = "unprocessed"
	DeadLetterReplayed    = "replayed"
	DeadLetterDiscarded   = "discarded"
)

func IsValidDeadLetterStatus(s string) bool {
	switch s {
	case DeadLetterUnprocessed, DeadLetterReplayed, DeadLetterDiscarded:
		return true
	}
	return false
}

// DeadLetterMessage is a completion event that could not be delivered.
// (Source, MessageID) is unique so redelivered pushes are stored once.
type DeadLetterMessage struct {
	ID         int64     `db:"id" json:"id"`
	Source     string    `db:"source" json:"source"` // relay or push subscription name
	MessageID  string    `db:"message_id" json:"message_id"`
	Payload    string    `db:"payload" json:"payload"`
	Attributes *string   `db:"attributes" json:"attributes,omitempty"` // nullable JSON object
	Status     string    `db:"status" json:"status"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
