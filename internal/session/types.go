package session

import "time"

// Message senders. These values are stored in the database; do not change
// them without a migration.
const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// Message is one entry in a session's conversation history.
type Message struct {
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}
