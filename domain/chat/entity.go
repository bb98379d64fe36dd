package chat

import "time"

// Message represents a chat message in a room's history.
// Seq is the 1-based position in the room history.
type Message struct {
	User   string    `json:"user"`
	Text   string    `json:"text"`
	Seq    int       `json:"seq,omitempty"`
	SentAt time.Time `json:"sent_at,omitempty"`
}
