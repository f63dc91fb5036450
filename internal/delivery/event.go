package delivery

import (
	"time"

	"chatwire/internal/storage"
)

// Event types carried on the live channel.
const (
	EventPresence = "presence"
	EventMessage  = "message"
)

// PresenceEvent is broadcast to every admitted connection whenever a user
// goes online or fully offline. Online holds the full current list.
type PresenceEvent struct {
	Type   string  `json:"type"`
	Online []int64 `json:"online"`
}

// MessageEvent is pushed to each of the recipient's connections after the
// message has been persisted.
type MessageEvent struct {
	Type    string         `json:"type"`
	Message MessagePayload `json:"message"`
}

// MessagePayload mirrors the persisted message.
type MessagePayload struct {
	ID          int64     `json:"id"`
	SenderID    int64     `json:"senderId"`
	RecipientID int64     `json:"recipientId"`
	Text        string    `json:"text,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewMessagePayload builds the wire form of a persisted message. The HTTP
// API reuses it so both channels present the identical shape.
func NewMessagePayload(m storage.Message) MessagePayload {
	return MessagePayload{
		ID:          m.ID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Text:        m.Text,
		ImageURL:    m.ImageURL,
		CreatedAt:   m.CreatedAt,
	}
}
