package models

import (
	"encoding/json"
	"time"
)

// Notification types produced by the chat core. Other subsystems
// (booking, payments) write their own types through the same store
// contract; backlog replay does not filter by type.
const (
	NotificationTypeMessage = "chat_message"
)

// Notification is a durable, recipient-addressed record of an event,
// written regardless of whether the recipient was live at the time.
type Notification struct {
	ID          string          `json:"id"` // ULID
	RecipientID int64           `json:"recipient_id"`
	Type        string          `json:"type"`
	Title       string          `json:"title"`
	Body        string          `json:"body"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Read        bool            `json:"read"`
	CreatedAt   time.Time       `json:"created_at"`
}

// MessagePayload is the payload carried by chat_message notifications.
type MessagePayload struct {
	RoomID      string `json:"room_id"`
	ListingID   int64  `json:"listing_id"`
	ListingName string `json:"listing_name,omitempty"`
	MessageID   string `json:"message_id"`
	SenderID    int64  `json:"sender_id"`
	SenderName  string `json:"sender_name,omitempty"`
}

// UnreadCounter is the per-(recipient, room) count of messages not yet
// acknowledged by a room-scoped read mark.
type UnreadCounter struct {
	RecipientID   int64     `json:"recipient_id"`
	RoomID        string    `json:"room_id"`
	Count         int64     `json:"count"`
	LastMessageID string    `json:"last_message_id"`
	UpdatedAt     time.Time `json:"updated_at"`
}
