package models

import "time"

// Message is one durable chat message. Immutable after insert; only the
// read flag is ever updated, and only by a room-scoped read mark.
//
// IDs are ULIDs, so the (created_at, id) room order is also the
// lexicographic order of ids.
type Message struct {
	ID        string    `json:"id"` // ULID
	RoomID    string    `json:"room_id"`
	SenderID  int64     `json:"sender_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	Read      bool      `json:"read"`
}
