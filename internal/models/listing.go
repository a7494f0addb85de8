package models

import "time"

// Listing is the rental listing a conversation is scoped to. The chat
// core only reads it: owner resolution and display enrichment.
type Listing struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"owner_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}
