package models

import "time"

// User represents a marketplace account that can take part in
// listing conversations, either as the listing owner or as an inquirer.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
