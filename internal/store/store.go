package store

import (
	"context"

	"github.com/rentora/chatd/internal/models"
)

// DataStore is the durable store contract for the chat core: the message
// log, the notification log and the unread counters, plus the directory
// tables the lookup collaborators read. Both PostgresStore and
// SQLiteStore implement this interface.
//
// Counter mutations are single-statement atomic, so concurrent
// increments and a concurrent reset for the same (recipient, room) key
// never interleave into an inconsistent value.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Directory (read by the lookup collaborators, written by the
	// marketplace; Create* exist for seeding and development)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetListing(ctx context.Context, id int64) (*models.Listing, error)
	CreateUser(ctx context.Context, name, email string) (*models.User, error)
	CreateListing(ctx context.Context, ownerID int64, title string) (*models.Listing, error)

	// Message log
	InsertMessage(ctx context.Context, msg *models.Message) error
	RecentMessages(ctx context.Context, roomID string, limit int) ([]models.Message, error)
	MarkRoomRead(ctx context.Context, roomID string, readerID int64) error

	// Notification log. Other subsystems insert their own records
	// through the same contract; backlog replay returns them all.
	InsertNotification(ctx context.Context, n *models.Notification) error
	UnreadNotifications(ctx context.Context, recipientID int64) ([]models.Notification, error)
	MarkNotificationsRead(ctx context.Context, recipientID int64, roomID string) error

	// Unread counters, one row per (recipient, room)
	IncrementUnread(ctx context.Context, recipientID int64, roomID, lastMessageID string) error
	ResetUnread(ctx context.Context, recipientID int64, roomID string) error
	GetUnread(ctx context.Context, recipientID int64, roomID string) (*models.UnreadCounter, error)
}
