package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rentora/chatd/internal/models"
)

// SQLiteStore handles SQLite database operations. It is the development
// fallback when no DATABASE_URL is configured.
type SQLiteStore struct {
	db *sql.DB
}

var _ DataStore = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/chatd.db".
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/chatd.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	// Counter upserts assume one writer at a time; SQLite serializes
	// through a single connection.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS listings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_id INTEGER NOT NULL REFERENCES users(id),
		title TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		room_id TEXT NOT NULL,
		sender_id INTEGER NOT NULL,
		body TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		read_flag INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		recipient_id INTEGER NOT NULL,
		type TEXT NOT NULL,
		title TEXT DEFAULT '',
		body TEXT DEFAULT '',
		payload TEXT DEFAULT '{}',
		read_flag INTEGER DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS unread_counters (
		recipient_id INTEGER NOT NULL,
		room_id TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		last_message_id TEXT DEFAULT '',
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (recipient_id, room_id)
	);

	CREATE INDEX IF NOT EXISTS idx_messages_room ON messages(room_id, created_at, id);
	CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications(recipient_id, read_flag);
	CREATE INDEX IF NOT EXISTS idx_listings_owner ON listings(owner_id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetUser retrieves a user by id. Returns nil when absent.
func (s *SQLiteStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, created_at FROM users WHERE id = ?
	`, id).Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// GetListing retrieves a listing by id. Returns nil when absent.
func (s *SQLiteStore) GetListing(ctx context.Context, id int64) (*models.Listing, error) {
	listing := &models.Listing{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, title, created_at FROM listings WHERE id = ?
	`, id).Scan(&listing.ID, &listing.OwnerID, &listing.Title, &listing.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return listing, nil
}

// CreateUser inserts a user record.
func (s *SQLiteStore) CreateUser(ctx context.Context, name, email string) (*models.User, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (name, email) VALUES (?, ?)
	`, name, email)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetUser(ctx, id)
}

// CreateListing inserts a listing record.
func (s *SQLiteStore) CreateListing(ctx context.Context, ownerID int64, title string) (*models.Listing, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO listings (owner_id, title) VALUES (?, ?)
	`, ownerID, title)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetListing(ctx, id)
}

// InsertMessage appends a message to the room log.
func (s *SQLiteStore) InsertMessage(ctx context.Context, msg *models.Message) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, room_id, sender_id, body, created_at, read_flag)
		VALUES (?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.RoomID, msg.SenderID, msg.Body, msg.CreatedAt, msg.Read)
	return err
}

// RecentMessages returns the newest limit messages of a room in
// ascending (created_at, id) order.
func (s *SQLiteStore) RecentMessages(ctx context.Context, roomID string, limit int) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, room_id, sender_id, body, created_at, read_flag
		FROM messages
		WHERE room_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, roomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.ID, &msg.RoomID, &msg.SenderID, &msg.Body, &msg.CreatedAt, &msg.Read); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	reverseMessages(messages)
	return messages, nil
}

// MarkRoomRead flags every message in the room not authored by the
// reader as read.
func (s *SQLiteStore) MarkRoomRead(ctx context.Context, roomID string, readerID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE messages SET read_flag = 1
		WHERE room_id = ? AND sender_id <> ? AND read_flag = 0
	`, roomID, readerID)
	return err
}

// InsertNotification appends a notification record.
func (s *SQLiteStore) InsertNotification(ctx context.Context, n *models.Notification) error {
	payload := "{}"
	if len(n.Payload) > 0 {
		payload = string(n.Payload)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, recipient_id, type, title, body, payload, read_flag, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.RecipientID, n.Type, n.Title, n.Body, payload, n.Read, n.CreatedAt)
	return err
}

// UnreadNotifications returns all unread notifications for a recipient,
// oldest first.
func (s *SQLiteStore) UnreadNotifications(ctx context.Context, recipientID int64) ([]models.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, recipient_id, type, title, body, payload, read_flag, created_at
		FROM notifications
		WHERE recipient_id = ? AND read_flag = 0
		ORDER BY created_at ASC, id ASC
	`, recipientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		var payload string
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Type, &n.Title, &n.Body, &payload, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Payload = []byte(payload)
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkNotificationsRead flags a recipient's chat notifications for one
// room as read.
func (s *SQLiteStore) MarkNotificationsRead(ctx context.Context, recipientID int64, roomID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET read_flag = 1
		WHERE recipient_id = ? AND read_flag = 0
		  AND json_extract(payload, '$.room_id') = ?
	`, recipientID, roomID)
	return err
}

// IncrementUnread bumps the (recipient, room) counter by one, creating
// the row if absent.
func (s *SQLiteStore) IncrementUnread(ctx context.Context, recipientID int64, roomID, lastMessageID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO unread_counters (recipient_id, room_id, count, last_message_id, updated_at)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT (recipient_id, room_id) DO UPDATE
		SET count = count + 1,
		    last_message_id = excluded.last_message_id,
		    updated_at = excluded.updated_at
	`, recipientID, roomID, lastMessageID, time.Now().UTC())
	return err
}

// ResetUnread sets the (recipient, room) counter to zero.
func (s *SQLiteStore) ResetUnread(ctx context.Context, recipientID int64, roomID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE unread_counters SET count = 0, updated_at = ?
		WHERE recipient_id = ? AND room_id = ?
	`, time.Now().UTC(), recipientID, roomID)
	return err
}

// GetUnread returns the counter row, or nil when absent.
func (s *SQLiteStore) GetUnread(ctx context.Context, recipientID int64, roomID string) (*models.UnreadCounter, error) {
	c := &models.UnreadCounter{}
	err := s.db.QueryRowContext(ctx, `
		SELECT recipient_id, room_id, count, last_message_id, updated_at
		FROM unread_counters
		WHERE recipient_id = ? AND room_id = ?
	`, recipientID, roomID).Scan(&c.RecipientID, &c.RoomID, &c.Count, &c.LastMessageID, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}
