package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rentora/chatd/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ DataStore = (*PostgresStore)(nil)

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// GetUser retrieves a user by id. Returns nil when absent.
func (s *PostgresStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	user := &models.User{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, email, created_at
		FROM users WHERE id = $1
	`, id).Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// GetListing retrieves a listing by id. Returns nil when absent.
func (s *PostgresStore) GetListing(ctx context.Context, id int64) (*models.Listing, error) {
	listing := &models.Listing{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, owner_id, title, created_at
		FROM listings WHERE id = $1
	`, id).Scan(&listing.ID, &listing.OwnerID, &listing.Title, &listing.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return listing, nil
}

// CreateUser inserts a user record.
func (s *PostgresStore) CreateUser(ctx context.Context, name, email string) (*models.User, error) {
	user := &models.User{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (name, email)
		VALUES ($1, $2)
		RETURNING id, name, email, created_at
	`, name, email).Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CreateListing inserts a listing record.
func (s *PostgresStore) CreateListing(ctx context.Context, ownerID int64, title string) (*models.Listing, error) {
	listing := &models.Listing{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO listings (owner_id, title)
		VALUES ($1, $2)
		RETURNING id, owner_id, title, created_at
	`, ownerID, title).Scan(&listing.ID, &listing.OwnerID, &listing.Title, &listing.CreatedAt)
	if err != nil {
		return nil, err
	}
	return listing, nil
}

// InsertMessage appends a message to the room log.
func (s *PostgresStore) InsertMessage(ctx context.Context, msg *models.Message) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO messages (id, room_id, sender_id, body, created_at, read_flag)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, msg.ID, msg.RoomID, msg.SenderID, msg.Body, msg.CreatedAt, msg.Read)
	return err
}

// RecentMessages returns the newest limit messages of a room in
// ascending (created_at, id) order.
func (s *PostgresStore) RecentMessages(ctx context.Context, roomID string, limit int) ([]models.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, room_id, sender_id, body, created_at, read_flag
		FROM messages
		WHERE room_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
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
func (s *PostgresStore) MarkRoomRead(ctx context.Context, roomID string, readerID int64) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE messages SET read_flag = TRUE
		WHERE room_id = $1 AND sender_id <> $2 AND read_flag = FALSE
	`, roomID, readerID)
	return err
}

// InsertNotification appends a notification record.
func (s *PostgresStore) InsertNotification(ctx context.Context, n *models.Notification) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notifications (id, recipient_id, type, title, body, payload, read_flag, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, n.ID, n.RecipientID, n.Type, n.Title, n.Body, []byte(n.Payload), n.Read, n.CreatedAt)
	return err
}

// UnreadNotifications returns all unread notifications for a recipient,
// oldest first.
func (s *PostgresStore) UnreadNotifications(ctx context.Context, recipientID int64) ([]models.Notification, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, recipient_id, type, title, body, payload, read_flag, created_at
		FROM notifications
		WHERE recipient_id = $1 AND read_flag = FALSE
		ORDER BY created_at ASC, id ASC
	`, recipientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		var payload []byte
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Type, &n.Title, &n.Body, &payload, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Payload = payload
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkNotificationsRead flags a recipient's chat notifications for one
// room as read.
func (s *PostgresStore) MarkNotificationsRead(ctx context.Context, recipientID int64, roomID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE notifications SET read_flag = TRUE
		WHERE recipient_id = $1 AND read_flag = FALSE AND payload->>'room_id' = $2
	`, recipientID, roomID)
	return err
}

// IncrementUnread bumps the (recipient, room) counter by one, creating
// the row if absent. Single statement, safe under concurrent publishes.
func (s *PostgresStore) IncrementUnread(ctx context.Context, recipientID int64, roomID, lastMessageID string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO unread_counters (recipient_id, room_id, count, last_message_id, updated_at)
		VALUES ($1, $2, 1, $3, NOW())
		ON CONFLICT (recipient_id, room_id) DO UPDATE
		SET count = unread_counters.count + 1,
		    last_message_id = EXCLUDED.last_message_id,
		    updated_at = NOW()
	`, recipientID, roomID, lastMessageID)
	return err
}

// ResetUnread sets the (recipient, room) counter to zero. A missing row
// already counts as zero.
func (s *PostgresStore) ResetUnread(ctx context.Context, recipientID int64, roomID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE unread_counters SET count = 0, updated_at = NOW()
		WHERE recipient_id = $1 AND room_id = $2
	`, recipientID, roomID)
	return err
}

// GetUnread returns the counter row, or nil when absent.
func (s *PostgresStore) GetUnread(ctx context.Context, recipientID int64, roomID string) (*models.UnreadCounter, error) {
	c := &models.UnreadCounter{}
	err := s.pool.QueryRow(ctx, `
		SELECT recipient_id, room_id, count, last_message_id, updated_at
		FROM unread_counters
		WHERE recipient_id = $1 AND room_id = $2
	`, recipientID, roomID).Scan(&c.RecipientID, &c.RoomID, &c.Count, &c.LastMessageID, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

// reverseMessages flips a newest-first page into replay order.
func reverseMessages(messages []models.Message) {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
}
