package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rentora/chatd/internal/models"
)

// MemoryStore is an in-memory DataStore. It backs tests and throwaway
// development runs; nothing survives a restart.
type MemoryStore struct {
	mu            sync.Mutex
	users         map[int64]models.User
	listings      map[int64]models.Listing
	messages      []models.Message
	notifications []models.Notification
	counters      map[string]*models.UnreadCounter
	nextUser      int64
	nextListing   int64
}

var _ DataStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[int64]models.User),
		listings: make(map[int64]models.Listing),
		counters: make(map[string]*models.UnreadCounter),
	}
}

func counterKey(recipientID int64, roomID string) string {
	return fmt.Sprintf("%d|%s", recipientID, roomID)
}

// Close is a no-op.
func (s *MemoryStore) Close() {}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

// GetUser retrieves a user by id. Returns nil when absent.
func (s *MemoryStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

// GetListing retrieves a listing by id. Returns nil when absent.
func (s *MemoryStore) GetListing(ctx context.Context, id int64) (*models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.listings[id]; ok {
		return &l, nil
	}
	return nil, nil
}

// CreateUser inserts a user record.
func (s *MemoryStore) CreateUser(ctx context.Context, name, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextUser++
	u := models.User{ID: s.nextUser, Name: name, Email: email, CreatedAt: time.Now().UTC()}
	s.users[u.ID] = u
	return &u, nil
}

// CreateListing inserts a listing record.
func (s *MemoryStore) CreateListing(ctx context.Context, ownerID int64, title string) (*models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextListing++
	l := models.Listing{ID: s.nextListing, OwnerID: ownerID, Title: title, CreatedAt: time.Now().UTC()}
	s.listings[l.ID] = l
	return &l, nil
}

// InsertMessage appends a message to the room log.
func (s *MemoryStore) InsertMessage(ctx context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, *msg)
	return nil
}

// RecentMessages returns the newest limit messages of a room in
// ascending (created_at, id) order.
func (s *MemoryStore) RecentMessages(ctx context.Context, roomID string, limit int) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []models.Message
	for _, m := range s.messages {
		if m.RoomID == roomID {
			all = append(all, m)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

// MarkRoomRead flags every message in the room not authored by the
// reader as read.
func (s *MemoryStore) MarkRoomRead(ctx context.Context, roomID string, readerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].RoomID == roomID && s.messages[i].SenderID != readerID {
			s.messages[i].Read = true
		}
	}
	return nil
}

// InsertNotification appends a notification record.
func (s *MemoryStore) InsertNotification(ctx context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, *n)
	return nil
}

// UnreadNotifications returns all unread notifications for a recipient,
// oldest first.
func (s *MemoryStore) UnreadNotifications(ctx context.Context, recipientID int64) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var unread []models.Notification
	for _, n := range s.notifications {
		if n.RecipientID == recipientID && !n.Read {
			unread = append(unread, n)
		}
	}
	sort.Slice(unread, func(i, j int) bool {
		if !unread[i].CreatedAt.Equal(unread[j].CreatedAt) {
			return unread[i].CreatedAt.Before(unread[j].CreatedAt)
		}
		return unread[i].ID < unread[j].ID
	})
	return unread, nil
}

// MarkNotificationsRead flags a recipient's chat notifications for one
// room as read.
func (s *MemoryStore) MarkNotificationsRead(ctx context.Context, recipientID int64, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		n := &s.notifications[i]
		if n.RecipientID != recipientID || n.Read {
			continue
		}
		var payload models.MessagePayload
		if err := json.Unmarshal(n.Payload, &payload); err != nil {
			continue
		}
		if payload.RoomID == roomID {
			n.Read = true
		}
	}
	return nil
}

// IncrementUnread bumps the (recipient, room) counter by one, creating
// the row if absent.
func (s *MemoryStore) IncrementUnread(ctx context.Context, recipientID int64, roomID, lastMessageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := counterKey(recipientID, roomID)
	c, ok := s.counters[key]
	if !ok {
		c = &models.UnreadCounter{RecipientID: recipientID, RoomID: roomID}
		s.counters[key] = c
	}
	c.Count++
	c.LastMessageID = lastMessageID
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// ResetUnread sets the (recipient, room) counter to zero.
func (s *MemoryStore) ResetUnread(ctx context.Context, recipientID int64, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.counters[counterKey(recipientID, roomID)]; ok {
		c.Count = 0
		c.UpdatedAt = time.Now().UTC()
	}
	return nil
}

// GetUnread returns the counter row, or nil when absent.
func (s *MemoryStore) GetUnread(ctx context.Context, recipientID int64, roomID string) (*models.UnreadCounter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.counters[counterKey(recipientID, roomID)]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, nil
}
