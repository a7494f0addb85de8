package chat

import (
	"sync"

	"github.com/google/uuid"

	"github.com/rentora/chatd/internal/models"
)

// Session is one authenticated connection. It holds at most one joined
// room at a time and is never persisted; the websocket layer owns its
// lifecycle, the hub owns its registry membership.
type Session struct {
	ID       uuid.UUID
	UserID   int64
	UserName string

	send chan []byte

	mu     sync.Mutex
	room   *models.RoomDescriptor
	closed bool
}

// Send returns the outbound queue drained by the connection's write
// pump. The channel is closed when the session is torn down.
func (s *Session) Send() <-chan []byte {
	return s.send
}

// Room returns the currently joined room descriptor, if any.
func (s *Session) Room() (models.RoomDescriptor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.room == nil {
		return models.RoomDescriptor{}, false
	}
	return *s.room, true
}

func (s *Session) setRoom(desc *models.RoomDescriptor) {
	s.mu.Lock()
	s.room = desc
	s.mu.Unlock()
}

// Push queues an event for delivery to this session. Non-blocking;
// reports false when the queue is full or the session is closed.
func (s *Session) Push(ev Event) bool {
	return s.enqueue(encode(ev))
}

// enqueue appends an encoded event to the outbound queue without
// blocking. Reports false when the queue is full or the session is
// already closed.
func (s *Session) enqueue(data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

// closeSend closes the outbound queue exactly once. Reports true for
// the call that actually closed it.
func (s *Session) closeSend() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	close(s.send)
	return true
}
