package chat

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/rentora/chatd/internal/chaterr"
	"github.com/rentora/chatd/internal/models"
)

// Inbound frame types. Anything outside this set is rejected with a
// typed error event, never silently dropped.
const (
	FrameJoinRoom  = "join_room"
	FrameLeaveRoom = "leave_room"
	FrameSend      = "send_message"
	FrameTypingOn  = "typing_start"
	FrameTypingOff = "typing_stop"
	FrameMarkRead  = "mark_messages_read"
)

// Outbound event types.
const (
	EventHistory      = "chat_history"
	EventMessage      = "new_message"
	EventTyping       = "typing"
	EventNotification = "new_notification"
	EventError        = "error"
)

// Frame is one inbound client message.
type Frame struct {
	Type          string `json:"type"`
	ListingID     int64  `json:"listing_id,omitempty"`
	CounterpartID int64  `json:"counterpart_id,omitempty"`
	RoomID        string `json:"room_id,omitempty"`
	Body          string `json:"body,omitempty"`
}

// Event is one outbound server message.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// HistoryData is the join reply: room id plus replayed messages in
// ascending (created_at, id) order.
type HistoryData struct {
	RoomID   string           `json:"room_id"`
	Messages []models.Message `json:"messages"`
}

// MessageData is the new_message broadcast payload.
type MessageData struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	SenderID  int64     `json:"sender_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// TypingData is the ephemeral typing broadcast payload.
type TypingData struct {
	RoomID   string `json:"room_id"`
	SenderID int64  `json:"sender_id"`
	Typing   bool   `json:"typing"`
}

// ErrorData is the error event payload.
type ErrorData struct {
	Code    chaterr.Code `json:"code"`
	Message string       `json:"message"`
}

// HistoryEvent builds the join reply event.
func HistoryEvent(roomID string, messages []models.Message) Event {
	if messages == nil {
		messages = []models.Message{}
	}
	return Event{Type: EventHistory, Data: HistoryData{RoomID: roomID, Messages: messages}}
}

func messageEvent(msg models.Message) Event {
	return Event{Type: EventMessage, Data: MessageData{
		ID:        msg.ID,
		RoomID:    msg.RoomID,
		SenderID:  msg.SenderID,
		Body:      msg.Body,
		CreatedAt: msg.CreatedAt,
	}}
}

func typingEvent(roomID string, senderID int64, typing bool) Event {
	return Event{Type: EventTyping, Data: TypingData{RoomID: roomID, SenderID: senderID, Typing: typing}}
}

func notificationEvent(n models.Notification) Event {
	return Event{Type: EventNotification, Data: n}
}

// ErrorEvent maps a chat error to its wire event. Untyped errors are
// reported without detail.
func ErrorEvent(err error) Event {
	var ce *chaterr.Error
	if errors.As(err, &ce) {
		return Event{Type: EventError, Data: ErrorData{Code: ce.Code, Message: ce.Message}}
	}
	return Event{Type: EventError, Data: ErrorData{Code: chaterr.CodePersistence, Message: "internal error"}}
}

// encode marshals an event for the wire. Our payload types cannot fail
// to marshal; a failure would be a programming error.
func encode(ev Event) []byte {
	data, err := json.Marshal(ev)
	if err != nil {
		data, _ = json.Marshal(Event{Type: EventError, Data: ErrorData{
			Code:    chaterr.CodePersistence,
			Message: "encoding failed",
		}})
	}
	return data
}
