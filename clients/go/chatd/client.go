// Package chatd provides a websocket client for the listing chat
// service.
package chatd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Event mirrors the server's outbound envelope. Data stays raw so the
// caller decodes only the payloads it cares about.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// frame mirrors the server's inbound envelope.
type frame struct {
	Type          string `json:"type"`
	ListingID     int64  `json:"listing_id,omitempty"`
	CounterpartID int64  `json:"counterpart_id,omitempty"`
	RoomID        string `json:"room_id,omitempty"`
	Body          string `json:"body,omitempty"`
}

// Client is a connected chat session.
type Client struct {
	conn   *websocket.Conn
	events chan Event
	errs   chan error
}

// Dial connects and authenticates against a chat server. baseURL is
// the server's HTTP address; the scheme is rewritten for websockets.
func Dial(ctx context.Context, baseURL, token string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http", "":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	u.RawQuery = url.Values{"token": {token}}.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", u.Host, err, resp.StatusCode)
		}
		return nil, err
	}
	if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
		conn.Close()
		return nil, fmt.Errorf("unexpected handshake status %d", resp.StatusCode)
	}

	c := &Client{
		conn:   conn,
		events: make(chan Event, 64),
		errs:   make(chan error, 1),
	}
	go c.readLoop()
	return c, nil
}

// Events returns the stream of server events. The channel closes when
// the connection dies; Err then reports why.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Err returns the read loop's terminal error, if any.
func (c *Client) Err() error {
	select {
	case err := <-c.errs:
		return err
	default:
		return nil
	}
}

// Close tears the connection down.
func (c *Client) Close() error {
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.conn.Close()
}

// JoinRoom requests the conversation for a listing. The reply arrives
// as a chat_history event.
func (c *Client) JoinRoom(listingID, counterpartID int64) error {
	return c.send(frame{Type: "join_room", ListingID: listingID, CounterpartID: counterpartID})
}

// LeaveRoom releases the current room.
func (c *Client) LeaveRoom() error {
	return c.send(frame{Type: "leave_room"})
}

// SendMessage publishes a message to the joined room.
func (c *Client) SendMessage(roomID, body string) error {
	return c.send(frame{Type: "send_message", RoomID: roomID, Body: body})
}

// TypingStart signals the counterpart that the user is typing.
func (c *Client) TypingStart(roomID string) error {
	return c.send(frame{Type: "typing_start", RoomID: roomID})
}

// TypingStop clears the typing signal.
func (c *Client) TypingStop(roomID string) error {
	return c.send(frame{Type: "typing_stop", RoomID: roomID})
}

// MarkMessagesRead acknowledges everything in the joined room.
func (c *Client) MarkMessagesRead(roomID string) error {
	return c.send(frame{Type: "mark_messages_read", RoomID: roomID})
}

func (c *Client) send(f frame) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(f)
}

func (c *Client) readLoop() {
	defer close(c.events)
	for {
		var ev Event
		if err := c.conn.ReadJSON(&ev); err != nil {
			select {
			case c.errs <- err:
			default:
			}
			return
		}
		select {
		case c.events <- ev:
		default:
			// Caller stopped draining; drop rather than block the loop.
		}
	}
}
