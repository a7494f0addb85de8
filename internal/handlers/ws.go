package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rentora/chatd/internal/chat"
	"github.com/rentora/chatd/internal/chaterr"
	"github.com/rentora/chatd/internal/metrics"
)

const writeTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The marketplace terminates TLS and enforces origin in front of
	// this service.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS is the connection gatekeeper. Authentication happens before
// the upgrade: a bad credential is refused as plain HTTP and no session
// ever exists. After the upgrade the session is registered, its unread
// backlog replayed, and the read/write pumps take over.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}

	userID, err := h.verifier.Verify(token)
	if err != nil {
		metrics.SessionsTotal.WithLabelValues("rejected").Inc()
		h.Error(w, http.StatusUnauthorized, "invalid credential")
		return
	}

	user, err := h.users.User(r.Context(), userID)
	if err != nil {
		metrics.SessionsTotal.WithLabelValues("rejected").Inc()
		if chaterr.HasCode(err, chaterr.CodeNotFound) {
			h.Error(w, http.StatusNotFound, "identity not found")
		} else {
			h.Error(w, http.StatusInternalServerError, "identity lookup failed")
		}
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote its error response.
		h.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	metrics.SessionsTotal.WithLabelValues("accepted").Inc()

	session := h.hub.NewSession(user)

	// The write pump starts first so the backlog replay drains to the
	// wire as it is queued instead of being bounded by the buffer.
	go h.writePump(conn, session)
	h.hub.Register(r.Context(), session)
	h.readPump(r.Context(), conn, session)
}

// readPump reads frames off the wire until the connection dies. Its
// exit is the single teardown point: presence entry, room membership
// and the outbound queue all go away here, for clean and abnormal
// disconnects alike.
func (h *Handler) readPump(ctx context.Context, conn *websocket.Conn, session *chat.Session) {
	defer func() {
		h.hub.Unregister(session)
		conn.Close()
	}()

	conn.SetReadLimit(int64(64 * 1024))
	_ = conn.SetReadDeadline(time.Now().Add(h.pongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.pongTimeout))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug().Err(err).Stringer("session", session.ID).Msg("connection lost")
			}
			return
		}

		var frame chat.Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			session.Push(chat.ErrorEvent(chaterr.Validation("malformed frame")))
			continue
		}

		h.handleFrame(ctx, session, frame)
	}
}

// handleFrame applies one inbound frame. The frame set is closed:
// unknown types get a typed rejection instead of being ignored.
func (h *Handler) handleFrame(ctx context.Context, session *chat.Session, frame chat.Frame) {
	switch frame.Type {
	case chat.FrameJoinRoom:
		roomID, history, err := h.hub.Join(ctx, session, frame.ListingID, frame.CounterpartID)
		if err != nil {
			session.Push(chat.ErrorEvent(err))
			return
		}
		session.Push(chat.HistoryEvent(roomID, history))

	case chat.FrameLeaveRoom:
		h.hub.Leave(session)

	case chat.FrameSend:
		if err := h.hub.Publish(ctx, session, frame.RoomID, frame.Body); err != nil {
			session.Push(chat.ErrorEvent(err))
		}

	case chat.FrameTypingOn:
		if err := h.hub.Typing(session, frame.RoomID, true); err != nil {
			session.Push(chat.ErrorEvent(err))
		}

	case chat.FrameTypingOff:
		if err := h.hub.Typing(session, frame.RoomID, false); err != nil {
			session.Push(chat.ErrorEvent(err))
		}

	case chat.FrameMarkRead:
		if err := h.hub.MarkRead(ctx, session, frame.RoomID); err != nil {
			session.Push(chat.ErrorEvent(err))
		}

	default:
		session.Push(chat.ErrorEvent(chaterr.Validation("unknown frame type %q", frame.Type)))
	}
}

// writePump drains the session's outbound queue to the connection and
// keeps the peer alive with pings. It exits when the queue closes or a
// write fails; closing the connection then wakes the read pump.
func (h *Handler) writePump(conn *websocket.Conn, session *chat.Session) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case data, ok := <-session.Send():
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
