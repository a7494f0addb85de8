package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	client "github.com/rentora/chatd/clients/go/chatd"
	"github.com/rentora/chatd/internal/api"
	"github.com/rentora/chatd/internal/auth"
	"github.com/rentora/chatd/internal/chat"
	"github.com/rentora/chatd/internal/chaterr"
	"github.com/rentora/chatd/internal/directory"
	"github.com/rentora/chatd/internal/handlers"
	"github.com/rentora/chatd/internal/models"
	"github.com/rentora/chatd/internal/store"
)

const testSecret = "test-secret"

type serverEnv struct {
	srv      *httptest.Server
	mem      *store.MemoryStore
	owner    *models.User
	inquirer *models.User
	listing  *models.Listing
}

func newServerEnv(t *testing.T) *serverEnv {
	t.Helper()
	ctx := context.Background()

	mem := store.NewMemoryStore()
	dir := directory.New(mem)
	hub := chat.NewHub(zerolog.Nop(), mem, dir, dir, nil, chat.Options{})

	h := handlers.NewHandler(zerolog.Nop(), mem, nil, hub, auth.NewVerifier(testSecret), dir, handlers.Config{
		DevMode:      true,
		JWTSecret:    testSecret,
		PongTimeout:  90 * time.Second,
		PingInterval: 30 * time.Second,
	})

	srv := httptest.NewServer(api.NewRouter(zerolog.Nop(), h, true))
	t.Cleanup(srv.Close)

	owner, err := mem.CreateUser(ctx, "Olena", "olena@example.com")
	require.NoError(t, err)
	inquirer, err := mem.CreateUser(ctx, "Piotr", "piotr@example.com")
	require.NoError(t, err)
	listing, err := mem.CreateListing(ctx, owner.ID, "Canal View Apartment")
	require.NoError(t, err)

	return &serverEnv{srv: srv, mem: mem, owner: owner, inquirer: inquirer, listing: listing}
}

func (e *serverEnv) dial(t *testing.T, user *models.User) *client.Client {
	t.Helper()
	token, err := auth.Mint(testSecret, user.ID, user.Name, time.Hour)
	require.NoError(t, err)
	c, err := client.Dial(context.Background(), e.srv.URL, token)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func awaitEvent(t *testing.T, c *client.Client, eventType string) client.Event {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev, ok := <-c.Events():
			require.True(t, ok, "connection closed waiting for %s: %v", eventType, c.Err())
			if ev.Type == eventType {
				return ev
			}
		case <-deadline:
			t.Fatalf("no %s event within deadline", eventType)
		}
	}
}

// awaitEach collects one event per wanted type, in any arrival order.
func awaitEach(t *testing.T, c *client.Client, eventTypes ...string) map[string]client.Event {
	t.Helper()
	want := make(map[string]bool, len(eventTypes))
	for _, et := range eventTypes {
		want[et] = true
	}
	got := make(map[string]client.Event, len(eventTypes))
	deadline := time.After(3 * time.Second)
	for len(got) < len(eventTypes) {
		select {
		case ev, ok := <-c.Events():
			require.True(t, ok, "connection closed waiting for %v: %v", eventTypes, c.Err())
			if want[ev.Type] {
				got[ev.Type] = ev
				delete(want, ev.Type)
			}
		case <-deadline:
			t.Fatalf("still waiting for %v events", eventTypes)
		}
	}
	return got
}

func TestHealthEndpoint(t *testing.T) {
	env := newServerEnv(t)

	resp, err := http.Get(env.srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body handlers.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "pass", body.Checks["store"].Status)
}

func TestMintTokenEndpoint(t *testing.T) {
	env := newServerEnv(t)

	reqBody, _ := json.Marshal(handlers.MintTokenRequest{UserID: env.owner.ID})
	resp, err := http.Post(env.srv.URL+"/token", "application/json", bytes.NewReader(reqBody))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body handlers.MintTokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	userID, err := auth.NewVerifier(testSecret).Verify(body.Token)
	require.NoError(t, err)
	assert.Equal(t, env.owner.ID, userID)
}

func TestMintTokenUnknownUser(t *testing.T) {
	env := newServerEnv(t)

	reqBody, _ := json.Marshal(handlers.MintTokenRequest{UserID: 999})
	resp, err := http.Post(env.srv.URL+"/token", "application/json", bytes.NewReader(reqBody))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDialRejectsBadToken(t *testing.T) {
	env := newServerEnv(t)

	_, err := client.Dial(context.Background(), env.srv.URL, "not-a-token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestDialRejectsUnknownIdentity(t *testing.T) {
	env := newServerEnv(t)

	// Valid signature, but nobody behind it.
	token, err := auth.Mint(testSecret, 999, "Ghost", time.Hour)
	require.NoError(t, err)

	_, err = client.Dial(context.Background(), env.srv.URL, token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestChatEndToEnd(t *testing.T) {
	env := newServerEnv(t)
	ctx := context.Background()

	ownerC := env.dial(t, env.owner)
	inquirerC := env.dial(t, env.inquirer)

	// Both sides land in the same room regardless of who initiates.
	require.NoError(t, ownerC.JoinRoom(env.listing.ID, env.inquirer.ID))
	ev := awaitEvent(t, ownerC, "chat_history")
	var ownerHist chat.HistoryData
	require.NoError(t, json.Unmarshal(ev.Data, &ownerHist))
	require.NotEmpty(t, ownerHist.RoomID)
	assert.Empty(t, ownerHist.Messages)

	require.NoError(t, inquirerC.JoinRoom(env.listing.ID, 0))
	ev = awaitEvent(t, inquirerC, "chat_history")
	var inqHist chat.HistoryData
	require.NoError(t, json.Unmarshal(ev.Data, &inqHist))
	assert.Equal(t, ownerHist.RoomID, inqHist.RoomID)

	roomID := ownerHist.RoomID

	// A message fans out to both members and raises a notification for
	// the counterpart.
	require.NoError(t, ownerC.SendMessage(roomID, "is the flat still available?"))

	// The broadcast and the live notification race; take them in any
	// order.
	inqEvents := awaitEach(t, inquirerC, "new_message", "new_notification")

	var msg chat.MessageData
	require.NoError(t, json.Unmarshal(inqEvents["new_message"].Data, &msg))
	assert.Equal(t, roomID, msg.RoomID)
	assert.Equal(t, env.owner.ID, msg.SenderID)
	assert.Equal(t, "is the flat still available?", msg.Body)

	// Sender sees its own message come back through the room.
	ev = awaitEvent(t, ownerC, "new_message")
	require.NoError(t, json.Unmarshal(ev.Data, &msg))
	assert.Equal(t, env.owner.ID, msg.SenderID)

	var n models.Notification
	require.NoError(t, json.Unmarshal(inqEvents["new_notification"].Data, &n))
	assert.Equal(t, env.inquirer.ID, n.RecipientID)
	var payload models.MessagePayload
	require.NoError(t, json.Unmarshal(n.Payload, &payload))
	assert.Equal(t, roomID, payload.RoomID)
	assert.Equal(t, "Canal View Apartment", payload.ListingName)

	// Typing reaches the counterpart only.
	require.NoError(t, ownerC.TypingStart(roomID))
	ev = awaitEvent(t, inquirerC, "typing")
	var typing chat.TypingData
	require.NoError(t, json.Unmarshal(ev.Data, &typing))
	assert.Equal(t, env.owner.ID, typing.SenderID)
	assert.True(t, typing.Typing)

	// The notification already landed, so the counter is in place and
	// the explicit read mark clears it.
	require.NoError(t, inquirerC.MarkMessagesRead(roomID))
	require.Eventually(t, func() bool {
		c, err := env.mem.GetUnread(ctx, env.inquirer.ID, roomID)
		return err == nil && c != nil && c.Count == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSendOutsideRoomGetsErrorEvent(t *testing.T) {
	env := newServerEnv(t)

	c := env.dial(t, env.inquirer)
	require.NoError(t, c.SendMessage("listing-1-chat-1-2", "sneaky"))

	ev := awaitEvent(t, c, "error")
	var data chat.ErrorData
	require.NoError(t, json.Unmarshal(ev.Data, &data))
	assert.Equal(t, chaterr.CodeAuthorization, data.Code)
}

func TestMalformedFrameGetsErrorEvent(t *testing.T) {
	env := newServerEnv(t)

	token, err := auth.Mint(testSecret, env.inquirer.ID, env.inquirer.Name, time.Hour)
	require.NoError(t, err)

	wsURL := strings.Replace(env.srv.URL, "http", "ws", 1) + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev client.Event
	require.NoError(t, json.Unmarshal(raw, &ev))
	require.Equal(t, "error", ev.Type)
	var data chat.ErrorData
	require.NoError(t, json.Unmarshal(ev.Data, &data))
	assert.Equal(t, chaterr.CodeValidation, data.Code)
}

func TestUnknownFrameTypeGetsErrorEvent(t *testing.T) {
	env := newServerEnv(t)

	token, err := auth.Mint(testSecret, env.inquirer.ID, env.inquirer.Name, time.Hour)
	require.NoError(t, err)

	wsURL := strings.Replace(env.srv.URL, "http", "ws", 1) + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "self_destruct"}))

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev client.Event
	require.NoError(t, json.Unmarshal(raw, &ev))
	require.Equal(t, "error", ev.Type)
	var data chat.ErrorData
	require.NoError(t, json.Unmarshal(ev.Data, &data))
	assert.Equal(t, chaterr.CodeValidation, data.Code)
}
