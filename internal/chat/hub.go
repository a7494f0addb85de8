package chat

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/rentora/chatd/internal/chaterr"
	"github.com/rentora/chatd/internal/directory"
	"github.com/rentora/chatd/internal/metrics"
	"github.com/rentora/chatd/internal/models"
	"github.com/rentora/chatd/internal/store"
)

// Options tunes hub behaviour. Zero values fall back to defaults.
type Options struct {
	MaxMessageBytes int
	HistoryLimit    int
	StoreTimeout    time.Duration
	SendBuffer      int
}

func (o Options) withDefaults() Options {
	if o.MaxMessageBytes <= 0 {
		o.MaxMessageBytes = 4096
	}
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = 50
	}
	if o.StoreTimeout <= 0 {
		o.StoreTimeout = 5 * time.Second
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
	return o
}

// roomState carries the live side of one conversation. members is
// guarded by the hub mutex; mu serializes persist-then-broadcast so
// every subscriber observes messages in persisted (created_at, id)
// order.
type roomState struct {
	mu      sync.Mutex
	desc    models.RoomDescriptor
	members map[*Session]struct{}
}

// Hub owns all live chat state: the presence registry, room membership
// and the publish path. One hub per process.
type Hub struct {
	log      zerolog.Logger
	store    store.DataStore
	limiter  *store.RateLimiter
	listings directory.ResourceLookup
	presence *Registry
	dispatch *Dispatcher
	opts     Options

	mu    sync.RWMutex
	rooms map[string]*roomState

	// Monotonic ULIDs keep same-millisecond messages ordered the same
	// way they were published.
	entropyMu sync.Mutex
	entropy   *ulid.MonotonicEntropy
}

// NewHub creates the hub. limiter may be nil (rate limiting disabled).
func NewHub(
	log zerolog.Logger,
	ds store.DataStore,
	users directory.IdentityLookup,
	listings directory.ResourceLookup,
	limiter *store.RateLimiter,
	opts Options,
) *Hub {
	opts = opts.withDefaults()
	presence := NewRegistry()
	return &Hub{
		log:      log,
		store:    ds,
		limiter:  limiter,
		listings: listings,
		presence: presence,
		dispatch: newDispatcher(log, ds, presence, users, listings, opts.StoreTimeout),
		opts:     opts,
		rooms:    make(map[string]*roomState),
		entropy:  ulid.Monotonic(rand.Reader, 0),
	}
}

// Presence exposes the registry for health and diagnostics.
func (h *Hub) Presence() *Registry {
	return h.presence
}

// NewSession creates a session for an authenticated user. The session
// is inert until Register.
func (h *Hub) NewSession(user *models.User) *Session {
	return &Session{
		ID:       uuid.New(),
		UserID:   user.ID,
		UserName: user.Name,
		send:     make(chan []byte, h.opts.SendBuffer),
	}
}

// Register makes the session visible to the dispatcher and replays the
// unread notification backlog on its personal channel. Replay is
// idempotent: reconnecting redelivers whatever is still unread.
func (h *Hub) Register(ctx context.Context, s *Session) {
	h.presence.Add(s)
	metrics.SessionsConnected.Inc()

	h.log.Info().
		Stringer("session", s.ID).
		Int64("user", s.UserID).
		Msg("session registered")

	h.replayBacklog(ctx, s)
}

// Unregister tears the session down: room membership, presence entry
// and outbound queue. Safe to call more than once; the first call wins.
func (h *Hub) Unregister(s *Session) {
	if room, ok := s.Room(); ok {
		h.removeMember(s, room.ID())
		s.setRoom(nil)
	}
	h.presence.Remove(s)

	if s.closeSend() {
		metrics.SessionsConnected.Dec()
		h.log.Info().
			Stringer("session", s.ID).
			Int64("user", s.UserID).
			Msg("session unregistered")
	}
}

// Shutdown tears down every live session. Closing the outbound queues
// wakes the write pumps, which close their connections and let the read
// pumps finish their own teardown.
func (h *Hub) Shutdown() {
	for _, s := range h.presence.All() {
		h.Unregister(s)
	}
}

// Join resolves the canonical room for a listing and counterpart,
// makes it the session's single active room, and returns the opaque
// room id with the replayed history.
//
// The caller-supplied counterpart is only honored when the caller owns
// the listing; for everyone else the counterpart is forced to the
// listing owner, so a session cannot fabricate a conversation with an
// arbitrary third identity.
func (h *Hub) Join(ctx context.Context, s *Session, listingID, counterpartID int64) (string, []models.Message, error) {
	sctx, cancel := context.WithTimeout(ctx, h.opts.StoreTimeout)
	listing, err := h.listings.Listing(sctx, listingID)
	cancel()
	if err != nil {
		return "", nil, err
	}

	counterpart := listing.OwnerID
	if s.UserID == listing.OwnerID {
		counterpart = counterpartID
	}
	if counterpart <= 0 {
		return "", nil, chaterr.Validation("counterpart is required")
	}
	if counterpart == s.UserID {
		return "", nil, chaterr.Validation("cannot open a conversation with yourself")
	}

	desc := models.NewRoomDescriptor(listing.ID, s.UserID, counterpart)
	roomID := desc.ID()

	// Membership is exclusive: release any other room first.
	if current, ok := s.Room(); ok && current != desc {
		h.removeMember(s, current.ID())
		s.setRoom(nil)
	}

	// Holding the room lock across member-add and history load means no
	// message can land in the gap between replayed history and live
	// broadcast, and none is delivered twice. The re-check under h.mu
	// catches the last member leaving between lookup and lock, which
	// deletes the room and would leave us joined to orphaned state.
	var rs *roomState
	for {
		rs = h.roomFor(desc)
		rs.mu.Lock()
		h.mu.Lock()
		if h.rooms[roomID] == rs {
			rs.members[s] = struct{}{}
			h.mu.Unlock()
			break
		}
		h.mu.Unlock()
		rs.mu.Unlock()
	}

	sctx, cancel = context.WithTimeout(ctx, h.opts.StoreTimeout)
	start := time.Now()
	history, err := h.store.RecentMessages(sctx, roomID, h.opts.HistoryLimit)
	cancel()
	metrics.StoreLatency.WithLabelValues("recent_messages").Observe(time.Since(start).Seconds())
	if err != nil {
		h.mu.Lock()
		delete(rs.members, s)
		if len(rs.members) == 0 {
			delete(h.rooms, roomID)
		}
		h.mu.Unlock()
		rs.mu.Unlock()
		return "", nil, chaterr.Persistence(err, "history load failed")
	}

	s.setRoom(&desc)
	rs.mu.Unlock()

	// Room-scoped read receipt: everything the counterpart sent so far
	// is now read, and the caller's unread counter resets.
	h.markRead(ctx, s.UserID, roomID)

	return roomID, history, nil
}

// Leave releases the session's room, returning it to the plain
// authenticated state.
func (h *Hub) Leave(s *Session) {
	if room, ok := s.Room(); ok {
		h.removeMember(s, room.ID())
		s.setRoom(nil)
	}
}

// Publish validates, durably persists and then fans out one message.
// Persistence strictly precedes delivery: a message that failed to
// persist is never broadcast. Exactly one notification dispatch per
// publish runs asynchronously; its failures never unwind the publish.
func (h *Hub) Publish(ctx context.Context, s *Session, roomID, body string) error {
	if strings.TrimSpace(body) == "" {
		metrics.MessagesRejected.WithLabelValues("empty").Inc()
		return chaterr.Validation("message body is empty")
	}
	if len(body) > h.opts.MaxMessageBytes {
		metrics.MessagesRejected.WithLabelValues("oversized").Inc()
		return chaterr.Validation("message body exceeds %d bytes", h.opts.MaxMessageBytes)
	}

	room, ok := s.Room()
	if !ok || room.ID() != roomID {
		metrics.MessagesRejected.WithLabelValues("not_joined").Inc()
		return chaterr.Authorization("session has not joined room %s", roomID)
	}

	if !h.limiter.Allow(ctx, s.UserID) {
		metrics.MessagesRejected.WithLabelValues("rate_limited").Inc()
		return chaterr.RateLimited("too many messages, slow down")
	}

	h.mu.RLock()
	rs := h.rooms[roomID]
	h.mu.RUnlock()
	if rs == nil {
		metrics.MessagesRejected.WithLabelValues("not_joined").Inc()
		return chaterr.Authorization("session has not joined room %s", roomID)
	}

	var slow []*Session

	rs.mu.Lock()
	// Stamped under the room lock: insert order and (created_at, id)
	// order have to be the same thing, or a recipient's live delivery
	// could contradict what history replay returns.
	now := time.Now().UTC()
	msg := models.Message{
		ID:        h.newULID(now),
		RoomID:    roomID,
		SenderID:  s.UserID,
		Body:      body,
		CreatedAt: now,
	}

	sctx, cancel := context.WithTimeout(ctx, h.opts.StoreTimeout)
	start := time.Now()
	err := h.store.InsertMessage(sctx, &msg)
	cancel()
	metrics.StoreLatency.WithLabelValues("insert_message").Observe(time.Since(start).Seconds())
	if err != nil {
		rs.mu.Unlock()
		metrics.MessagesRejected.WithLabelValues("persistence").Inc()
		return chaterr.Persistence(err, "message not stored")
	}

	data := encode(messageEvent(msg))
	h.mu.RLock()
	for member := range rs.members {
		if member.enqueue(data) {
			metrics.BroadcastsDelivered.Inc()
		} else {
			slow = append(slow, member)
		}
	}
	h.mu.RUnlock()
	rs.mu.Unlock()

	// A full outbound queue means the peer stopped draining; dropping a
	// broadcast would break in-room ordering, so the session goes away
	// instead and replays on reconnect.
	for _, member := range slow {
		metrics.SlowSessionsDropped.Inc()
		h.log.Warn().
			Stringer("session", member.ID).
			Int64("user", member.UserID).
			Msg("dropping slow session")
		go h.Unregister(member)
	}

	metrics.MessagesPublished.Inc()

	go h.dispatch.Dispatch(room.Counterpart(s.UserID), room, msg)

	return nil
}

// Typing broadcasts an ephemeral typing state to the other members of
// the session's room. Lossy: no persistence, no delivery guarantee,
// never echoed to the sender.
func (h *Hub) Typing(s *Session, roomID string, typing bool) error {
	room, ok := s.Room()
	if !ok || room.ID() != roomID {
		return chaterr.Authorization("session has not joined room %s", roomID)
	}

	h.mu.RLock()
	rs := h.rooms[roomID]
	if rs == nil {
		h.mu.RUnlock()
		return nil
	}
	data := encode(typingEvent(roomID, s.UserID, typing))
	for member := range rs.members {
		if member != s {
			member.enqueue(data)
		}
	}
	h.mu.RUnlock()
	return nil
}

// MarkRead applies the room-scoped read receipt for the session's
// joined room. Store failures are logged, never surfaced: the counter
// machinery is best-effort by contract.
func (h *Hub) MarkRead(ctx context.Context, s *Session, roomID string) error {
	room, ok := s.Room()
	if !ok || room.ID() != roomID {
		return chaterr.Authorization("session has not joined room %s", roomID)
	}
	h.markRead(ctx, s.UserID, roomID)
	return nil
}

// markRead flags counterpart messages and chat notifications as read
// and resets the unread counter. Each mutation is a single atomic
// statement, so a concurrent increment cannot interleave into an
// inconsistent counter.
func (h *Hub) markRead(ctx context.Context, userID int64, roomID string) {
	sctx, cancel := context.WithTimeout(ctx, h.opts.StoreTimeout)
	defer cancel()

	if err := h.store.MarkRoomRead(sctx, roomID, userID); err != nil {
		h.log.Error().Err(err).Str("room", roomID).Int64("user", userID).Msg("read mark failed")
	}
	if err := h.store.ResetUnread(sctx, userID, roomID); err != nil {
		h.log.Error().Err(err).Str("room", roomID).Int64("user", userID).Msg("unread reset failed")
	}
	if err := h.store.MarkNotificationsRead(sctx, userID, roomID); err != nil {
		h.log.Error().Err(err).Str("room", roomID).Int64("user", userID).Msg("notification read mark failed")
	}
}

// replayBacklog pushes every unread notification to a fresh session,
// enriching chat payloads with the listing display name.
func (h *Hub) replayBacklog(ctx context.Context, s *Session) {
	sctx, cancel := context.WithTimeout(ctx, h.opts.StoreTimeout)
	defer cancel()

	backlog, err := h.store.UnreadNotifications(sctx, s.UserID)
	if err != nil {
		// Best-effort: the records stay unread and replay on the next
		// connect.
		h.log.Error().Err(err).Int64("user", s.UserID).Msg("backlog load failed")
		return
	}

	for i := range backlog {
		h.enrichNotification(sctx, &backlog[i])
		if !s.enqueue(encode(notificationEvent(backlog[i]))) {
			// Same policy as a slow broadcast consumer: a gap in the
			// replay would silently lose notifications, so the session
			// goes away and the records stay unread for the next
			// connect.
			metrics.SlowSessionsDropped.Inc()
			h.log.Warn().
				Stringer("session", s.ID).
				Int64("user", s.UserID).
				Int("pending", len(backlog)-i).
				Msg("outbound queue full during backlog replay, dropping session")
			h.Unregister(s)
			return
		}
		metrics.BacklogReplayed.Inc()
	}
}

// enrichNotification fills in the listing display name on chat message
// payloads that lack it.
func (h *Hub) enrichNotification(ctx context.Context, n *models.Notification) {
	if n.Type != models.NotificationTypeMessage || len(n.Payload) == 0 {
		return
	}
	var payload models.MessagePayload
	if err := json.Unmarshal(n.Payload, &payload); err != nil {
		return
	}
	if payload.ListingName != "" || payload.ListingID == 0 {
		return
	}
	listing, err := h.listings.Listing(ctx, payload.ListingID)
	if err != nil {
		return
	}
	payload.ListingName = listing.Title
	if raw, err := json.Marshal(payload); err == nil {
		n.Payload = raw
	}
}

// roomFor returns the live state for a descriptor, creating it when the
// first participant joins.
func (h *Hub) roomFor(desc models.RoomDescriptor) *roomState {
	id := desc.ID()
	h.mu.Lock()
	defer h.mu.Unlock()
	rs, ok := h.rooms[id]
	if !ok {
		rs = &roomState{desc: desc, members: make(map[*Session]struct{})}
		h.rooms[id] = rs
	}
	return rs
}

// removeMember drops a session from a room, deleting the room once
// empty.
func (h *Hub) removeMember(s *Session, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rs, ok := h.rooms[roomID]
	if !ok {
		return
	}
	delete(rs.members, s)
	if len(rs.members) == 0 {
		delete(h.rooms, roomID)
	}
}

func (h *Hub) newULID(t time.Time) string {
	h.entropyMu.Lock()
	defer h.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), h.entropy).String()
}
