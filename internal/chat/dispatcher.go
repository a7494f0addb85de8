package chat

import (
	"context"
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/rentora/chatd/internal/directory"
	"github.com/rentora/chatd/internal/metrics"
	"github.com/rentora/chatd/internal/models"
	"github.com/rentora/chatd/internal/store"
)

// snippetLen caps the notification body preview.
const snippetLen = 120

// Dispatcher delivers the "new message" side channel: a live push to
// every active session of the recipient, plus the durable notification
// record and unread counter bump. The whole path is best-effort
// relative to the publish that triggered it; failures are logged and
// counted, never propagated back.
type Dispatcher struct {
	log      zerolog.Logger
	store    store.DataStore
	presence *Registry
	users    directory.IdentityLookup
	listings directory.ResourceLookup
	timeout  time.Duration
}

func newDispatcher(
	log zerolog.Logger,
	ds store.DataStore,
	presence *Registry,
	users directory.IdentityLookup,
	listings directory.ResourceLookup,
	timeout time.Duration,
) *Dispatcher {
	return &Dispatcher{
		log:      log,
		store:    ds,
		presence: presence,
		users:    users,
		listings: listings,
		timeout:  timeout,
	}
}

// Dispatch runs once per published message. The durable record and the
// counter increment happen regardless of the recipient's presence: a
// live room broadcast does not count as acknowledgment, only an
// explicit read mark does.
func (d *Dispatcher) Dispatch(recipientID int64, room models.RoomDescriptor, msg models.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	// Display context is decoration; a failed lookup degrades the
	// notification, it doesn't stop it.
	title := "New message"
	payload := models.MessagePayload{
		RoomID:    msg.RoomID,
		ListingID: room.ListingID,
		MessageID: msg.ID,
		SenderID:  msg.SenderID,
	}
	if sender, err := d.users.User(ctx, msg.SenderID); err == nil {
		payload.SenderName = sender.Name
		title = "New message from " + sender.Name
	}
	if listing, err := d.listings.Listing(ctx, room.ListingID); err == nil {
		payload.ListingName = listing.Title
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		raw = []byte("{}")
	}

	n := models.Notification{
		ID:          ulid.Make().String(),
		RecipientID: recipientID,
		Type:        models.NotificationTypeMessage,
		Title:       title,
		Body:        snippet(msg.Body),
		Payload:     raw,
		CreatedAt:   msg.CreatedAt,
	}

	start := time.Now()
	if err := d.store.InsertNotification(ctx, &n); err != nil {
		metrics.DispatchFailures.WithLabelValues("notification").Inc()
		d.log.Error().Err(err).Int64("recipient", recipientID).Msg("notification write failed")
	} else {
		metrics.NotificationsWritten.Inc()
	}
	metrics.StoreLatency.WithLabelValues("insert_notification").Observe(time.Since(start).Seconds())

	if err := d.store.IncrementUnread(ctx, recipientID, msg.RoomID, msg.ID); err != nil {
		metrics.DispatchFailures.WithLabelValues("counter").Inc()
		d.log.Error().Err(err).Int64("recipient", recipientID).Str("room", msg.RoomID).Msg("unread increment failed")
	}

	data := encode(notificationEvent(n))
	for _, session := range d.presence.Sessions(recipientID) {
		if !session.enqueue(data) {
			metrics.DispatchFailures.WithLabelValues("push").Inc()
			d.log.Debug().
				Stringer("session", session.ID).
				Int64("recipient", recipientID).
				Msg("live push dropped")
		}
	}
}

// snippet truncates a message body for notification display.
func snippet(body string) string {
	runes := []rune(body)
	if len(runes) <= snippetLen {
		return body
	}
	return string(runes[:snippetLen]) + "…"
}
