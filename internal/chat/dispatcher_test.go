package chat

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentora/chatd/internal/directory"
	"github.com/rentora/chatd/internal/models"
	"github.com/rentora/chatd/internal/store"
)

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short", snippet("short"))

	long := strings.Repeat("ж", 200)
	got := snippet(long)
	assert.Equal(t, strings.Repeat("ж", 120)+"…", got)

	exact := strings.Repeat("a", 120)
	assert.Equal(t, exact, snippet(exact))
}

func TestDispatchSurvivesMissingDisplayContext(t *testing.T) {
	mem := store.NewMemoryStore()
	ctx := context.Background()
	dir := directory.New(mem)
	d := newDispatcher(zerolog.Nop(), mem, NewRegistry(), dir, dir, time.Second)

	// Sender and listing were never created: lookups fail, the durable
	// record still lands with a generic title.
	desc := models.NewRoomDescriptor(1, 2, 3)
	d.Dispatch(3, desc, models.Message{
		ID:        "01ARZ",
		RoomID:    desc.ID(),
		SenderID:  2,
		Body:      "hello",
		CreatedAt: time.Now().UTC(),
	})

	unread, err := mem.UnreadNotifications(ctx, 3)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "New message", unread[0].Title)
	assert.Equal(t, "hello", unread[0].Body)

	c, err := mem.GetUnread(ctx, 3, desc.ID())
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, int64(1), c.Count)
	assert.Equal(t, "01ARZ", c.LastMessageID)
}
