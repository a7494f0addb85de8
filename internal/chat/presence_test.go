package chat

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func testSession(userID int64) *Session {
	return &Session{ID: uuid.New(), UserID: userID, send: make(chan []byte, 4)}
}

func TestRegistryMultipleDevices(t *testing.T) {
	r := NewRegistry()

	phone := testSession(5)
	laptop := testSession(5)

	r.Add(phone)
	r.Add(laptop)
	assert.True(t, r.Online(5))
	assert.Len(t, r.Sessions(5), 2)

	r.Remove(phone)
	assert.True(t, r.Online(5), "one device left")

	r.Remove(laptop)
	r.Remove(laptop) // idempotent
	assert.False(t, r.Online(5))
	assert.Nil(t, r.Sessions(5))
}

func TestRegistryIsolatesUsers(t *testing.T) {
	r := NewRegistry()
	a := testSession(1)
	b := testSession(2)

	r.Add(a)
	r.Add(b)
	r.Remove(a)

	assert.False(t, r.Online(1))
	assert.True(t, r.Online(2))
}
