package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoomDescriptorOrderIndependent(t *testing.T) {
	a := NewRoomDescriptor(1, 9, 10)
	b := NewRoomDescriptor(1, 10, 9)

	assert.Equal(t, a, b)
	assert.Equal(t, a.ID(), b.ID())
	assert.Equal(t, int64(9), a.ParticipantLow)
	assert.Equal(t, int64(10), a.ParticipantHi)
}

func TestRoomDescriptorID(t *testing.T) {
	d := NewRoomDescriptor(1, 10, 9)
	assert.Equal(t, "listing-1-chat-9-10", d.ID())

	// Distinct listings or pairs never collide.
	assert.NotEqual(t, d.ID(), NewRoomDescriptor(2, 9, 10).ID())
	assert.NotEqual(t, d.ID(), NewRoomDescriptor(1, 9, 11).ID())
}

func TestRoomDescriptorCounterpart(t *testing.T) {
	d := NewRoomDescriptor(1, 9, 10)

	assert.Equal(t, int64(10), d.Counterpart(9))
	assert.Equal(t, int64(9), d.Counterpart(10))
	assert.True(t, d.HasParticipant(9))
	assert.True(t, d.HasParticipant(10))
	assert.False(t, d.HasParticipant(11))
}
