package models

import "fmt"

// RoomDescriptor is the canonical identity of a two-party conversation:
// a listing plus its two participants with ids sorted ascending. Both
// participants derive the same descriptor regardless of join order.
//
// The opaque id derived from it is for keying and the wire only; it is
// never parsed back into its parts.
type RoomDescriptor struct {
	ListingID      int64 `json:"listing_id"`
	ParticipantLow int64 `json:"participant_low"`
	ParticipantHi  int64 `json:"participant_high"`
}

// NewRoomDescriptor builds the canonical descriptor for a listing and an
// unordered participant pair.
func NewRoomDescriptor(listingID, a, b int64) RoomDescriptor {
	if a > b {
		a, b = b, a
	}
	return RoomDescriptor{ListingID: listingID, ParticipantLow: a, ParticipantHi: b}
}

// ID returns the opaque room identifier.
func (d RoomDescriptor) ID() string {
	return fmt.Sprintf("listing-%d-chat-%d-%d", d.ListingID, d.ParticipantLow, d.ParticipantHi)
}

// Counterpart returns the participant other than userID.
func (d RoomDescriptor) Counterpart(userID int64) int64 {
	if userID == d.ParticipantLow {
		return d.ParticipantHi
	}
	return d.ParticipantLow
}

// HasParticipant reports whether userID is one of the two participants.
func (d RoomDescriptor) HasParticipant(userID int64) bool {
	return userID == d.ParticipantLow || userID == d.ParticipantHi
}
