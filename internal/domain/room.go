package domain

import (
	"time"
)

const roomsNamespace = "rooms"

// Room is a meeting record keyed by its short code under rooms/{code}.
type Room struct {
	Code            string    `json:"code"`
	CreatorName     string    `json:"creator_name"`
	CreatorEmail    string    `json:"creator_email"`
	ParticipantsRef string    `json:"participants_ref"`
	CreatedAt       time.Time `json:"created_at"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// NewRoom builds the record written when a meeting is created.
// A non-positive lifetime means the room never expires.
func NewRoom(code string, creator Participant, lifetime time.Duration) *Room {
	now := time.Now().UTC()
	room := &Room{
		Code:            code,
		CreatorName:     creator.Name,
		CreatorEmail:    creator.Email,
		ParticipantsRef: ParticipantsKey(code),
		CreatedAt:       now,
	}
	if lifetime > 0 {
		room.ExpiresAt = now.Add(lifetime)
	}
	return room
}

// IsExpired reports whether the room is no longer valid at now.
func (r *Room) IsExpired(now time.Time) bool {
	if r == nil {
		return true
	}
	if r.ExpiresAt.IsZero() {
		return false
	}
	return now.After(r.ExpiresAt)
}

// RoomKey is the database path of a room record.
func RoomKey(code string) string {
	return roomsNamespace + "/" + code
}

// RoomsKey is the database path holding all rooms.
func RoomsKey() string {
	return roomsNamespace
}

func ParticipantsKey(code string) string {
	return RoomKey(code) + "/participants"
}
