package domain

type RoomEventType string

const (
	// RoomEventValue carries the current value when a watch starts.
	RoomEventValue   RoomEventType = "value"
	RoomEventCreated RoomEventType = "created"
	RoomEventDeleted RoomEventType = "deleted"
)

// RoomEvent is emitted by room watchers. Room is nil when the record is absent.
type RoomEvent struct {
	Type RoomEventType `json:"type"`
	Code string        `json:"code"`
	Room *Room         `json:"room"`
}

// Exists reports whether the event describes a present room.
func (e RoomEvent) Exists() bool {
	return e.Room != nil && e.Type != RoomEventDeleted
}
