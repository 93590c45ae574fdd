package repository

import (
	"context"
	"errors"

	"github.com/immxrtalbeast/axenix_meet/internal/domain"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomExists   = errors.New("room code already taken")
)

// RoomRepository is the room store contract: records live under rooms/{code}
// and a missing (null) record means the room does not exist.
type RoomRepository interface {
	Get(ctx context.Context, code string) (*domain.Room, error)
	Exists(ctx context.Context, code string) (bool, error)
	// Create writes room only if its code is free.
	Create(ctx context.Context, room *domain.Room) error
	Delete(ctx context.Context, code string) error
	List(ctx context.Context) ([]*domain.Room, error)
}

// RoomWatcher is implemented by stores that can listen on a room value.
// The channel first yields the current value and is closed when ctx ends.
type RoomWatcher interface {
	Watch(ctx context.Context, code string) (<-chan domain.RoomEvent, error)
}
