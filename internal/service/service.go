package service

import (
	"context"

	"github.com/immxrtalbeast/axenix_meet/internal/domain"
)

type MeetInteractor interface {
	NewCode() string
	StartMeeting(ctx context.Context, identity domain.Participant) (*MeetingStart, error)
	CompleteSignIn(ctx context.Context, code string, identity domain.Participant) (*domain.Room, error)
	JoinMeeting(ctx context.Context, rawCode string) (*domain.Room, error)
	GetRoom(ctx context.Context, code string) (*domain.Room, error)
	CloseRoom(ctx context.Context, code string, email string) error
	ListRooms(ctx context.Context) ([]*domain.Room, error)
	WatchRoom(ctx context.Context, code string) (<-chan domain.RoomEvent, error)
}

type SignalInteractor interface {
	RegisterPeer(ctx context.Context, code string, identity domain.Participant) (*domain.Peer, error)
	UnregisterPeer(ctx context.Context, code string, peerID string) error
	HandleSignal(ctx context.Context, code string, peerID string, message *domain.SignalMessage) error
	ListPeers(ctx context.Context, code string) ([]*domain.Peer, error)
	CloseMeeting(code string)
}
