package service

import (
	"errors"

	"github.com/immxrtalbeast/axenix_meet/internal/roomcode"
)

var (
	ErrInvalidCode        = roomcode.ErrInvalid
	ErrRoomNotFound       = errors.New("room does not exist")
	ErrRoomExpired        = errors.New("room expired")
	ErrIdentityRequired   = errors.New("name and email are required")
	ErrNotCreator         = errors.New("only the room creator can close it")
	ErrCodeExhausted      = errors.New("could not allocate a free room code")
	ErrWatchNotSupported  = errors.New("room store does not support watching")
	ErrPeerNotFound       = errors.New("peer not found")
	ErrUnsupportedSignal  = errors.New("unsupported signal type")
	ErrInvalidChatMessage = errors.New("invalid chat message")
)
