package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/immxrtalbeast/axenix_meet/internal/domain"
	"github.com/immxrtalbeast/axenix_meet/internal/repository"
	"github.com/immxrtalbeast/axenix_meet/internal/roomcode"
	"github.com/immxrtalbeast/axenix_meet/lib/logger/sl"
)

const defaultCodeAttempts = 5

// MeetingStart is the outcome of pressing "create meeting". When
// NeedsIdentity is set nothing was written and Room is nil.
type MeetingStart struct {
	Code          string
	NeedsIdentity bool
	Room          *domain.Room
}

type MeetOptions struct {
	RoomLifetime time.Duration
	CodeAttempts int
}

type MeetService struct {
	rooms        repository.RoomRepository
	log          *slog.Logger
	lifetime     time.Duration
	codeAttempts int
	newCode      func() string
	now          func() time.Time
}

func NewMeetService(rooms repository.RoomRepository, log *slog.Logger, opts MeetOptions) *MeetService {
	if log == nil {
		log = slog.Default()
	}
	attempts := opts.CodeAttempts
	if attempts <= 0 {
		attempts = defaultCodeAttempts
	}
	return &MeetService{
		rooms:        rooms,
		log:          log,
		lifetime:     opts.RoomLifetime,
		codeAttempts: attempts,
		newCode:      roomcode.New,
		now:          time.Now,
	}
}

func (s *MeetService) NewCode() string {
	return s.newCode()
}

func (s *MeetService) StartMeeting(ctx context.Context, identity domain.Participant) (*MeetingStart, error) {
	const op = "service.meet.start"
	code := s.newCode()
	log := s.log.With(slog.String("op", op), slog.String("code", code))

	if !identity.Complete() {
		log.Info("identity missing, asking for it")
		return &MeetingStart{Code: code, NeedsIdentity: true}, nil
	}
	if err := identity.Validate(); err != nil {
		return nil, err
	}

	room, err := s.createRoom(ctx, code, identity)
	if err != nil {
		log.Error("failed to create room", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &MeetingStart{Code: room.Code, Room: room}, nil
}

func (s *MeetService) CompleteSignIn(ctx context.Context, code string, identity domain.Participant) (*domain.Room, error) {
	const op = "service.meet.complete_sign_in"
	log := s.log.With(slog.String("op", op), slog.String("code", code))

	if !identity.Complete() {
		return nil, ErrIdentityRequired
	}
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	if code == "" {
		code = s.newCode()
	}
	if err := roomcode.Validate(code); err != nil {
		return nil, ErrInvalidCode
	}

	room, err := s.createRoom(ctx, code, identity)
	if err != nil {
		log.Error("failed to create room", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return room, nil
}

func (s *MeetService) JoinMeeting(ctx context.Context, rawCode string) (*domain.Room, error) {
	const op = "service.meet.join"
	code := roomcode.Normalize(rawCode)
	log := s.log.With(slog.String("op", op), slog.String("code", code))

	if err := roomcode.Validate(code); err != nil {
		log.Debug("rejected malformed code")
		return nil, ErrInvalidCode
	}

	room, err := s.lookup(ctx, code)
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) || errors.Is(err, ErrRoomExpired) {
			log.Info("join refused", sl.Err(err))
			return nil, err
		}
		log.Error("failed to look up room", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("room found")
	return room, nil
}

func (s *MeetService) GetRoom(ctx context.Context, code string) (*domain.Room, error) {
	const op = "service.meet.get"
	if err := roomcode.Validate(code); err != nil {
		return nil, ErrInvalidCode
	}

	room, err := s.lookup(ctx, code)
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) || errors.Is(err, ErrRoomExpired) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return room, nil
}

func (s *MeetService) CloseRoom(ctx context.Context, code string, email string) error {
	const op = "service.meet.close"
	log := s.log.With(slog.String("op", op), slog.String("code", code))

	if err := roomcode.Validate(code); err != nil {
		return ErrInvalidCode
	}

	// expired rooms can still be closed
	room, err := s.rooms.Get(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return ErrRoomNotFound
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if !strings.EqualFold(strings.TrimSpace(email), room.CreatorEmail) {
		log.Warn("close refused, not the creator")
		return ErrNotCreator
	}

	if err := s.rooms.Delete(ctx, code); err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return ErrRoomNotFound
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("room closed")
	return nil
}

func (s *MeetService) ListRooms(ctx context.Context) ([]*domain.Room, error) {
	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.meet.list: %w", err)
	}

	now := s.now()
	live := rooms[:0]
	for _, room := range rooms {
		if !room.IsExpired(now) {
			live = append(live, room)
		}
	}
	return live, nil
}

func (s *MeetService) WatchRoom(ctx context.Context, code string) (<-chan domain.RoomEvent, error) {
	if err := roomcode.Validate(code); err != nil {
		return nil, ErrInvalidCode
	}

	watcher, ok := s.rooms.(repository.RoomWatcher)
	if !ok {
		return nil, ErrWatchNotSupported
	}

	events, err := watcher.Watch(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("service.meet.watch: %w", err)
	}
	return events, nil
}

func (s *MeetService) lookup(ctx context.Context, code string) (*domain.Room, error) {
	room, err := s.rooms.Get(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	if room.IsExpired(s.now()) {
		return nil, ErrRoomExpired
	}
	return room, nil
}

// createRoom writes the room under code, drawing a new code when it is taken.
func (s *MeetService) createRoom(ctx context.Context, code string, creator domain.Participant) (*domain.Room, error) {
	for attempt := 1; attempt <= s.codeAttempts; attempt++ {
		room := domain.NewRoom(code, creator, s.lifetime)
		err := s.rooms.Create(ctx, room)
		if err == nil {
			s.log.Info("room created",
				slog.String("code", room.Code),
				slog.String("creator", room.CreatorEmail),
				slog.Int("attempt", attempt),
			)
			return room, nil
		}
		if !errors.Is(err, repository.ErrRoomExists) {
			return nil, err
		}
		s.log.Warn("room code taken, retrying", slog.String("code", code), slog.Int("attempt", attempt))
		code = s.newCode()
	}
	return nil, ErrCodeExhausted
}
