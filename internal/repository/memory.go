package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/immxrtalbeast/axenix_meet/internal/domain"
)

const watchBuffer = 8

type InMemoryRoomRepository struct {
	mu       sync.RWMutex
	rooms    map[string]*domain.Room
	watchers map[string]map[chan domain.RoomEvent]struct{}
}

func NewInMemoryRoomRepository() *InMemoryRoomRepository {
	return &InMemoryRoomRepository{
		rooms:    make(map[string]*domain.Room),
		watchers: make(map[string]map[chan domain.RoomEvent]struct{}),
	}
}

func (r *InMemoryRoomRepository) Get(ctx context.Context, code string) (*domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}

	cp := *room
	return &cp, nil
}

func (r *InMemoryRoomRepository) Exists(ctx context.Context, code string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.rooms[code]
	return ok, nil
}

func (r *InMemoryRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[room.Code]; ok {
		return ErrRoomExists
	}

	cp := *room
	r.rooms[room.Code] = &cp
	r.notify(domain.RoomEvent{Type: domain.RoomEventCreated, Code: room.Code, Room: &cp})
	return nil
}

func (r *InMemoryRoomRepository) Delete(ctx context.Context, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[code]; !ok {
		return ErrRoomNotFound
	}

	delete(r.rooms, code)
	r.notify(domain.RoomEvent{Type: domain.RoomEventDeleted, Code: code})
	return nil
}

func (r *InMemoryRoomRepository) List(ctx context.Context) ([]*domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		cp := *room
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *InMemoryRoomRepository) Watch(ctx context.Context, code string) (<-chan domain.RoomEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := make(chan domain.RoomEvent, watchBuffer)

	r.mu.Lock()
	if r.watchers[code] == nil {
		r.watchers[code] = make(map[chan domain.RoomEvent]struct{})
	}
	r.watchers[code][ch] = struct{}{}

	initial := domain.RoomEvent{Type: domain.RoomEventValue, Code: code}
	if room, ok := r.rooms[code]; ok {
		cp := *room
		initial.Room = &cp
	}
	ch <- initial
	r.mu.Unlock()

	go func() {
		<-ctx.Done()
		r.mu.Lock()
		delete(r.watchers[code], ch)
		if len(r.watchers[code]) == 0 {
			delete(r.watchers, code)
		}
		close(ch)
		r.mu.Unlock()
	}()

	return ch, nil
}

// notify must be called with mu held.
func (r *InMemoryRoomRepository) notify(event domain.RoomEvent) {
	for ch := range r.watchers[event.Code] {
		select {
		case ch <- event:
		default:
		}
	}
}
