package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"github.com/immxrtalbeast/axenix_meet/internal/domain"
	"google.golang.org/api/option"
)

const defaultPollInterval = 2 * time.Second

// FirebaseRoomRepository talks to a Firebase Realtime Database. A null value
// at rooms/{code} means the room does not exist.
type FirebaseRoomRepository struct {
	client       *db.Client
	pollInterval time.Duration
}

// NewFirebaseClient opens the Realtime Database client for databaseURL.
// An empty credentialsFile falls back to application default credentials.
func NewFirebaseClient(ctx context.Context, databaseURL, credentialsFile string) (*db.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{DatabaseURL: databaseURL}, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}

	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase database: %w", err)
	}
	return client, nil
}

func NewFirebaseRoomRepository(client *db.Client, pollInterval time.Duration) *FirebaseRoomRepository {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &FirebaseRoomRepository{client: client, pollInterval: pollInterval}
}

func (r *FirebaseRoomRepository) Get(ctx context.Context, code string) (*domain.Room, error) {
	var room *domain.Room
	if err := r.client.NewRef(domain.RoomKey(code)).Get(ctx, &room); err != nil {
		return nil, fmt.Errorf("firebase get room %s: %w", code, err)
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

func (r *FirebaseRoomRepository) Exists(ctx context.Context, code string) (bool, error) {
	_, err := r.Get(ctx, code)
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *FirebaseRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	if room == nil {
		return errors.New("room is nil")
	}

	taken := false
	err := r.client.NewRef(domain.RoomKey(room.Code)).Transaction(ctx, func(node db.TransactionNode) (interface{}, error) {
		var current *domain.Room
		if err := node.Unmarshal(&current); err != nil {
			return nil, err
		}
		if current != nil {
			taken = true
			return nil, ErrRoomExists
		}
		return room, nil
	})
	if taken {
		return ErrRoomExists
	}
	if err != nil {
		return fmt.Errorf("firebase create room %s: %w", room.Code, err)
	}
	return nil
}

func (r *FirebaseRoomRepository) Delete(ctx context.Context, code string) error {
	exists, err := r.Exists(ctx, code)
	if err != nil {
		return err
	}
	if !exists {
		return ErrRoomNotFound
	}

	if err := r.client.NewRef(domain.RoomKey(code)).Delete(ctx); err != nil {
		return fmt.Errorf("firebase delete room %s: %w", code, err)
	}
	return nil
}

func (r *FirebaseRoomRepository) List(ctx context.Context) ([]*domain.Room, error) {
	var all map[string]*domain.Room
	if err := r.client.NewRef(domain.RoomsKey()).Get(ctx, &all); err != nil {
		return nil, fmt.Errorf("firebase list rooms: %w", err)
	}

	rooms := make([]*domain.Room, 0, len(all))
	for _, room := range all {
		if room != nil {
			rooms = append(rooms, room)
		}
	}
	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
	})
	return rooms, nil
}

// Watch polls the room value; the Admin SDK has no streaming listeners.
func (r *FirebaseRoomRepository) Watch(ctx context.Context, code string) (<-chan domain.RoomEvent, error) {
	room, err := r.Get(ctx, code)
	if err != nil && !errors.Is(err, ErrRoomNotFound) {
		return nil, err
	}

	out := make(chan domain.RoomEvent, watchBuffer)
	out <- domain.RoomEvent{Type: domain.RoomEventValue, Code: code, Room: room}

	go func() {
		defer close(out)

		ticker := time.NewTicker(r.pollInterval)
		defer ticker.Stop()

		last := room
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			current, err := r.Get(ctx, code)
			if err != nil && !errors.Is(err, ErrRoomNotFound) {
				continue
			}

			event, changed := diffRoom(code, last, current)
			if !changed {
				continue
			}
			last = current

			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func diffRoom(code string, before, after *domain.Room) (domain.RoomEvent, bool) {
	switch {
	case before == nil && after != nil:
		return domain.RoomEvent{Type: domain.RoomEventCreated, Code: code, Room: after}, true
	case before != nil && after == nil:
		return domain.RoomEvent{Type: domain.RoomEventDeleted, Code: code}, true
	case before != nil && after != nil && !before.CreatedAt.Equal(after.CreatedAt):
		return domain.RoomEvent{Type: domain.RoomEventCreated, Code: code, Room: after}, true
	}
	return domain.RoomEvent{}, false
}
