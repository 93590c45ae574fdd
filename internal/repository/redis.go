package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/immxrtalbeast/axenix_meet/internal/domain"
	"github.com/redis/go-redis/v9"
)

const scanBatch = 100

// RedisRoomRepository keeps each room as a JSON value at {prefix}rooms:{code}.
// Changes are published on {prefix}rooms:{code}:events.
type RedisRoomRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisRoomRepository(client *redis.Client, prefix string) *RedisRoomRepository {
	return &RedisRoomRepository{client: client, prefix: prefix}
}

func (r *RedisRoomRepository) roomKey(code string) string {
	return r.prefix + strings.ReplaceAll(domain.RoomKey(code), "/", ":")
}

func (r *RedisRoomRepository) eventsKey(code string) string {
	return r.roomKey(code) + ":events"
}

func (r *RedisRoomRepository) Get(ctx context.Context, code string) (*domain.Room, error) {
	data, err := r.client.Get(ctx, r.roomKey(code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("redis get room %s: %w", code, err)
	}

	var room domain.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, fmt.Errorf("decode room %s: %w", code, err)
	}
	return &room, nil
}

func (r *RedisRoomRepository) Exists(ctx context.Context, code string) (bool, error) {
	n, err := r.client.Exists(ctx, r.roomKey(code)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists room %s: %w", code, err)
	}
	return n > 0, nil
}

func (r *RedisRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	if room == nil {
		return errors.New("room is nil")
	}

	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("encode room %s: %w", room.Code, err)
	}

	var ttl time.Duration
	if !room.ExpiresAt.IsZero() {
		ttl = time.Until(room.ExpiresAt)
		if ttl <= 0 {
			return fmt.Errorf("room %s already expired", room.Code)
		}
	}

	ok, err := r.client.SetNX(ctx, r.roomKey(room.Code), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("redis create room %s: %w", room.Code, err)
	}
	if !ok {
		return ErrRoomExists
	}

	r.publish(ctx, domain.RoomEvent{Type: domain.RoomEventCreated, Code: room.Code, Room: room})
	return nil
}

func (r *RedisRoomRepository) Delete(ctx context.Context, code string) error {
	n, err := r.client.Del(ctx, r.roomKey(code)).Result()
	if err != nil {
		return fmt.Errorf("redis delete room %s: %w", code, err)
	}
	if n == 0 {
		return ErrRoomNotFound
	}

	r.publish(ctx, domain.RoomEvent{Type: domain.RoomEventDeleted, Code: code})
	return nil
}

func (r *RedisRoomRepository) List(ctx context.Context) ([]*domain.Room, error) {
	pattern := r.roomKey("*")
	iter := r.client.Scan(ctx, 0, pattern, scanBatch).Iterator()

	var rooms []*domain.Room
	for iter.Next(ctx) {
		code := strings.TrimPrefix(iter.Val(), r.roomKey(""))
		room, err := r.Get(ctx, code)
		if err != nil {
			// expired between SCAN and GET
			if errors.Is(err, ErrRoomNotFound) {
				continue
			}
			return nil, err
		}
		rooms = append(rooms, room)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan rooms: %w", err)
	}

	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
	})
	return rooms, nil
}

func (r *RedisRoomRepository) Watch(ctx context.Context, code string) (<-chan domain.RoomEvent, error) {
	sub := r.client.Subscribe(ctx, r.eventsKey(code))
	// wait for the subscription so no change between it and the initial read is lost
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("redis subscribe room %s: %w", code, err)
	}

	initial := domain.RoomEvent{Type: domain.RoomEventValue, Code: code}
	room, err := r.Get(ctx, code)
	switch {
	case err == nil:
		initial.Room = room
	case !errors.Is(err, ErrRoomNotFound):
		_ = sub.Close()
		return nil, err
	}

	out := make(chan domain.RoomEvent, watchBuffer)
	out <- initial

	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var event domain.RoomEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// publish is best effort: the write already happened.
func (r *RedisRoomRepository) publish(ctx context.Context, event domain.RoomEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	_ = r.client.Publish(ctx, r.eventsKey(event.Code), data).Err()
}
