package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"quizroom-service/internal/app"
	"quizroom-service/internal/infra/memory"
)

// RoomStore is a Redis-aware implementation of app.RoomRepository.
// Notes:
//   - Rooms still live in process; the coordinator is the single authority for them.
//   - Redis holds a liveness marker per room so operators and other tooling can see
//     which codes are in use. Markers expire on their own if the process dies.
type RoomStore struct {
	*memory.RoomStore

	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRoomStore(client redis.UniversalClient, factory app.RoomFactory, prefix string, ttl time.Duration) *RoomStore {
	return &RoomStore{
		RoomStore: memory.NewRoomStore(factory),
		client:    client,
		prefix:    prefix,
		ttl:       ttl,
	}
}

// GetOrCreate returns the room and refreshes its liveness marker.
func (s *RoomStore) GetOrCreate(code string) *app.Room {
	room := s.RoomStore.GetOrCreate(code)
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(code), room.CreatedAt().Unix(), s.ttl).Err()
	return room
}

func (s *RoomStore) DeleteIfEmpty(code string) {
	s.RoomStore.DeleteIfEmpty(code)
	if _, ok := s.RoomStore.Get(code); !ok {
		_ = s.client.Del(context.Background(), s.key(code)).Err()
	}
}

func (s *RoomStore) Close() {
	rooms := s.RoomStore.List()
	s.RoomStore.Close()

	keys := make([]string, 0, len(rooms))
	for _, room := range rooms {
		keys = append(keys, s.key(room.Code()))
	}
	if len(keys) > 0 {
		_ = s.client.Del(context.Background(), keys...).Err()
	}
}

// Live reports whether a liveness marker exists for code.
func (s *RoomStore) Live(ctx context.Context, code string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(code)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RoomStore) key(code string) string {
	return s.prefix + ":room:" + code
}
