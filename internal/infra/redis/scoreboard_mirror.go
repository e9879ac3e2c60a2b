package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"quizroom-service/internal/domain"
	"quizroom-service/internal/event"
)

// ScoreboardMirror copies room standings into Redis so they can be read without
// touching the room:
//
//	ZADD {prefix}:{code}:scoreboard GT {score} {playerID}
//	HSET {prefix}:{code}:names {playerID} {nickname}
//
// Scores only grow within a game, so GT keeps late or reordered events from
// rolling a score back. The keys are cleared when a new game starts.
type ScoreboardMirror struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewScoreboardMirror(client redis.UniversalClient, prefix string, ttl time.Duration) *ScoreboardMirror {
	return &ScoreboardMirror{client: client, prefix: prefix, ttl: ttl}
}

// Register subscribes the mirror to room events on bus.
func (m *ScoreboardMirror) Register(bus *event.Bus) {
	bus.Subscribe(domain.EventNameScoreboardUpdated, func(ctx context.Context, e event.Event) error {
		ev := e.(domain.EventScoreboardUpdated)
		return m.Apply(ctx, ev.RoomCode, ev.Scoreboard)
	})
	bus.Subscribe(domain.EventNameGameOver, func(ctx context.Context, e event.Event) error {
		ev := e.(domain.EventGameOver)
		return m.Apply(ctx, ev.RoomCode, ev.FinalScoreboard)
	})
	bus.Subscribe(domain.EventNameGameStarted, func(ctx context.Context, e event.Event) error {
		return m.Reset(ctx, e.(domain.EventGameStarted).RoomCode)
	})
	bus.Subscribe(domain.EventNameGameReset, func(ctx context.Context, e event.Event) error {
		return m.Reset(ctx, e.(domain.EventGameReset).RoomCode)
	})
	bus.Subscribe(domain.EventNameRoomClosed, func(ctx context.Context, e event.Event) error {
		return m.Reset(ctx, e.(domain.EventRoomClosed).RoomCode)
	})
}

// Apply writes a scoreboard for a room.
func (m *ScoreboardMirror) Apply(ctx context.Context, code string, board []domain.ScoreEntry) error {
	if len(board) == 0 {
		return nil
	}

	members := make([]redis.Z, 0, len(board))
	names := make([]interface{}, 0, 2*len(board))
	for _, e := range board {
		members = append(members, redis.Z{Score: float64(e.Score), Member: e.ID})
		names = append(names, e.ID, e.Nickname)
	}

	pipe := m.client.TxPipeline()
	pipe.ZAddArgs(ctx, m.scoreKey(code), redis.ZAddArgs{GT: true, Members: members})
	pipe.HSet(ctx, m.namesKey(code), names...)
	if m.ttl > 0 {
		pipe.Expire(ctx, m.scoreKey(code), m.ttl)
		pipe.Expire(ctx, m.namesKey(code), m.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("mirror scoreboard: room=%s: %w", code, err)
	}
	return nil
}

// Reset removes a room's mirrored standings.
func (m *ScoreboardMirror) Reset(ctx context.Context, code string) error {
	if err := m.client.Del(ctx, m.scoreKey(code), m.namesKey(code)).Err(); err != nil {
		return fmt.Errorf("reset scoreboard: room=%s: %w", code, err)
	}
	return nil
}

// Standings returns the mirrored scoreboard, highest first.
func (m *ScoreboardMirror) Standings(ctx context.Context, code string) ([]domain.ScoreEntry, error) {
	res, err := m.client.ZRevRangeWithScores(ctx, m.scoreKey(code), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("get standings: %w", err)
	}
	if len(res) == 0 {
		return nil, fmt.Errorf("standings for %s: %w", code, domain.ErrRoomNotFound)
	}

	ids := make([]string, 0, len(res))
	for _, z := range res {
		ids = append(ids, z.Member.(string))
	}
	names, err := m.client.HMGet(ctx, m.namesKey(code), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("get standings names: %w", err)
	}

	entries := make([]domain.ScoreEntry, 0, len(res))
	for i, z := range res {
		nickname, _ := names[i].(string)
		entries = append(entries, domain.ScoreEntry{
			ID:       ids[i],
			Nickname: nickname,
			Score:    int(z.Score),
		})
	}
	return entries, nil
}

func (m *ScoreboardMirror) scoreKey(code string) string {
	return fmt.Sprintf("%s:%s:scoreboard", m.prefix, code)
}

func (m *ScoreboardMirror) namesKey(code string) string {
	return fmt.Sprintf("%s:%s:names", m.prefix, code)
}
