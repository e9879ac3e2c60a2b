package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"quizroom-service/internal/domain"
	"quizroom-service/internal/event"
)

func TestScoreboardMirrorStandings(t *testing.T) {
	_, client := newClient(t)
	mirror := NewScoreboardMirror(client, testPrefix, time.Hour)
	ctx := context.Background()

	_, err := mirror.Standings(ctx, "ABCD")
	require.ErrorIs(t, err, domain.ErrRoomNotFound)

	require.NoError(t, mirror.Apply(ctx, "ABCD", []domain.ScoreEntry{
		{ID: "a", Nickname: "Alice", Score: 95},
		{ID: "b", Nickname: "Bob", Score: 0},
	}))
	// a stale update never rolls a score back
	require.NoError(t, mirror.Apply(ctx, "ABCD", []domain.ScoreEntry{
		{ID: "b", Nickname: "Bob", Score: 180},
		{ID: "a", Nickname: "Alice", Score: 40},
	}))

	standings, err := mirror.Standings(ctx, "ABCD")
	require.NoError(t, err)
	require.Equal(t, []domain.ScoreEntry{
		{ID: "b", Nickname: "Bob", Score: 180},
		{ID: "a", Nickname: "Alice", Score: 95},
	}, standings)

	require.NoError(t, mirror.Reset(ctx, "ABCD"))
	_, err = mirror.Standings(ctx, "ABCD")
	require.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestScoreboardMirrorFollowsBus(t *testing.T) {
	mr, client := newClient(t)
	mirror := NewScoreboardMirror(client, testPrefix, time.Hour)
	bus := event.NewBus()
	mirror.Register(bus)
	ctx := context.Background()

	bus.Publish(ctx, domain.EventScoreboardUpdated{
		RoomCode:   "ABCD",
		Scoreboard: []domain.ScoreEntry{{ID: "a", Nickname: "Alice", Score: 10}},
	})
	require.Eventually(t, func() bool {
		return mr.Exists("quizroom:ABCD:scoreboard")
	}, time.Second, 5*time.Millisecond)

	bus.Publish(ctx, domain.EventRoomClosed{RoomCode: "ABCD"})
	require.Eventually(t, func() bool {
		return !mr.Exists("quizroom:ABCD:scoreboard")
	}, time.Second, 5*time.Millisecond)

	bus.Stop()
}

func TestScoreboardMirrorClearsOnGameReset(t *testing.T) {
	_, client := newClient(t)
	mirror := NewScoreboardMirror(client, testPrefix, time.Hour)
	bus := event.NewBus()
	mirror.Register(bus)
	ctx := context.Background()

	bus.Publish(ctx, domain.EventGameOver{
		RoomCode: "ABCD",
		FinalScoreboard: []domain.ScoreEntry{
			{ID: "a", Nickname: "Alice", Score: 950},
			{ID: "b", Nickname: "Bob", Score: 400},
		},
	})
	require.Eventually(t, func() bool {
		board, err := mirror.Standings(ctx, "ABCD")
		return err == nil && len(board) == 2
	}, time.Second, 5*time.Millisecond)

	bus.Publish(ctx, domain.EventGameReset{RoomCode: "ABCD"})
	require.Eventually(t, func() bool {
		_, err := mirror.Standings(ctx, "ABCD")
		return errors.Is(err, domain.ErrRoomNotFound)
	}, time.Second, 5*time.Millisecond)

	// Bob left; the next game's zeroed board holds only Alice
	require.NoError(t, mirror.Apply(ctx, "ABCD", []domain.ScoreEntry{{ID: "a", Nickname: "Alice", Score: 0}}))
	board, err := mirror.Standings(ctx, "ABCD")
	require.NoError(t, err)
	require.Equal(t, []domain.ScoreEntry{{ID: "a", Nickname: "Alice", Score: 0}}, board)

	bus.Stop()
}
