package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"quizroom-service/internal/app"
	"quizroom-service/internal/domain"
)

type discardSink struct{}

func (discardSink) Send(domain.Message) {}

func TestRoomStoreSetsAndClearsKeys(t *testing.T) {
	mr, client := newClient(t)
	store := NewRoomStore(client, app.NewRoomFactory(app.RoomDeps{Config: app.DefaultGameConfig()}), testPrefix, time.Minute)
	defer store.Close()

	room := store.GetOrCreate("ABCD")
	require.True(t, mr.Exists("quizroom:room:ABCD"), "expected redis key to be set")

	live, err := store.Live(context.Background(), "ABCD")
	require.NoError(t, err)
	require.True(t, live)

	_, err = room.Join(context.Background(), "p1", "Alice", discardSink{})
	require.NoError(t, err)
	store.DeleteIfEmpty("ABCD")
	require.True(t, mr.Exists("quizroom:room:ABCD"), "occupied room keeps its key")

	_, err = room.Leave(context.Background(), "p1")
	require.NoError(t, err)
	store.DeleteIfEmpty("ABCD")
	require.False(t, mr.Exists("quizroom:room:ABCD"), "expected redis key to be removed")
	_, ok := store.Get("ABCD")
	require.False(t, ok)
}

func TestRoomStoreCloseClearsKeys(t *testing.T) {
	mr, client := newClient(t)
	store := NewRoomStore(client, app.NewRoomFactory(app.RoomDeps{Config: app.DefaultGameConfig()}), testPrefix, time.Minute)

	store.GetOrCreate("AAAA")
	store.GetOrCreate("BBBB")
	store.Close()

	require.False(t, mr.Exists("quizroom:room:AAAA"))
	require.False(t, mr.Exists("quizroom:room:BBBB"))
}
