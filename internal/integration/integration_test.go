package integration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"quizroom-service/internal/app"
	"quizroom-service/internal/domain"
	"quizroom-service/internal/event"
	"quizroom-service/internal/infra/memory"
	"quizroom-service/internal/infra/postgres"
	infraredis "quizroom-service/internal/infra/redis"
)

const prefix = "it"

type chanSink chan domain.Message

func (s chanSink) Send(msg domain.Message) {
	select {
	case s <- msg:
	default:
	}
}

func waitFor(t *testing.T, sink chanSink, typ string) domain.Message {
	t.Helper()
	timeout := time.After(15 * time.Second)
	for {
		select {
		case msg := <-sink:
			if msg.Type == domain.MsgGenerationFailed {
				t.Fatalf("generation failed: %+v", msg.Payload)
			}
			if msg.Type == typ {
				return msg
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", typ)
		}
	}
}

func TestQuizRoomEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedQuestions(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	require.NoError(t, err)
	defer pool.Close()

	const rounds = 3
	bank := postgres.NewQuestionBank(pool, rounds)
	themes, err := bank.Themes(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"IPA", "MATEMATIKA", "OLAHRAGA", "SEJARAH"}, themes)

	redisClient, err := redisClientFromURL(redisURL)
	require.NoError(t, err)
	defer redisClient.Close()

	bus := event.NewBus()
	defer bus.Stop()
	mirror := infraredis.NewScoreboardMirror(redisClient, prefix, 5*time.Minute)
	mirror.Register(bus)

	cfg := app.DefaultGameConfig()
	cfg.Rounds = rounds
	cfg.StartGrace = 0

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	factory := app.NewRoomFactory(app.RoomDeps{
		Config:    cfg,
		Source:    infraredis.NewQuizCache(redisClient, bank, prefix, 5*time.Minute),
		Clock:     app.SystemClock{},
		Publisher: bus,
		Logger:    logger,
	})
	rooms := infraredis.NewRoomStore(redisClient, factory, prefix, 5*time.Minute)
	coord := app.NewCoordinator(rooms, app.NewSessionRegistry(), logger)
	defer coord.Close()

	alice := make(chanSink, 256)
	joined, err := coord.Join(ctx, "conn-alice", "Alice", "intg", alice)
	require.NoError(t, err)
	require.True(t, joined.IsCreator)

	live, err := rooms.Live(ctx, "INTG")
	require.NoError(t, err)
	require.True(t, live)

	require.NoError(t, coord.SetTheme(ctx, "conn-alice", "sejarah"))
	waitFor(t, alice, domain.MsgQuizReady)

	// the generated set is cached in redis
	cached, err := redisClient.Exists(ctx, prefix+":quiz:SEJARAH").Result()
	require.NoError(t, err)
	require.Equal(t, int64(1), cached)

	ready, err := coord.ToggleReady(ctx, "conn-alice")
	require.NoError(t, err)
	require.True(t, ready)
	waitFor(t, alice, domain.MsgGameStarting)

	total := 0
	for i := 1; i <= rounds; i++ {
		msg := waitFor(t, alice, domain.MsgRound)
		round := msg.Payload.(domain.RoundPayload)
		require.Equal(t, i, round.Index)

		res, err := coord.Guess(ctx, "conn-alice", "A")
		require.NoError(t, err)
		total += res.Points
	}

	over := waitFor(t, alice, domain.MsgGameOver).Payload.(domain.GameOverPayload)
	require.Len(t, over.FinalScoreboard, 1)
	require.Equal(t, total, over.FinalScoreboard[0].Score)

	require.Eventually(t, func() bool {
		board, err := mirror.Standings(ctx, "INTG")
		return err == nil && len(board) == 1 && board[0].Score == total
	}, 5*time.Second, 50*time.Millisecond)

	require.NoError(t, coord.Leave(ctx, "conn-alice"))
	live, err = rooms.Live(ctx, "INTG")
	require.NoError(t, err)
	require.False(t, live)
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedQuestions(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	db := postgres.OpenBun(dsn)
	defer db.Close()

	_, err := postgres.Migrate(ctx, db)
	require.NoError(t, err)

	bank, err := memory.BuiltinQuestions()
	require.NoError(t, err)

	n, err := postgres.Seed(ctx, db, bank)
	require.NoError(t, err)
	require.Positive(t, n)

	// seeding twice inserts nothing new
	n, err = postgres.Seed(ctx, db, bank)
	require.NoError(t, err)
	require.Zero(t, n)
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
