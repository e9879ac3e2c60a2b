package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"quizroom-service/internal/app"
	"quizroom-service/internal/config"
	"quizroom-service/internal/event"
	"quizroom-service/internal/infra/llm"
	"quizroom-service/internal/infra/memory"
	"quizroom-service/internal/infra/postgres"
	redisinfra "quizroom-service/internal/infra/redis"
	"quizroom-service/internal/telemetry"
	transport "quizroom-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the quiz room server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
	cmd.Flags().StringVar(port, "port", os.Getenv("PORT"), "port to listen on (overrides server.port)")
	return cmd
}

func setupLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}
	var h slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if strings.EqualFold(cfg.Log.Format, "json") {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

// gameConfig maps the game section onto the room policy, keeping defaults for unset knobs.
func gameConfig(cfg config.Config) (app.GameConfig, error) {
	gc := app.DefaultGameConfig()
	g := cfg.Game
	if g.MaxPlayers > 0 {
		gc.MaxPlayers = g.MaxPlayers
	}
	if g.MinPlayers > 0 {
		gc.MinPlayers = g.MinPlayers
	}
	if g.Rounds > 0 {
		gc.Rounds = g.Rounds
	}
	if g.RoundSeconds > 0 {
		gc.RoundDuration = time.Duration(g.RoundSeconds) * time.Second
	}
	gc.StartGrace = config.TTLDuration(g.StartGrace, gc.StartGrace)
	gc.GenerationTimeout = config.TTLDuration(g.GenerationTimeout, gc.GenerationTimeout)
	if g.BasePoints > 0 {
		gc.Scoring.BasePoints = g.BasePoints
	}
	if g.DecayPerSecond > 0 {
		gc.Scoring.DecayPerSecond = g.DecayPerSecond
	}
	if g.MinPoints > 0 {
		gc.Scoring.MinPoints = g.MinPoints
	}
	if len(g.Themes) > 0 {
		gc.Themes = g.Themes
	}
	if err := gc.Validate(); err != nil {
		return gc, err
	}
	return gc, nil
}

func connectRedis(ctx context.Context, cfg config.Config) (redis.UniversalClient, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{cfg.Redis.Addr},
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := telemetry.MonitorRedis(r); err != nil {
		return nil, err
	}
	if err := r.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return r, nil
}

// questionPoolFactor sizes the cached pool a bank-backed source loads per theme, so repeat
// games on one theme draw a different subset.
const questionPoolFactor = 3

// quizSource picks the configured question backend.
func quizSource(cfg config.Config, pool *pgxpool.Pool, rounds int) (app.QuizSource, error) {
	switch strings.ToLower(cfg.Quiz.Source) {
	case "", "static":
		return memory.NewBuiltinQuizSource(rounds * questionPoolFactor)
	case "postgres":
		if pool == nil {
			return nil, fmt.Errorf("quiz source postgres needs postgres.url")
		}
		return postgres.NewQuestionBank(pool, rounds*questionPoolFactor), nil
	case "llm":
		return llm.NewGenerator(llm.Config{
			ResponsesURL: cfg.Quiz.LLM.URL,
			APIKey:       cfg.Quiz.LLM.APIKey,
			Model:        cfg.Quiz.LLM.Model,
			Language:     cfg.Quiz.LLM.Language,
			Count:        rounds,
		}), nil
	default:
		return nil, fmt.Errorf("unknown quiz source %q", cfg.Quiz.Source)
	}
}

// cachedQuizSource puts a TTL cache in front of bank-backed sources. Generated quizzes
// are not cached: every game gets a fresh one.
func cachedQuizSource(cfg config.Config, source app.QuizSource, client redis.UniversalClient) app.QuizSource {
	if strings.EqualFold(cfg.Quiz.Source, "llm") {
		return source
	}
	ttl := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	if client != nil {
		return redisinfra.NewQuizCache(client, source, cfg.Redis.Prefix, ttl)
	}
	return memory.NewQuizCache(source, ttl)
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg)
	if cfg.LogLevel() > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	gameCfg, err := gameConfig(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}

	var redisClient redis.UniversalClient
	if cfg.Redis.Addr != "" {
		redisClient, err = connectRedis(ctx, cfg)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()
	}

	source, err := quizSource(cfg, pool, gameCfg.Rounds)
	if err != nil {
		return err
	}
	cached := cachedQuizSource(cfg, source, redisClient)

	bus := event.NewBus()
	metrics := telemetry.NewMetrics()
	metrics.Register(bus)

	var standings transport.StandingsReader
	if redisClient != nil {
		mirror := redisinfra.NewScoreboardMirror(redisClient, cfg.Redis.Prefix, redisTTL)
		mirror.Register(bus)
		standings = mirror
	}

	factory := app.NewRoomFactory(app.RoomDeps{
		Config:    gameCfg,
		Source:    telemetry.TraceQuizSource(cached, cfg.Quiz.Source),
		Clock:     app.SystemClock{},
		Publisher: bus,
		Logger:    logger,
	})
	var rooms app.RoomRepository
	if redisClient != nil {
		rooms = redisinfra.NewRoomStore(redisClient, factory, cfg.Redis.Prefix, redisTTL)
	} else {
		rooms = memory.NewRoomStore(factory)
	}
	coord := app.NewCoordinator(rooms, app.NewSessionRegistry(), logger)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	server := &http.Server{
		Addr: ":" + finalPort,
		Handler: transport.NewRouter(transport.Config{
			Coordinator: coord,
			WS:          transport.NewWSHandler(coord, logger, cfg.Server.AllowedOrigins),
			Metrics:     metrics.Handler(),
			Standings:   standings,
			Pprof:       cfg.Server.Pprof,
		}),
		ReadHeaderTimeout: 15 * time.Second,
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		logger.Info("starting quiz room service", "port", finalPort, "source", cfg.Quiz.Source, "redis", redisClient != nil)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-egCtx.Done()
		logger.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.TTLDuration(cfg.Server.ShutdownTimeout, 5*time.Second))
		defer cancel()

		err := server.Shutdown(shutdownCtx)
		coord.Close()
		bus.Stop()
		if terr := shutdownTracing(shutdownCtx); terr != nil {
			logger.Warn("tracing shutdown failed", "error", terr)
		}
		logger.Info("shutdown completed")
		return err
	})
	return eg.Wait()
}
