package cli

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"quizroom-service/internal/app"
	"quizroom-service/internal/config"
	"quizroom-service/internal/infra/llm"
	"quizroom-service/internal/infra/memory"
)

func TestGameConfigDefaults(t *testing.T) {
	gc, err := gameConfig(config.Default())
	require.NoError(t, err)
	require.Equal(t, app.DefaultGameConfig(), gc)
}

func TestGameConfigOverrides(t *testing.T) {
	cfg := config.Default()
	cfg.Game.MaxPlayers = 4
	cfg.Game.Rounds = 5
	cfg.Game.RoundSeconds = 20
	cfg.Game.StartGrace = "500ms"
	cfg.Game.BasePoints = 1000
	cfg.Game.DecayPerSecond = 10
	cfg.Game.Themes = []string{"IPA"}

	gc, err := gameConfig(cfg)
	require.NoError(t, err)
	require.Equal(t, 4, gc.MaxPlayers)
	require.Equal(t, 5, gc.Rounds)
	require.Equal(t, 20*time.Second, gc.RoundDuration)
	require.Equal(t, 500*time.Millisecond, gc.StartGrace)
	require.Equal(t, 1000, gc.Scoring.BasePoints)
	require.Equal(t, 10.0, gc.Scoring.DecayPerSecond)
	require.Equal(t, []string{"IPA"}, gc.Themes)
}

func TestGameConfigInvalid(t *testing.T) {
	cfg := config.Default()
	cfg.Game.MaxPlayers = 2
	cfg.Game.MinPlayers = 3

	_, err := gameConfig(cfg)
	require.Error(t, err)
}

func TestQuizSourceSelection(t *testing.T) {
	cfg := config.Default()

	source, err := quizSource(cfg, nil, 3)
	require.NoError(t, err)
	require.IsType(t, &memory.StaticQuizSource{}, source)

	cfg.Quiz.Source = "LLM"
	source, err = quizSource(cfg, nil, 3)
	require.NoError(t, err)
	require.IsType(t, &llm.Generator{}, source)

	cfg.Quiz.Source = "postgres"
	_, err = quizSource(cfg, nil, 3)
	require.Error(t, err)

	cfg.Quiz.Source = "carrier-pigeon"
	_, err = quizSource(cfg, nil, 3)
	require.Error(t, err)
}

func TestQuizSourcePoolAndCaching(t *testing.T) {
	cfg := config.Default()

	source, err := quizSource(cfg, nil, 3)
	require.NoError(t, err)
	cached := cachedQuizSource(cfg, source, nil)
	require.IsType(t, &memory.QuizCache{}, cached)

	// the cache holds a pool larger than one game
	questions, err := cached.Generate(context.Background(), "IPA")
	require.NoError(t, err)
	require.Len(t, questions, 3*questionPoolFactor)

	cfg.Quiz.Source = "llm"
	gen, err := quizSource(cfg, nil, 3)
	require.NoError(t, err)
	require.Same(t, gen, cachedQuizSource(cfg, gen, nil))
}
