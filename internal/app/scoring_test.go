package app_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"quizroom-service/internal/app"
	"quizroom-service/internal/domain"
)

func TestScoringPolicyPoints(t *testing.T) {
	policy := app.DefaultGameConfig().Scoring

	tests := map[string]struct {
		elapsed int
		want    int
	}{
		"instant":          {elapsed: 0, want: 100},
		"five seconds":     {elapsed: 5, want: 95},
		"end of round":     {elapsed: 30, want: 70},
		"floor at minimum": {elapsed: 500, want: 1},
		"negative clamps":  {elapsed: -3, want: 100},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, test.want, policy.Points(test.elapsed))
		})
	}
}

func TestScoringPolicyIsMonotonic(t *testing.T) {
	policy := app.ScoringPolicy{BasePoints: 50, DecayPerSecond: 2.5, MinPoints: 5}
	prev := policy.Points(0)
	for s := 1; s <= 60; s++ {
		got := policy.Points(s)
		require.LessOrEqual(t, got, prev)
		require.GreaterOrEqual(t, got, 5)
		prev = got
	}
}

func TestElapsedSecondsTruncates(t *testing.T) {
	require.Equal(t, 4, app.ElapsedSeconds(4999*time.Millisecond))
	require.Equal(t, 0, app.ElapsedSeconds(-time.Second))
}

func TestGameConfigValidate(t *testing.T) {
	require.NoError(t, app.DefaultGameConfig().Validate())

	tests := map[string]func(*app.GameConfig){
		"no capacity":        func(c *app.GameConfig) { c.MaxPlayers = 0 },
		"min above capacity": func(c *app.GameConfig) { c.MinPlayers = 11 },
		"no rounds":          func(c *app.GameConfig) { c.Rounds = 0 },
		"sub-second round":   func(c *app.GameConfig) { c.RoundDuration = 500 * time.Millisecond },
		"no decay":           func(c *app.GameConfig) { c.Scoring.DecayPerSecond = 0 },
		"min above base":     func(c *app.GameConfig) { c.Scoring.MinPoints = 101 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := app.DefaultGameConfig()
			mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestScoreboardOrdersByScoreKeepingJoinOrder(t *testing.T) {
	players := []*domain.Player{
		{ID: "a", Nickname: "A", Score: 10},
		{ID: "b", Nickname: "B", Score: 30},
		{ID: "c", Nickname: "C", Score: 10},
		{ID: "d", Nickname: "D", Score: 0},
	}

	board := app.Scoreboard(players)

	ids := make([]string, 0, len(board))
	for _, e := range board {
		ids = append(ids, e.ID)
	}
	require.Equal(t, []string{"b", "a", "c", "d"}, ids)
	require.Empty(t, app.Scoreboard(nil))
}
