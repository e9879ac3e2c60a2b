package app

import (
	"fmt"
	"time"

	"quizroom-service/internal/domain"
)

const (
	DefaultMaxPlayers        = 10
	DefaultMinPlayers        = 1
	DefaultRounds            = 10
	DefaultRoundDuration     = 30 * time.Second
	DefaultStartGrace        = 2 * time.Second
	DefaultBasePoints        = 100
	DefaultDecayPerSecond    = 1.0
	DefaultMinPoints         = 1
	DefaultGenerationTimeout = 60 * time.Second
)

// GameConfig holds the room policy knobs.
type GameConfig struct {
	MaxPlayers        int
	MinPlayers        int
	Rounds            int
	RoundDuration     time.Duration
	StartGrace        time.Duration
	GenerationTimeout time.Duration
	Scoring           ScoringPolicy
	// Themes restricts setTheme to a fixed list; empty accepts any non-empty theme.
	Themes []string
}

func DefaultGameConfig() GameConfig {
	return GameConfig{
		MaxPlayers:        DefaultMaxPlayers,
		MinPlayers:        DefaultMinPlayers,
		Rounds:            DefaultRounds,
		RoundDuration:     DefaultRoundDuration,
		StartGrace:        DefaultStartGrace,
		GenerationTimeout: DefaultGenerationTimeout,
		Scoring: ScoringPolicy{
			BasePoints:     DefaultBasePoints,
			DecayPerSecond: DefaultDecayPerSecond,
			MinPoints:      DefaultMinPoints,
		},
		Themes: []string{"OLAHRAGA", "MATEMATIKA", "SEJARAH", "IPA"},
	}
}

// Validate rejects configurations the round engine cannot run.
func (c GameConfig) Validate() error {
	switch {
	case c.MaxPlayers < 1:
		return fmt.Errorf("game: max players must be positive, got %d", c.MaxPlayers)
	case c.MinPlayers < 1 || c.MinPlayers > c.MaxPlayers:
		return fmt.Errorf("game: min players must be within 1..%d, got %d", c.MaxPlayers, c.MinPlayers)
	case c.Rounds < 1:
		return fmt.Errorf("game: rounds must be positive, got %d", c.Rounds)
	case c.RoundDuration < time.Second:
		return fmt.Errorf("game: round duration must be at least 1s, got %s", c.RoundDuration)
	case c.StartGrace < 0:
		return fmt.Errorf("game: start grace must not be negative")
	case c.GenerationTimeout <= 0:
		return fmt.Errorf("game: generation timeout must be positive")
	}
	return c.Scoring.Validate()
}

func (c GameConfig) roundSeconds() int {
	return int(c.RoundDuration / time.Second)
}

func (c GameConfig) allowsTheme(theme string) bool {
	if len(c.Themes) == 0 {
		return true
	}
	for _, t := range c.Themes {
		if domain.NormalizeTheme(t) == theme {
			return true
		}
	}
	return false
}
