package app

import (
	"fmt"
	"math"
	"time"
)

// ScoringPolicy awards points for a correct answer as a function of how long the player took:
//
//	points = max(MinPoints, BasePoints - floor(elapsedSeconds * DecayPerSecond))
//
// where elapsedSeconds is the whole number of seconds since the round started.
type ScoringPolicy struct {
	BasePoints     int
	DecayPerSecond float64
	MinPoints      int
}

func (p ScoringPolicy) Validate() error {
	switch {
	case p.BasePoints < 1:
		return fmt.Errorf("scoring: base points must be positive, got %d", p.BasePoints)
	case p.DecayPerSecond <= 0:
		return fmt.Errorf("scoring: decay must be positive, got %v", p.DecayPerSecond)
	case p.MinPoints < 1 || p.MinPoints > p.BasePoints:
		return fmt.Errorf("scoring: min points must be within 1..%d, got %d", p.BasePoints, p.MinPoints)
	}
	return nil
}

// ElapsedSeconds truncates a duration to whole seconds, never below zero.
func ElapsedSeconds(d time.Duration) int {
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}

// Points returns the award for a correct answer given after elapsedSeconds.
func (p ScoringPolicy) Points(elapsedSeconds int) int {
	if elapsedSeconds < 0 {
		elapsedSeconds = 0
	}
	points := p.BasePoints - int(math.Floor(float64(elapsedSeconds)*p.DecayPerSecond))
	if points < p.MinPoints {
		return p.MinPoints
	}
	return points
}
