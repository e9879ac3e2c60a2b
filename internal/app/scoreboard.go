package app

import (
	"sort"

	"quizroom-service/internal/domain"
)

// Scoreboard ranks players by score, highest first. Ties keep join order.
// It is always derived from player state and never stored.
func Scoreboard(players []*domain.Player) []domain.ScoreEntry {
	entries := make([]domain.ScoreEntry, 0, len(players))
	for _, p := range players {
		entries = append(entries, domain.ScoreEntry{
			ID:       p.ID,
			Nickname: p.Nickname,
			Score:    p.Score,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	return entries
}
