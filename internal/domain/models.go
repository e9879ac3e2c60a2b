package domain

import (
	"strings"
	"time"
)

// DefaultRoomCode is used when a joining client supplies no room code.
const DefaultRoomCode = "DEFAULT"

// NormalizeRoomCode trims and upper-cases a room code, falling back to DefaultRoomCode.
func NormalizeRoomCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return DefaultRoomCode
	}
	return code
}

// NormalizeTheme trims and upper-cases a theme name.
func NormalizeTheme(theme string) string {
	return strings.ToUpper(strings.TrimSpace(theme))
}

// AnswerLabel reduces a submitted answer or option to its label ("a", "A", "A) Paris" -> "A").
func AnswerLabel(answer string) string {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return ""
	}
	return strings.ToUpper(string([]rune(answer)[0]))
}

// Phase is the lifecycle state of a room.
type Phase string

const (
	PhaseWaiting  = Phase("waiting")
	PhaseStarting = Phase("starting")
	PhasePlaying  = Phase("playing")
	PhaseGameOver = Phase("gameOver")
)

// Player is a participant within a room.
type Player struct {
	ID       string
	Nickname string
	Ready    bool
	Score    int
	JoinedAt time.Time
}

// PlayerView is the wire shape of a player inside playersState.
type PlayerView struct {
	ID        string `json:"id"`
	Nickname  string `json:"nickname"`
	Ready     bool   `json:"ready"`
	Score     int    `json:"score"`
	IsCreator bool   `json:"isCreator"`
}

// Question is one generated quiz item. Options are labeled by their first character ("A) ...").
type Question struct {
	Text    string   `json:"question" yaml:"question"`
	Options []string `json:"options" yaml:"options"`
	Answer  string   `json:"answer" yaml:"answer"`
}

// Validate checks that the question is playable.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" || len(q.Options) < 2 {
		return ErrInvalidQuestion
	}
	seen := make(map[string]struct{}, len(q.Options))
	for _, opt := range q.Options {
		label := AnswerLabel(opt)
		if label == "" {
			return ErrInvalidQuestion
		}
		if _, dup := seen[label]; dup {
			return ErrInvalidQuestion
		}
		seen[label] = struct{}{}
	}
	if _, ok := seen[AnswerLabel(q.Answer)]; !ok {
		return ErrInvalidQuestion
	}
	return nil
}

// Round is an immutable timed question within a game.
type Round struct {
	Index         int
	Total         int
	Question      string
	Options       []string
	CorrectAnswer string
}

// RoundPayload is the broadcast shape of a round; the correct answer is never sent.
type RoundPayload struct {
	Index    int      `json:"index"`
	Total    int      `json:"total"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// Payload strips the answer from the round.
func (r Round) Payload() RoundPayload {
	return RoundPayload{
		Index:    r.Index,
		Total:    r.Total,
		Question: r.Question,
		Options:  append([]string(nil), r.Options...),
	}
}

// ScoreEntry is one line of the scoreboard.
type ScoreEntry struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
	Score    int    `json:"score"`
}

// GuessResult is the per-guess outcome sent only to the guesser.
type GuessResult struct {
	Correct        bool `json:"correct"`
	Already        bool `json:"already"`
	Points         int  `json:"points"`
	ElapsedSeconds int  `json:"elapsedSeconds"`
}

// RoomSnapshot is the full, side-effect free view of a room.
type RoomSnapshot struct {
	RoomCode    string       `json:"roomCode"`
	Phase       Phase        `json:"phase"`
	Players     []PlayerView `json:"players"`
	CreatorID   string       `json:"creatorId"`
	Theme       string       `json:"theme"`
	Generating  bool         `json:"generating"`
	QuizReady   bool         `json:"quizReady"`
	GameStarted bool         `json:"gameStarted"`
	GameEnded   bool         `json:"gameEnded"`
}

// Joined confirms a join to the joining client.
type Joined struct {
	ID        string `json:"id"`
	RoomCode  string `json:"roomCode"`
	IsCreator bool   `json:"isCreator"`
}
