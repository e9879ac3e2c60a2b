package domain

import "time"

const (
	EventNameRoomOpened        = "room.opened"
	EventNameRoomClosed        = "room.closed"
	EventNameGameStarted       = "game.started"
	EventNameScoreboardUpdated = "scoreboard.updated"
	EventNameGameOver          = "game.over"
	EventNameGameReset         = "game.reset"
	EventNameQuizGenerated     = "quiz.generated"
	EventNameQuizFailed        = "quiz.failed"
	EventNamePlayerJoined      = "player.joined"
	EventNamePlayerLeft        = "player.left"
	EventNameGuessScored       = "guess.scored"
)

type EventRoomOpened struct {
	RoomCode string
}

func (EventRoomOpened) Name() string { return EventNameRoomOpened }

type EventRoomClosed struct {
	RoomCode string
}

func (EventRoomClosed) Name() string { return EventNameRoomClosed }

type EventGameStarted struct {
	RoomCode string
	Theme    string
	Players  int
}

func (EventGameStarted) Name() string { return EventNameGameStarted }

type EventScoreboardUpdated struct {
	RoomCode   string
	Scoreboard []ScoreEntry
}

func (EventScoreboardUpdated) Name() string { return EventNameScoreboardUpdated }

type EventGameOver struct {
	RoomCode        string
	FinalScoreboard []ScoreEntry
}

func (EventGameOver) Name() string { return EventNameGameOver }

// EventGameReset marks a finished room going back to the lobby; standings start over.
type EventGameReset struct {
	RoomCode string
}

func (EventGameReset) Name() string { return EventNameGameReset }

type EventQuizGenerated struct {
	RoomCode string
	Theme    string
	Took     time.Duration
}

func (EventQuizGenerated) Name() string { return EventNameQuizGenerated }

type EventQuizFailed struct {
	RoomCode string
	Theme    string
	Err      error
}

func (EventQuizFailed) Name() string { return EventNameQuizFailed }

type EventPlayerJoined struct {
	RoomCode string
	PlayerID string
}

func (EventPlayerJoined) Name() string { return EventNamePlayerJoined }

type EventPlayerLeft struct {
	RoomCode string
	PlayerID string
}

func (EventPlayerLeft) Name() string { return EventNamePlayerLeft }

// EventGuessScored is published for every accepted guess, correct or not.
type EventGuessScored struct {
	RoomCode string
	PlayerID string
	Correct  bool
	Points   int
}

func (EventGuessScored) Name() string { return EventNameGuessScored }
