package domain

// Inbound message types (client -> server).
const (
	MsgJoin         = "join"
	MsgLeaveRoom    = "leaveRoom"
	MsgRequestState = "requestState"
	MsgSetTheme     = "setTheme"
	MsgReady        = "ready"
	MsgGuess        = "guess"
	MsgPlayAgain    = "playAgain"
)

// Outbound message types (server -> client).
const (
	MsgJoined           = "joined"
	MsgJoinError        = "joinError"
	MsgPlayersState     = "playersState"
	MsgThemeSet         = "themeSet"
	MsgGeneratingQuiz   = "generatingQuiz"
	MsgQuizReady        = "quizReady"
	MsgGenerationFailed = "generationFailed"
	MsgGameStarting     = "gameStarting"
	MsgRound            = "round"
	MsgTimer            = "timer"
	MsgGuessResult      = "guessResult"
	MsgScoreboard       = "scoreboard"
	MsgGameOver         = "gameOver"
	MsgError            = "error"
)

// Message is the envelope delivered to a connected client.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type (
	// ThemeSetPayload announces the creator's theme choice.
	ThemeSetPayload struct {
		Theme string `json:"theme"`
	}

	// GenerationFailedPayload tells the room that generation must be retried.
	GenerationFailedPayload struct {
		Theme   string `json:"theme"`
		Message string `json:"message"`
	}

	// GameOverPayload carries the terminal standings.
	GameOverPayload struct {
		FinalScoreboard []ScoreEntry `json:"finalScoreboard"`
	}

	// ErrorPayload is a human readable rejection.
	ErrorPayload struct {
		Message string `json:"message"`
	}
)
