package domain

import "errors"

var (
	// ErrRoomFull is returned when a room is already at capacity.
	ErrRoomFull = errors.New("room is full")
	// ErrRoomClosed is returned when an operation reaches a room that has been torn down.
	ErrRoomClosed = errors.New("room closed")
	// ErrRoomNotFound is returned when no room exists for a code.
	ErrRoomNotFound = errors.New("room not found")
	// ErrNicknameRequired is returned when a join carries an empty nickname.
	ErrNicknameRequired = errors.New("nickname is required")
	// ErrNotJoined is returned when a connection acts before joining a room.
	ErrNotJoined = errors.New("connection has not joined a room")
	// ErrPlayerNotFound is returned when a player is no longer in the room.
	ErrPlayerNotFound = errors.New("player not found in room")
	// ErrNotCreator is returned when a non-creator tries a creator-only action.
	ErrNotCreator = errors.New("only the room creator may do this")
	// ErrThemeRequired is returned when an empty theme is selected.
	ErrThemeRequired = errors.New("theme is required")
	// ErrUnknownTheme is returned when the theme is not in the configured list.
	ErrUnknownTheme = errors.New("unknown theme")
	// ErrGenerationInProgress is returned when a quiz is already being generated.
	ErrGenerationInProgress = errors.New("quiz generation already in progress")
	// ErrQuizAlreadyReady is returned when a theme is chosen after the quiz is ready.
	ErrQuizAlreadyReady = errors.New("quiz already generated")
	// ErrQuizNotReady is returned when readiness is toggled before the quiz exists.
	ErrQuizNotReady = errors.New("quiz not ready")
	// ErrNotWaiting is returned when a lobby action arrives outside the waiting phase.
	ErrNotWaiting = errors.New("room is not waiting for players")
	// ErrNotPlaying is returned for guesses outside an active round.
	ErrNotPlaying = errors.New("no round in progress")
	// ErrGameNotOver is returned when play-again is requested before the game ended.
	ErrGameNotOver = errors.New("game is not over")
	// ErrAnswerRequired is returned for an empty guess.
	ErrAnswerRequired = errors.New("answer is required")
	// ErrGenerationFailed wraps quiz source failures.
	ErrGenerationFailed = errors.New("quiz generation failed")
	// ErrNotEnoughQuestions is returned when a source yields fewer questions than rounds.
	ErrNotEnoughQuestions = errors.New("not enough questions")
	// ErrInvalidQuestion is returned for malformed questions.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrThemeNotFound indicates a question source has nothing for the theme.
	ErrThemeNotFound = errors.New("theme not found")
)
