package app

import (
	"context"

	"quizroom-service/internal/domain"
	"quizroom-service/internal/event"
)

// RoomRepository abstracts the room registry (in-memory, Redis-marked, etc).
type RoomRepository interface {
	GetOrCreate(code string) *Room
	Get(code string) (*Room, bool)
	DeleteIfEmpty(code string)
	List() []*Room
	Close()
}

// QuizSource produces an ordered question list for a theme. It may be slow or fail.
type QuizSource interface {
	Generate(ctx context.Context, theme string) ([]domain.Question, error)
}

// QuizSourceFunc adapts a function to QuizSource.
type QuizSourceFunc func(ctx context.Context, theme string) ([]domain.Question, error)

func (f QuizSourceFunc) Generate(ctx context.Context, theme string) ([]domain.Question, error) {
	return f(ctx, theme)
}

// Sink delivers messages to one connected client. Send must not block.
type Sink interface {
	Send(msg domain.Message)
}

// Publisher receives domain events emitted by rooms.
type Publisher interface {
	Publish(ctx context.Context, e event.Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, event.Event) {}
