package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"quizroom-service/internal/app"
	"quizroom-service/internal/domain"
)

const instrumentationName = "quizroom-service"

// TracedQuizSource wraps a quiz source with a span per generation.
type TracedQuizSource struct {
	source app.QuizSource
	name   string
	tracer trace.Tracer
}

// TraceQuizSource decorates source. name identifies the backend (static, postgres, llm).
func TraceQuizSource(source app.QuizSource, name string) *TracedQuizSource {
	return &TracedQuizSource{
		source: source,
		name:   name,
		tracer: otel.Tracer(instrumentationName),
	}
}

func (s *TracedQuizSource) Generate(ctx context.Context, theme string) ([]domain.Question, error) {
	ctx, span := s.tracer.Start(ctx, "quiz.generate", trace.WithAttributes(
		attribute.String("quiz.source", s.name),
		attribute.String("quiz.theme", theme),
	))
	defer span.End()

	questions, err := s.source.Generate(ctx, theme)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("quiz.questions", len(questions)))
	return questions, nil
}
