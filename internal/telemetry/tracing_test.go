package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"quizroom-service/internal/app"
	"quizroom-service/internal/domain"
)

func TestTracedQuizSourceRecordsSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	boom := errors.New("boom")
	source := TraceQuizSource(app.QuizSourceFunc(func(_ context.Context, theme string) ([]domain.Question, error) {
		if theme == "BAD" {
			return nil, boom
		}
		return []domain.Question{{Text: "q"}}, nil
	}), "static")

	_, err := source.Generate(context.Background(), "IPA")
	require.NoError(t, err)
	_, err = source.Generate(context.Background(), "BAD")
	require.ErrorIs(t, err, boom)

	spans := rec.Ended()
	require.Len(t, spans, 2)
	require.Equal(t, "quiz.generate", spans[0].Name())
	require.Equal(t, codes.Unset, spans[0].Status().Code)
	require.Equal(t, codes.Error, spans[1].Status().Code)
}
