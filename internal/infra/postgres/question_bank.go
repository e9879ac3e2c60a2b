package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"quizroom-service/internal/domain"
)

// QuestionBank draws random questions for a theme from Postgres.
type QuestionBank struct {
	pool  *pgxpool.Pool
	count int
}

func NewQuestionBank(pool *pgxpool.Pool, count int) *QuestionBank {
	return &QuestionBank{pool: pool, count: count}
}

func (b *QuestionBank) Generate(ctx context.Context, theme string) ([]domain.Question, error) {
	rows, err := b.pool.Query(ctx,
		`SELECT question, options, answer FROM questions WHERE theme = $1 ORDER BY random() LIMIT $2`,
		domain.NormalizeTheme(theme), b.count)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var (
			q   domain.Question
			raw []byte
		)
		if err := rows.Scan(&q.Text, &raw, &q.Answer); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(raw, &q.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrThemeNotFound, theme)
	}
	return questions, nil
}

// Themes lists every theme that has at least one question.
func (b *QuestionBank) Themes(ctx context.Context) ([]string, error) {
	rows, err := b.pool.Query(ctx, `SELECT DISTINCT theme FROM questions ORDER BY theme`)
	if err != nil {
		return nil, fmt.Errorf("load themes: %w", err)
	}
	defer rows.Close()

	var themes []string
	for rows.Next() {
		var theme string
		if err := rows.Scan(&theme); err != nil {
			return nil, fmt.Errorf("scan theme: %w", err)
		}
		themes = append(themes, theme)
	}
	return themes, rows.Err()
}
