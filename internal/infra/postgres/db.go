package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"quizroom-service/internal/domain"
	pgmigrations "quizroom-service/internal/infra/postgres/migrations"
)

// QuestionRow is the bun model of the questions table.
type QuestionRow struct {
	bun.BaseModel `bun:"table:questions"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Theme     string    `bun:"theme,notnull"`
	Question  string    `bun:"question,notnull"`
	Options   []string  `bun:"options,type:jsonb,notnull"`
	Answer    string    `bun:"answer,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// OpenBun opens a bun handle for migrations and seeding.
func OpenBun(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// Migrate applies every pending migration and returns the applied group.
func Migrate(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return nil, fmt.Errorf("init migrations: %w", err)
	}
	group, err := migrator.Migrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return group, nil
}

// Seed inserts the given themed questions, skipping ones already present.
// It returns the number of rows inserted.
func Seed(ctx context.Context, db *bun.DB, bank map[string][]domain.Question) (int64, error) {
	var rows []QuestionRow
	for theme, questions := range bank {
		for _, q := range questions {
			if err := q.Validate(); err != nil {
				return 0, fmt.Errorf("seed %s %q: %w", theme, q.Text, err)
			}
			rows = append(rows, QuestionRow{
				Theme:    domain.NormalizeTheme(theme),
				Question: q.Text,
				Options:  q.Options,
				Answer:   domain.AnswerLabel(q.Answer),
			})
		}
	}
	if len(rows) == 0 {
		return 0, nil
	}

	res, err := db.NewInsert().
		Model(&rows).
		On("CONFLICT (theme, question) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed questions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
