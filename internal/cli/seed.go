package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"quizroom-service/internal/config"
	"quizroom-service/internal/infra/memory"
	"quizroom-service/internal/infra/postgres"
)

// NewSeedCmd loads the built-in question bank into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed the Postgres question bank with the built-in questions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			setupLogger(cfg)
			if err := runMigrationsWithConfig(cmd.Context(), cfg); err != nil {
				return err
			}

			bank, err := memory.BuiltinQuestions()
			if err != nil {
				return fmt.Errorf("load built-in bank: %w", err)
			}

			db := postgres.OpenBun(cfg.Postgres.URL)
			defer db.Close()

			n, err := postgres.Seed(cmd.Context(), db, bank)
			if err != nil {
				return err
			}
			slog.InfoContext(cmd.Context(), "question bank seeded", "inserted", n, "themes", len(bank))
			return nil
		},
	}
}
