package cli

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quizhub-attempt-service/internal/config"
	"quizhub-attempt-service/internal/infra/memory"
	"quizhub-attempt-service/internal/infra/postgres"
	"quizhub-attempt-service/internal/logging"
)

// NewSeedCmd loads the YAML quiz fixtures into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var fixtures string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert quiz fixtures into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if fixtures != "" {
				cfg.Quiz.FixturesPath = fixtures
			}
			log, err := logging.New(cfg.Env)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			return runSeed(cmd.Context(), cfg, log)
		},
	}
	cmd.Flags().StringVar(&fixtures, "fixtures", "", "quiz fixtures file (defaults to quiz.fixtures_path)")
	return cmd
}

func runSeed(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	if cfg.Postgres.URL == "" {
		return errNoPostgres
	}
	quizzes, err := memory.LoadQuizFile(cfg.Quiz.FixturesPath)
	if err != nil {
		return err
	}
	if err := runMigrations(ctx, cfg, log); err != nil {
		return err
	}

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	loader := postgres.NewQuizLoader(pool)
	for _, quiz := range quizzes {
		if err := loader.SaveQuiz(ctx, quiz); err != nil {
			return err
		}
		log.Info("quiz seeded", zap.String("quiz_id", quiz.ID), zap.Int("questions", len(quiz.Questions)))
	}
	return nil
}
