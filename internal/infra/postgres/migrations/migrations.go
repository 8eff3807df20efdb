package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

var (
	//go:embed 0001_create_quizzes.sql
	createQuizzesSQL string
	//go:embed 0002_create_attempts.sql
	createAttemptsSQL string
)

// Migrations is the ordered schema history applied by the migrate command.
var Migrations = migrate.NewMigrations()

func init() {
	Migrations.Add(migrate.Migration{
		Name: "20241122010000",
		Up:   execSQL(createQuizzesSQL),
		Down: execSQL(`DROP TABLE IF EXISTS quizzes`),
	})
	Migrations.Add(migrate.Migration{
		Name: "20241122020000",
		Up:   execSQL(createAttemptsSQL),
		Down: execSQL(`DROP TABLE IF EXISTS attempts`),
	})
}

func execSQL(query string) migrate.MigrationFunc {
	return func(ctx context.Context, db *bun.DB) error {
		_, err := db.ExecContext(ctx, query)
		return err
	}
}
