package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"dsanotes/migrations"
)

// baselineVersion is the migration that creates the users table. Databases
// whose users table predates goose tracking are stamped at this version.
const baselineVersion int64 = 1

// Apply runs any pending SQL migrations bundled with the binary.
func Apply(ctx context.Context, db *sqlx.DB, logger *slog.Logger) error {
	goose.SetBaseFS(migrations.Files)
	goose.SetLogger(gooseSlogLogger{logger: logger})
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("migrate: set goose dialect: %w", err)
	}

	if err := stampUntrackedSchema(ctx, db.DB, logger); err != nil {
		return err
	}

	if err := goose.UpContext(ctx, db.DB, "."); err != nil {
		return fmt.Errorf("migrate: goose up: %w", err)
	}

	version, err := goose.GetDBVersionContext(ctx, db.DB)
	if err != nil {
		return fmt.Errorf("migrate: read version: %w", err)
	}
	if logger != nil {
		logger.Info("database schema ready", "version", version)
	}
	return nil
}

func stampUntrackedSchema(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	usersExists, err := usersTableExists(ctx, db)
	if err != nil {
		return fmt.Errorf("migrate: check users table: %w", err)
	}
	if !usersExists {
		return nil
	}

	if _, err := goose.EnsureDBVersionContext(ctx, db); err != nil {
		return fmt.Errorf("migrate: ensure goose table: %w", err)
	}

	current, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("migrate: check goose version: %w", err)
	}
	if current != 0 {
		return nil
	}

	query := fmt.Sprintf(`INSERT INTO %s (version_id, is_applied) VALUES ($1, TRUE)`, goose.TableName())
	if _, err := db.ExecContext(ctx, query, baselineVersion); err != nil {
		return fmt.Errorf("migrate: set baseline: %w", err)
	}
	if logger != nil {
		logger.Info("goose baseline recorded for existing users table", "version", baselineVersion)
	}
	return nil
}

func usersTableExists(ctx context.Context, db *sql.DB) (bool, error) {
	var exists bool
	err := db.QueryRowContext(
		ctx,
		`SELECT EXISTS (SELECT 1 FROM pg_tables WHERE schemaname = current_schema() AND tablename = 'users')`,
	).Scan(&exists)
	return exists, err
}
