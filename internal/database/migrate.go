package database

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies all pending schema migrations. It opens its own
// short-lived database/sql connection because goose does not speak the
// pgx native interface.
func Migrate(connString string) error {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToOpenMigrationDB, err)
	}
	defer db.Close()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToSetDialect, err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToApplyMigrations, err)
	}

	slog.Default().Info(LogMsgMigrationsApplied)
	return nil
}
