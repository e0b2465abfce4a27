// Package db holds the SQL schema migrations, applied with goose.
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var Migrations embed.FS

const (
	MigrationsDir   = "migrations"
	VersionTable    = "schema_migrations"
	DialectPostgres = "postgres"
)

// Migrate runs command ("up", "down", "status", ...) against db using the embedded
// migrations, or the ones under dir when dir is set.
func Migrate(ctx context.Context, db *sql.DB, dialect, command, dir string) error {
	if dir == "" {
		goose.SetBaseFS(Migrations)
		defer goose.SetBaseFS(nil)
		dir = MigrationsDir
	}
	goose.SetTableName(VersionTable)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.RunContext(ctx, command, db, dir); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}
