package mysql

import (
	"context"
	"embed"

	"github.com/kozaktomas/facegate/internal/database"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MySQL commits DDL implicitly, so each migration file holds one idempotent statement.
var dialect = database.MigrationDialect{
	CreateTable: `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)
		)
	`,
	Record: "INSERT INTO schema_migrations (version) VALUES (?)",
}

// Migrate applies all pending migrations and returns the ones applied now.
func (p *Pool) Migrate(ctx context.Context) ([]string, error) {
	return database.Migrate(ctx, p.db, migrationsFS, "migrations", dialect)
}

// MigrationsApplied returns the list of applied migrations
func (p *Pool) MigrationsApplied(ctx context.Context) ([]string, error) {
	return database.MigrationsApplied(ctx, p.db)
}
