package postgres

import (
	"context"
	"embed"

	"github.com/kozaktomas/facegate/internal/database"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var dialect = database.MigrationDialect{
	CreateTable: `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)
	`,
	Record:        "INSERT INTO schema_migrations (version) VALUES ($1)",
	Transactional: true,
}

// Migrate applies all pending migrations automatically on startup
func (p *Pool) Migrate(ctx context.Context) ([]string, error) {
	return database.Migrate(ctx, p.db, migrationsFS, "migrations", dialect)
}

// MigrationsApplied returns the list of applied migrations
func (p *Pool) MigrationsApplied(ctx context.Context) ([]string, error) {
	return database.MigrationsApplied(ctx, p.db)
}
