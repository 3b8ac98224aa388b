package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

// MigrationDialect holds the backend specific statements of the migration runner.
type MigrationDialect struct {
	// CreateTable creates the schema_migrations bookkeeping table if missing.
	CreateTable string
	// Record inserts one applied version, with a single placeholder.
	Record string
	// Transactional wraps each migration and its bookkeeping row in one transaction.
	// Leave false for backends that commit DDL implicitly.
	Transactional bool
}

// Migrate applies every *.sql file of dir in files that is not yet recorded in
// schema_migrations, in lexical order. Returns the versions applied by this call.
func Migrate(ctx context.Context, db *sql.DB, files fs.FS, dir string, d MigrationDialect) ([]string, error) {
	applied, err := appliedMigrations(ctx, db, d)
	if err != nil {
		return nil, err
	}

	entries, err := fs.ReadDir(files, dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	var pending []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".sql") && !applied[e.Name()] {
			pending = append(pending, e.Name())
		}
	}
	sort.Strings(pending)

	var done []string
	for _, file := range pending {
		content, err := fs.ReadFile(files, dir+"/"+file)
		if err != nil {
			return done, fmt.Errorf("read migration %s: %w", file, err)
		}
		if err := applyMigration(ctx, db, d, file, string(content)); err != nil {
			return done, err
		}
		done = append(done, file)
	}
	return done, nil
}

func appliedMigrations(ctx context.Context, db *sql.DB, d MigrationDialect) (map[string]bool, error) {
	if _, err := db.ExecContext(ctx, d.CreateTable); err != nil {
		return nil, fmt.Errorf("create migrations table: %w", err)
	}

	applied := make(map[string]bool)
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan migration version: %w", err)
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied migrations: %w", err)
	}
	return applied, nil
}

func applyMigration(ctx context.Context, db *sql.DB, d MigrationDialect, file, content string) error {
	if !d.Transactional {
		if _, err := db.ExecContext(ctx, content); err != nil {
			return fmt.Errorf("execute migration %s: %w", file, err)
		}
		if _, err := db.ExecContext(ctx, d.Record, file); err != nil {
			return fmt.Errorf("record migration %s: %w", file, err)
		}
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction for %s: %w", file, err)
	}
	if _, err := tx.ExecContext(ctx, content); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("execute migration %s: %w", file, err)
	}
	if _, err := tx.ExecContext(ctx, d.Record, file); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record migration %s: %w", file, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", file, err)
	}
	return nil
}

// MigrationsApplied returns the recorded migration versions in order.
func MigrationsApplied(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan migration version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate migration versions: %w", err)
	}
	return versions, nil
}
