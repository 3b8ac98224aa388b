package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	driver "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"

	"github.com/kozaktomas/facegate/internal/config"
)

// Pool manages a MySQL/MariaDB connection pool.
type Pool struct {
	db *sql.DB
}

// NewPool creates a new MySQL connection pool. parseTime is forced on so
// DATETIME columns scan into time.Time.
func NewPool(cfg *config.DatabaseConfig) (*Pool, error) {
	if cfg.URL == "" {
		return nil, errors.New("MySQL DSN is required")
	}

	dsn, err := driver.ParseDSN(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid MySQL DSN: %w", err)
	}
	dsn.ParseTime = true

	connector, err := driver.NewConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}
	db := sql.OpenDB(connector)

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	return &Pool{db: db}, nil
}

// DB returns the underlying sql.DB for direct access.
func (p *Pool) DB() *sql.DB {
	return p.db
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing database connection: %w", err)
		}
	}
	return nil
}

// Open creates a pool, applies pending migrations and returns a ready record store.
func Open(ctx context.Context, cfg *config.DatabaseConfig, log logrus.FieldLogger) (*RecordStore, error) {
	pool, err := NewPool(cfg)
	if err != nil {
		return nil, err
	}

	applied, err := pool.Migrate(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	for _, file := range applied {
		log.WithField("migration", file).Info("applied migration")
	}

	store, err := NewRecordStore(pool, cfg.EmployeeTable)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}
