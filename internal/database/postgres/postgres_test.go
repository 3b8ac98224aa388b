//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kozaktomas/facegate/internal/config"
	"github.com/kozaktomas/facegate/internal/database"
	"github.com/kozaktomas/facegate/internal/embedding"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cfg := &config.DatabaseConfig{
		URL:          fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port()),
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := NewPool(cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	if _, err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	if _, err := pool.Exec(ctx, `CREATE TABLE employee (id BIGINT PRIMARY KEY)`); err != nil {
		t.Fatalf("Failed to create employee table: %v", err)
	}
	if _, err := pool.Exec(ctx, `INSERT INTO employee (id) VALUES (1), (2)`); err != nil {
		t.Fatalf("Failed to seed employees: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}
	return pool, cleanup
}

func TestRecordStore(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	store, err := NewRecordStore(pool, "employee")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	t.Run("UpsertInsertsThenUpdates", func(t *testing.T) {
		out, err := store.Upsert(ctx, 1, embedding.Vector{1, 0, 0})
		if err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
		if out != database.UpsertInserted {
			t.Errorf("expected inserted, got %s", out)
		}

		if err := store.Append(ctx, 1, embedding.Vector{0, 1, 0}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}

		out, err = store.Upsert(ctx, 1, embedding.Vector{0, 0, 1})
		if err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
		if out != database.UpsertUpdated {
			t.Errorf("expected updated, got %s", out)
		}

		recs, err := store.FetchRecent(ctx, 1, 20)
		if err != nil {
			t.Fatalf("FetchRecent failed: %v", err)
		}
		if len(recs) != 2 {
			t.Fatalf("expected 2 records, got %d", len(recs))
		}
		for _, r := range recs {
			vec, format, err := embedding.Decode(r.Encoding)
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if format != embedding.FormatBinary {
				t.Errorf("expected binary encoding, got %s", format)
			}
			if vec[2] != 1 {
				t.Errorf("expected every row overwritten, got %v", vec)
			}
		}
	})

	t.Run("FetchRecentOrderAndLimit", func(t *testing.T) {
		for i := range 5 {
			if err := store.Append(ctx, 2, embedding.Vector{float32(i + 1), 1}); err != nil {
				t.Fatalf("Append failed: %v", err)
			}
		}

		recs, err := store.FetchRecent(ctx, 2, 3)
		if err != nil {
			t.Fatalf("FetchRecent failed: %v", err)
		}
		if len(recs) != 3 {
			t.Fatalf("expected 3 records, got %d", len(recs))
		}
		for i := 1; i < len(recs); i++ {
			if recs[i].CreatedAt.After(recs[i-1].CreatedAt) {
				t.Errorf("records not ordered most recent first")
			}
		}
		vec, _, _ := embedding.Decode(recs[0].Encoding)
		if vec[0] != 5 {
			t.Errorf("expected newest record first, got %v", vec)
		}
	})

	t.Run("ExistenceChecks", func(t *testing.T) {
		has, err := store.HasRecords(ctx, 1)
		if err != nil || !has {
			t.Errorf("expected records for employee 1, got %v (%v)", has, err)
		}
		has, err = store.HasRecords(ctx, 99)
		if err != nil || has {
			t.Errorf("expected no records for employee 99, got %v (%v)", has, err)
		}

		exists, err := store.EmployeeExists(ctx, 2)
		if err != nil || !exists {
			t.Errorf("expected employee 2 to exist, got %v (%v)", exists, err)
		}
		exists, err = store.EmployeeExists(ctx, 99)
		if err != nil || exists {
			t.Errorf("expected employee 99 to be missing, got %v (%v)", exists, err)
		}
	})

	t.Run("ListAfterAndCount", func(t *testing.T) {
		n, err := store.Count(ctx)
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if n != 7 {
			t.Errorf("expected 7 records, got %d", n)
		}

		var seen int
		var after int64
		for {
			batch, err := store.ListAfter(ctx, after, 3)
			if err != nil {
				t.Fatalf("ListAfter failed: %v", err)
			}
			if len(batch) == 0 {
				break
			}
			seen += len(batch)
			after = batch[len(batch)-1].ID
		}
		if seen != n {
			t.Errorf("expected to walk %d records, walked %d", n, seen)
		}
	})
}

func TestMigrations(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()

	versions, err := pool.MigrationsApplied(ctx)
	if err != nil {
		t.Fatalf("Failed to get applied migrations: %v", err)
	}
	if len(versions) == 0 {
		t.Error("Expected at least one migration to be applied")
	}

	applied, err := pool.Migrate(ctx)
	if err != nil {
		t.Fatalf("Second migration run failed: %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("Expected no pending migrations, got %v", applied)
	}
}
