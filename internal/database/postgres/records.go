package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/facegate/internal/config"
	"github.com/kozaktomas/facegate/internal/database"
	"github.com/kozaktomas/facegate/internal/embedding"
)

// RecordStore keeps face embeddings in a pgvector column. Rows are exposed in
// the canonical binary encoding so the matcher sees the same records as with MySQL.
type RecordStore struct {
	pool          *Pool
	employeeTable string
	now           func() time.Time
}

var _ database.Store = (*RecordStore)(nil)

// NewRecordStore creates a record store. An empty employeeTable disables the
// employee existence check.
func NewRecordStore(pool *Pool, employeeTable string) (*RecordStore, error) {
	if employeeTable != "" && !config.IsSQLIdentifier(employeeTable) {
		return nil, fmt.Errorf("invalid employee table name %q", employeeTable)
	}
	return &RecordStore{
		pool:          pool,
		employeeTable: employeeTable,
		now:           func() time.Time { return time.Now().UTC() },
	}, nil
}

// Close closes the underlying pool.
func (s *RecordStore) Close() error {
	return s.pool.Close()
}

func (s *RecordStore) FetchRecent(ctx context.Context, employeeID int64, limit int) ([]database.StoredRecord, error) {
	query := `
		SELECT id, employee_id, embedding, created_at
		FROM face_data
		WHERE employee_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, employeeID, limit)
	if err != nil {
		return nil, fmt.Errorf("query face data: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (s *RecordStore) HasRecords(ctx context.Context, employeeID int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM face_data WHERE employee_id = $1)`, employeeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check face data: %w", err)
	}
	return exists, nil
}

func (s *RecordStore) EmployeeExists(ctx context.Context, employeeID int64) (bool, error) {
	if s.employeeTable == "" {
		return true, nil
	}
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1)", pq.QuoteIdentifier(s.employeeTable))
	var exists bool
	if err := s.pool.QueryRow(ctx, query, employeeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check employee: %w", err)
	}
	return exists, nil
}

func (s *RecordStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM face_data`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count face data: %w", err)
	}
	return n, nil
}

func (s *RecordStore) ListAfter(ctx context.Context, afterID int64, limit int) ([]database.StoredRecord, error) {
	query := `
		SELECT id, employee_id, embedding, created_at
		FROM face_data
		WHERE id > $1
		ORDER BY id
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("query face data: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Upsert overwrites every existing row of the employee with the new embedding,
// or inserts the first one. Concurrent registrations of the same employee are
// serialized with a transaction-scoped advisory lock.
func (s *RecordStore) Upsert(ctx context.Context, employeeID int64, vec embedding.Vector) (database.UpsertOutcome, error) {
	v := pgvector.NewVector(vec)
	now := s.now()

	tx, err := s.pool.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, employeeID); err != nil {
		return 0, fmt.Errorf("lock face data: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE face_data SET embedding = $1, created_at = $2 WHERE employee_id = $3`, v, now, employeeID)
	if err != nil {
		return 0, fmt.Errorf("update face data: %w", err)
	}
	updated, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update face data: %w", err)
	}

	outcome := database.UpsertUpdated
	if updated == 0 {
		outcome = database.UpsertInserted
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO face_data (employee_id, embedding, created_at) VALUES ($1, $2, $3)`,
			employeeID, v, now); err != nil {
			return 0, fmt.Errorf("insert face data: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit face data: %w", err)
	}
	return outcome, nil
}

func (s *RecordStore) Append(ctx context.Context, employeeID int64, vec embedding.Vector) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO face_data (employee_id, embedding, created_at) VALUES ($1, $2, $3)`,
		employeeID, pgvector.NewVector(vec), s.now())
	if err != nil {
		return fmt.Errorf("insert face data: %w", err)
	}
	return nil
}

func (s *RecordStore) RewriteEncoding(ctx context.Context, recordID int64, vec embedding.Vector) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE face_data SET embedding = $1 WHERE id = $2`, pgvector.NewVector(vec), recordID)
	if err != nil {
		return fmt.Errorf("rewrite face data %d: %w", recordID, err)
	}
	return nil
}

func scanRecords(rows *sql.Rows) ([]database.StoredRecord, error) {
	var records []database.StoredRecord
	for rows.Next() {
		var (
			r   database.StoredRecord
			vec pgvector.Vector
		)
		if err := rows.Scan(&r.ID, &r.EmployeeID, &vec, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan face data: %w", err)
		}
		r.Encoding = embedding.Encode(vec.Slice())
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate face data: %w", err)
	}
	return records, nil
}
