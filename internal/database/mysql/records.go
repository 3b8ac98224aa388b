package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kozaktomas/facegate/internal/config"
	"github.com/kozaktomas/facegate/internal/database"
	"github.com/kozaktomas/facegate/internal/embedding"
)

// RecordStore keeps face encodings in the face_data table shared with the HR backend.
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
		SELECT id, employeeID, face_encoding, createdAt
		FROM face_data
		WHERE employeeID = ?
		ORDER BY createdAt DESC, id DESC
		LIMIT ?
	`
	rows, err := s.pool.db.QueryContext(ctx, query, employeeID, limit)
	if err != nil {
		return nil, fmt.Errorf("query face data: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (s *RecordStore) HasRecords(ctx context.Context, employeeID int64) (bool, error) {
	var exists bool
	err := s.pool.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM face_data WHERE employeeID = ?)`, employeeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check face data: %w", err)
	}
	return exists, nil
}

func (s *RecordStore) EmployeeExists(ctx context.Context, employeeID int64) (bool, error) {
	if s.employeeTable == "" {
		return true, nil
	}
	// table name is validated in NewRecordStore
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM `%s` WHERE id = ?)", s.employeeTable)
	var exists bool
	if err := s.pool.db.QueryRowContext(ctx, query, employeeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check employee: %w", err)
	}
	return exists, nil
}

func (s *RecordStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM face_data`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count face data: %w", err)
	}
	return n, nil
}

func (s *RecordStore) ListAfter(ctx context.Context, afterID int64, limit int) ([]database.StoredRecord, error) {
	query := `
		SELECT id, employeeID, face_encoding, createdAt
		FROM face_data
		WHERE id > ?
		ORDER BY id
		LIMIT ?
	`
	rows, err := s.pool.db.QueryContext(ctx, query, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("query face data: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Upsert overwrites every existing row of the employee with the new encoding,
// or inserts the first one.
func (s *RecordStore) Upsert(ctx context.Context, employeeID int64, vec embedding.Vector) (database.UpsertOutcome, error) {
	blob := embedding.Encode(vec)
	now := s.now()

	tx, err := s.pool.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var existing int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM face_data WHERE employeeID = ? FOR UPDATE`, employeeID).Scan(&existing)
	if err != nil {
		return 0, fmt.Errorf("lock face data: %w", err)
	}

	outcome := database.UpsertInserted
	if existing > 0 {
		outcome = database.UpsertUpdated
		_, err = tx.ExecContext(ctx,
			`UPDATE face_data SET face_encoding = ?, createdAt = ? WHERE employeeID = ?`,
			blob, now, employeeID)
	} else {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO face_data (employeeID, face_encoding, createdAt) VALUES (?, ?, ?)`,
			employeeID, blob, now)
	}
	if err != nil {
		return 0, fmt.Errorf("write face data: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit face data: %w", err)
	}
	return outcome, nil
}

func (s *RecordStore) Append(ctx context.Context, employeeID int64, vec embedding.Vector) error {
	_, err := s.pool.db.ExecContext(ctx,
		`INSERT INTO face_data (employeeID, face_encoding, createdAt) VALUES (?, ?, ?)`,
		employeeID, embedding.Encode(vec), s.now())
	if err != nil {
		return fmt.Errorf("insert face data: %w", err)
	}
	return nil
}

func (s *RecordStore) RewriteEncoding(ctx context.Context, recordID int64, vec embedding.Vector) error {
	_, err := s.pool.db.ExecContext(ctx,
		`UPDATE face_data SET face_encoding = ? WHERE id = ?`, embedding.Encode(vec), recordID)
	if err != nil {
		return fmt.Errorf("rewrite face data %d: %w", recordID, err)
	}
	return nil
}

func scanRecords(rows *sql.Rows) ([]database.StoredRecord, error) {
	var records []database.StoredRecord
	for rows.Next() {
		var r database.StoredRecord
		if err := rows.Scan(&r.ID, &r.EmployeeID, &r.Encoding, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan face data: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate face data: %w", err)
	}
	return records, nil
}
