package database

import (
	"context"

	"github.com/kozaktomas/facegate/internal/embedding"
)

// RecordReader provides read-only access to stored face embeddings.
type RecordReader interface {
	// FetchRecent returns up to limit records for an employee, most recent first.
	FetchRecent(ctx context.Context, employeeID int64, limit int) ([]StoredRecord, error)
	// HasRecords checks whether any face data exists for the employee.
	HasRecords(ctx context.Context, employeeID int64) (bool, error)
	// EmployeeExists checks the employee table. Backends without an employee table
	// configured always return true.
	EmployeeExists(ctx context.Context, employeeID int64) (bool, error)
	// Count returns the total number of stored records.
	Count(ctx context.Context) (int, error)
	// ListAfter returns up to limit records with ID greater than afterID, ordered by ID.
	// Used to walk the whole table in batches.
	ListAfter(ctx context.Context, afterID int64, limit int) ([]StoredRecord, error)
}

// RecordWriter provides write access to stored face embeddings.
type RecordWriter interface {
	RecordReader

	// Upsert replaces the encoding on every existing row of the employee (refreshing created_at)
	// or inserts a first row when there is none. Runs in one transaction.
	Upsert(ctx context.Context, employeeID int64, vec embedding.Vector) (UpsertOutcome, error)
	// Append inserts a new row for the employee.
	Append(ctx context.Context, employeeID int64, vec embedding.Vector) error
	// RewriteEncoding stores vec in the canonical encoding for an existing row, keeping created_at.
	RewriteEncoding(ctx context.Context, recordID int64, vec embedding.Vector) error
}

// Store is a RecordWriter that owns a connection and must be closed.
type Store interface {
	RecordWriter
	Close() error
}
