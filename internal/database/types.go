package database

import (
	"errors"
	"time"
)

// StoredRecord represents one face embedding row for an employee.
// Encoding is the raw stored blob; decode it with embedding.Decode.
type StoredRecord struct {
	ID         int64
	EmployeeID int64
	Encoding   []byte
	CreatedAt  time.Time
}

// UpsertOutcome tells whether a registration updated existing rows or inserted a new one.
type UpsertOutcome int

const (
	UpsertInserted UpsertOutcome = iota + 1
	UpsertUpdated
)

func (o UpsertOutcome) String() string {
	switch o {
	case UpsertInserted:
		return "inserted"
	case UpsertUpdated:
		return "updated"
	default:
		return "none"
	}
}

// ErrEmployeeNotFound is returned when the employee table has no row for the given id.
var ErrEmployeeNotFound = errors.New("employee not found")

// DefaultTable is the face data table name shared by every backend.
const DefaultTable = "face_data"
