// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/kozaktomas/facegate/internal/database"
	"github.com/kozaktomas/facegate/internal/embedding"
)

// MockRecordStore is an in-memory implementation of database.Store
type MockRecordStore struct {
	mu      sync.RWMutex
	records []database.StoredRecord
	nextID  int64
	clock   time.Time

	// Employees restricts EmployeeExists to the listed ids. Nil means every employee exists.
	Employees map[int64]bool

	// Call counters
	FetchCalls   int
	UpsertCalls  int
	AppendCalls  int
	RewriteCalls int
	Closed       bool

	// Error injection
	FetchError    error
	HasError      error
	EmployeeError error
	CountError    error
	ListError     error
	UpsertError   error
	AppendError   error
	RewriteError  error
}

var _ database.Store = (*MockRecordStore)(nil)

// NewMockRecordStore creates a new mock record store
func NewMockRecordStore() *MockRecordStore {
	return &MockRecordStore{
		nextID: 1,
		clock:  time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC),
	}
}

// tick returns a strictly increasing timestamp so ordering is deterministic.
func (m *MockRecordStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

// AddRecord stores a raw record. A zero ID or CreatedAt is filled in.
func (m *MockRecordStore) AddRecord(r database.StoredRecord) database.StoredRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == 0 {
		r.ID = m.nextID
	}
	m.nextID = max(m.nextID, r.ID+1)
	if r.CreatedAt.IsZero() {
		r.CreatedAt = m.tick()
	}
	m.records = append(m.records, r)
	return r
}

// AddVector stores vec for the employee in the canonical encoding.
func (m *MockRecordStore) AddVector(employeeID int64, vec embedding.Vector) database.StoredRecord {
	return m.AddRecord(database.StoredRecord{EmployeeID: employeeID, Encoding: embedding.Encode(vec)})
}

// Records returns a copy of every stored record in insertion order
func (m *MockRecordStore) Records() []database.StoredRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.records)
}

func (m *MockRecordStore) FetchRecent(ctx context.Context, employeeID int64, limit int) ([]database.StoredRecord, error) {
	m.mu.Lock()
	m.FetchCalls++
	m.mu.Unlock()
	if m.FetchError != nil {
		return nil, m.FetchError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []database.StoredRecord
	for _, r := range m.records {
		if r.EmployeeID == employeeID {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b database.StoredRecord) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockRecordStore) HasRecords(ctx context.Context, employeeID int64) (bool, error) {
	if m.HasError != nil {
		return false, m.HasError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.ContainsFunc(m.records, func(r database.StoredRecord) bool {
		return r.EmployeeID == employeeID
	}), nil
}

func (m *MockRecordStore) EmployeeExists(ctx context.Context, employeeID int64) (bool, error) {
	if m.EmployeeError != nil {
		return false, m.EmployeeError
	}
	if m.Employees == nil {
		return true, nil
	}
	return m.Employees[employeeID], nil
}

func (m *MockRecordStore) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}

func (m *MockRecordStore) ListAfter(ctx context.Context, afterID int64, limit int) ([]database.StoredRecord, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []database.StoredRecord
	for _, r := range m.records {
		if r.ID > afterID {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b database.StoredRecord) int { return cmp.Compare(a.ID, b.ID) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockRecordStore) Upsert(ctx context.Context, employeeID int64, vec embedding.Vector) (database.UpsertOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpsertCalls++
	if m.UpsertError != nil {
		return 0, m.UpsertError
	}

	now := m.tick()
	blob := embedding.Encode(vec)
	outcome := database.UpsertInserted
	for i := range m.records {
		if m.records[i].EmployeeID == employeeID {
			m.records[i].Encoding = blob
			m.records[i].CreatedAt = now
			outcome = database.UpsertUpdated
		}
	}
	if outcome == database.UpsertInserted {
		m.records = append(m.records, database.StoredRecord{ID: m.nextID, EmployeeID: employeeID, Encoding: blob, CreatedAt: now})
		m.nextID++
	}
	return outcome, nil
}

func (m *MockRecordStore) Append(ctx context.Context, employeeID int64, vec embedding.Vector) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AppendCalls++
	if m.AppendError != nil {
		return m.AppendError
	}
	m.records = append(m.records, database.StoredRecord{
		ID:         m.nextID,
		EmployeeID: employeeID,
		Encoding:   embedding.Encode(vec),
		CreatedAt:  m.tick(),
	})
	m.nextID++
	return nil
}

func (m *MockRecordStore) RewriteEncoding(ctx context.Context, recordID int64, vec embedding.Vector) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RewriteCalls++
	if m.RewriteError != nil {
		return m.RewriteError
	}
	for i := range m.records {
		if m.records[i].ID == recordID {
			m.records[i].Encoding = embedding.Encode(vec)
		}
	}
	return nil
}

func (m *MockRecordStore) Close() error {
	m.Closed = true
	return nil
}
