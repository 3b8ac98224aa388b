package faceid

import (
	"context"

	"github.com/kozaktomas/facegate/internal/database"
)

type StatusResult struct {
	Exists bool `json:"exists"`
}

// Status reports whether the employee has any enrolled face data.
func Status(ctx context.Context, store database.RecordReader, employeeID int64) (*StatusResult, error) {
	if employeeID <= 0 {
		return nil, newError(KindInvalidInput, msgInvalidEmployeeID, nil)
	}
	exists, err := store.HasRecords(ctx, employeeID)
	if err != nil {
		return nil, newError(KindStoreError, "Database error", err)
	}
	return &StatusResult{Exists: exists}, nil
}
