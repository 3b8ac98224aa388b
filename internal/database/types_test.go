package database

import "testing"

func TestUpsertOutcomeString(t *testing.T) {
	tests := []struct {
		outcome UpsertOutcome
		want    string
	}{
		{UpsertInserted, "inserted"},
		{UpsertUpdated, "updated"},
		{UpsertOutcome(0), "none"},
		{UpsertOutcome(42), "none"},
	}

	for _, tc := range tests {
		t.Run(tc.want, func(t *testing.T) {
			if got := tc.outcome.String(); got != tc.want {
				t.Errorf("UpsertOutcome(%d).String() = %q, want %q", tc.outcome, got, tc.want)
			}
		})
	}
}
