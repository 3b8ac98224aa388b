// Package matcher compares a freshly captured face embedding against an employee's
// recent embedding history and picks the closest record under a fixed threshold.
package matcher

import (
	"errors"
	"math"
	"time"

	"github.com/kozaktomas/facegate/internal/database"
	"github.com/kozaktomas/facegate/internal/embedding"
)

const (
	// DefaultThreshold is the maximum cosine distance (exclusive) for a record to count as a match.
	DefaultThreshold = 0.25

	// DefaultHistoryLimit caps how many of the most recent records are compared.
	DefaultHistoryLimit = 20
)

// ErrZeroQuery is returned when the query embedding has zero magnitude.
// It signals an invalid capture and is never reported as "no match".
var ErrZeroQuery = errors.New("query embedding has zero magnitude")

// Candidate is a stored record whose distance to the query passed the threshold.
type Candidate struct {
	RecordID   int64     `json:"-"`
	EmployeeID int64     `json:"user_id"`
	Distance   float64   `json:"distance"`
	Similarity float64   `json:"similarity"`
	CreatedAt  time.Time `json:"created_at"`
}

// SkipReason explains why a stored record was left out of the comparison.
type SkipReason string

const (
	SkipMalformed    SkipReason = "malformed"
	SkipZeroVector   SkipReason = "zero_vector"
	SkipDimension    SkipReason = "dimension_mismatch"
	SkipBeyondLimits SkipReason = "beyond_history_limit"
)

// Skipped records a stored record that could not be compared.
type Skipped struct {
	RecordID int64
	Reason   SkipReason
}

// Result is the outcome of one scan.
type Result struct {
	// Candidates are the records under the threshold, in the order they were scanned.
	Candidates []Candidate
	// Best is the candidate with the smallest distance, nil when Candidates is empty.
	Best *Candidate
	// Checked is the number of records considered (at most the history limit).
	Checked int
	// Skipped lists records that were considered but could not be compared.
	Skipped []Skipped
}

// Matched reports whether at least one candidate passed the threshold.
func (r *Result) Matched() bool {
	return len(r.Candidates) > 0
}

// Options tune the scan. Zero values fall back to the defaults.
type Options struct {
	Threshold    float64
	HistoryLimit int
}

func (o Options) withDefaults() Options {
	if o.Threshold <= 0 {
		o.Threshold = DefaultThreshold
	}
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = DefaultHistoryLimit
	}
	return o
}

// Match scans records (most recent first) and returns every record whose cosine distance
// to query is strictly below the threshold, plus the closest one. Ties keep the record
// encountered first. Records that fail to decode, have zero magnitude or a different
// dimensionality are skipped. Neither query nor records are modified.
func Match(query embedding.Vector, records []database.StoredRecord, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	q := query.Unit()
	if q == nil {
		return nil, ErrZeroQuery
	}

	result := &Result{}
	for i := range records {
		rec := &records[i]
		if i >= opts.HistoryLimit {
			result.Skipped = append(result.Skipped, Skipped{RecordID: rec.ID, Reason: SkipBeyondLimits})
			continue
		}
		result.Checked++

		stored, _, err := embedding.Decode(rec.Encoding)
		if err != nil {
			result.Skipped = append(result.Skipped, Skipped{RecordID: rec.ID, Reason: SkipMalformed})
			continue
		}
		if len(stored) != len(query) {
			result.Skipped = append(result.Skipped, Skipped{RecordID: rec.ID, Reason: SkipDimension})
			continue
		}
		r := stored.Unit()
		if r == nil {
			result.Skipped = append(result.Skipped, Skipped{RecordID: rec.ID, Reason: SkipZeroVector})
			continue
		}

		similarity := embedding.Clamp(embedding.Dot(q, r))
		distance := 1 - similarity
		if math.IsNaN(distance) {
			result.Skipped = append(result.Skipped, Skipped{RecordID: rec.ID, Reason: SkipMalformed})
			continue
		}
		if distance >= opts.Threshold {
			continue
		}

		result.Candidates = append(result.Candidates, Candidate{
			RecordID:   rec.ID,
			EmployeeID: rec.EmployeeID,
			Distance:   distance,
			Similarity: similarity,
			CreatedAt:  rec.CreatedAt,
		})
	}

	for i := range result.Candidates {
		if result.Best == nil || result.Candidates[i].Distance < result.Best.Distance {
			result.Best = &result.Candidates[i]
		}
	}

	return result, nil
}
