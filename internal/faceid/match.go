package faceid

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/kozaktomas/facegate/internal/database"
	"github.com/kozaktomas/facegate/internal/logging"
	"github.com/kozaktomas/facegate/internal/matcher"
	"github.com/kozaktomas/facegate/internal/provider"
)

type MatchRequest struct {
	EmployeeID   int64  `validate:"gt=0"`
	ImagePath    string `validate:"required"`
	InvocationID string
}

// MatchResult is the outcome of a verification. A face that matches nothing is
// a normal result with Matched=false, not an error.
type MatchResult struct {
	Matched        bool                `json:"matched"`
	Stored         bool                `json:"stored"`
	BestMatch      *matcher.Candidate  `json:"best_match,omitempty"`
	AllMatches     []matcher.Candidate `json:"all_matches,omitempty"`
	TotalMatches   int                 `json:"total_matches,omitempty"`
	RecordsChecked int                 `json:"records_checked"`
	Message        string              `json:"message"`
	StorageError   string              `json:"storage_error,omitempty"`
}

// Verifier checks a captured face against the employee's recent history and
// stores the capture only when it matched.
type Verifier struct {
	capturer
	store database.RecordWriter
	log   *logrus.Logger
}

func NewVerifier(p provider.Provider, store database.RecordWriter, settings Settings, log *logrus.Logger) *Verifier {
	return &Verifier{
		capturer: capturer{provider: p, settings: settings.withDefaults()},
		store:    store,
		log:      log,
	}
}

func (v *Verifier) Match(ctx context.Context, req MatchRequest) (*MatchResult, error) {
	log := invocationLogger(v.log, req.InvocationID, req.EmployeeID).WithField("flow", "match")
	log.Info("match started")

	if err := validateRequest(req, req.ImagePath); err != nil {
		return nil, err
	}

	query, err := v.capture(ctx, log, req.ImagePath, captureMatch)
	if err != nil {
		log.WithError(err).Warn("match rejected")
		return nil, err
	}

	done := logging.Phase(log, "store fetch")
	records, err := v.store.FetchRecent(ctx, req.EmployeeID, v.settings.HistoryLimit)
	done()
	if err != nil {
		return nil, newError(KindStoreError, "Database error", err)
	}
	if len(records) == 0 {
		return nil, newError(KindNotRegistered, msgNotRegistered, nil)
	}

	done = logging.Phase(log, "comparison")
	res, err := matcher.Match(query, records, matcher.Options{
		Threshold:    v.settings.Threshold,
		HistoryLimit: v.settings.HistoryLimit,
	})
	done()
	if errors.Is(err, matcher.ErrZeroQuery) {
		return nil, newError(KindInvalidEmbedding, msgInvalidEncoding, err)
	}
	if err != nil {
		return nil, err
	}
	for _, s := range res.Skipped {
		log.WithFields(logrus.Fields{"record_id": s.RecordID, "reason": s.Reason}).Debug("stored record skipped")
	}
	log.WithFields(logrus.Fields{
		"records_checked": res.Checked,
		"matches":         len(res.Candidates),
	}).Info("face comparison completed")

	if !res.Matched() {
		return &MatchResult{
			RecordsChecked: res.Checked,
			Message:        msgNoMatch,
		}, nil
	}

	out := &MatchResult{
		Matched:        true,
		BestMatch:      res.Best,
		AllMatches:     res.Candidates,
		TotalMatches:   len(res.Candidates),
		RecordsChecked: res.Checked,
	}

	done = logging.Phase(log, "storage")
	err = v.store.Append(ctx, req.EmployeeID, query)
	done()
	if err != nil {
		log.WithError(err).Error("matched face could not be stored")
		out.Message = msgMatchedNotStored
		out.StorageError = err.Error()
		return out, nil
	}

	out.Stored = true
	out.Message = msgMatchedStored
	return out, nil
}
