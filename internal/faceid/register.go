package faceid

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kozaktomas/facegate/internal/database"
	"github.com/kozaktomas/facegate/internal/logging"
	"github.com/kozaktomas/facegate/internal/provider"
)

var validate = validator.New()

type RegisterRequest struct {
	EmployeeID   int64  `validate:"gt=0"`
	ImagePath    string `validate:"required"`
	InvocationID string
}

type RegisterResult struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Outcome database.UpsertOutcome `json:"-"`
}

// Registrar enrolls an employee's face, replacing any earlier enrollment.
type Registrar struct {
	capturer
	store database.RecordWriter
	log   *logrus.Logger
}

func NewRegistrar(p provider.Provider, store database.RecordWriter, settings Settings, log *logrus.Logger) *Registrar {
	return &Registrar{
		capturer: capturer{provider: p, settings: settings.withDefaults()},
		store:    store,
		log:      log,
	}
}

func (r *Registrar) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	log := invocationLogger(r.log, req.InvocationID, req.EmployeeID).WithField("flow", "register")
	log.Info("registration started")

	if err := validateRequest(req, req.ImagePath); err != nil {
		return nil, err
	}

	vec, err := r.capture(ctx, log, req.ImagePath, captureRegister)
	if err != nil {
		log.WithError(err).Warn("registration rejected")
		return nil, err
	}

	done := logging.Phase(log, "employee check")
	exists, err := r.store.EmployeeExists(ctx, req.EmployeeID)
	done()
	if err != nil {
		return nil, newError(KindStoreError, "Database error", err)
	}
	if !exists {
		return nil, newError(KindUnknownEmployee,
			fmt.Sprintf("Employee with ID %d not found in employee table", req.EmployeeID), database.ErrEmployeeNotFound)
	}

	done = logging.Phase(log, "storage")
	outcome, err := r.store.Upsert(ctx, req.EmployeeID, vec)
	done()
	if err != nil {
		return nil, newError(KindStoreError, "Database error", err)
	}

	log.WithField("outcome", outcome.String()).Info("registration completed")
	return &RegisterResult{Success: true, Message: msgRegistered, Outcome: outcome}, nil
}

// validateRequest checks the struct tags and that the image file is usable.
func validateRequest(req any, imagePath string) error {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Field() == "EmployeeID" {
			return newError(KindInvalidInput, msgInvalidEmployeeID, err)
		}
		return newError(KindInvalidInput, "Image path is required", err)
	}
	return checkImage(imagePath)
}

func invocationLogger(log *logrus.Logger, invocationID string, employeeID int64) *logrus.Entry {
	if invocationID == "" {
		invocationID = uuid.New().String()
	}
	return log.WithFields(logrus.Fields{
		"invocation_id": invocationID,
		"employee_id":   employeeID,
	})
}
