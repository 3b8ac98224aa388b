package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/kozaktomas/facegate/internal/database"
	"github.com/kozaktomas/facegate/internal/faceid"
)

const defaultMaxUpload = 10 << 20

type registrar interface {
	Register(ctx context.Context, req faceid.RegisterRequest) (*faceid.RegisterResult, error)
}

type verifier interface {
	Match(ctx context.Context, req faceid.MatchRequest) (*faceid.MatchResult, error)
}

// FacesHandler exposes registration, matching and enrollment status over HTTP.
type FacesHandler struct {
	registrar registrar
	verifier  verifier
	store     database.RecordReader
	maxUpload int64
	log       *logrus.Logger
}

// NewFacesHandler creates a new faces handler.
func NewFacesHandler(reg registrar, ver verifier, store database.RecordReader, maxUpload int64, log *logrus.Logger) *FacesHandler {
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}
	return &FacesHandler{
		registrar: reg,
		verifier:  ver,
		store:     store,
		maxUpload: maxUpload,
		log:       log,
	}
}

// Register handles POST /api/v1/faces/{employeeID}/register.
func (h *FacesHandler) Register(w http.ResponseWriter, r *http.Request) {
	employeeID, err := faceid.ParseEmployeeID(chi.URLParam(r, "employeeID"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, faceid.NewRegisterFailure(err))
		return
	}

	path, cleanup, err := h.saveUpload(w, r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, faceid.RegisterFailure{Error: err.Error(), Reason: faceid.KindInvalidInput})
		return
	}
	defer cleanup()

	res, err := h.registrar.Register(r.Context(), faceid.RegisterRequest{
		EmployeeID:   employeeID,
		ImagePath:    path,
		InvocationID: chiMiddleware.GetReqID(r.Context()),
	})
	if err != nil {
		respondJSON(w, statusForKind(faceid.KindOf(err)), faceid.NewRegisterFailure(err))
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// Match handles POST /api/v1/faces/{employeeID}/match. A face that matches
// nothing is answered with 401 and the regular match body.
func (h *FacesHandler) Match(w http.ResponseWriter, r *http.Request) {
	employeeID, err := faceid.ParseEmployeeID(chi.URLParam(r, "employeeID"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, faceid.NewMatchFailure(err))
		return
	}

	path, cleanup, err := h.saveUpload(w, r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, faceid.MatchFailure{Error: err.Error(), Reason: faceid.KindInvalidInput})
		return
	}
	defer cleanup()

	res, err := h.verifier.Match(r.Context(), faceid.MatchRequest{
		EmployeeID:   employeeID,
		ImagePath:    path,
		InvocationID: chiMiddleware.GetReqID(r.Context()),
	})
	if err != nil {
		respondJSON(w, statusForKind(faceid.KindOf(err)), faceid.NewMatchFailure(err))
		return
	}
	if !res.Matched {
		respondJSON(w, http.StatusUnauthorized, res)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// Exists handles GET /api/v1/faces/{employeeID}/exists.
func (h *FacesHandler) Exists(w http.ResponseWriter, r *http.Request) {
	employeeID, err := faceid.ParseEmployeeID(chi.URLParam(r, "employeeID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := faceid.Status(r.Context(), h.store, employeeID)
	if err != nil {
		h.log.WithError(err).WithField("employee_id", employeeID).Error("status check failed")
		respondError(w, statusForKind(faceid.KindOf(err)), "failed to check face data")
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// saveUpload writes the multipart "image" field to a temporary file. The
// returned cleanup removes it.
func (h *FacesHandler) saveUpload(w http.ResponseWriter, r *http.Request) (string, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		return "", nil, errors.New("failed to parse multipart form")
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck // temp parts only

	file, header, err := r.FormFile("image")
	if err != nil {
		return "", nil, errors.New("image is required")
	}
	defer file.Close()

	out, err := os.CreateTemp("", "facegate-upload-*"+filepath.Ext(filepath.Base(header.Filename)))
	if err != nil {
		return "", nil, errors.New("failed to create temp file")
	}
	cleanup := func() {
		if err := os.Remove(out.Name()); err != nil && !os.IsNotExist(err) {
			h.log.WithError(err).Warn("failed to remove uploaded image")
		}
	}

	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		cleanup()
		return "", nil, errors.New("failed to save file")
	}
	if err := out.Close(); err != nil {
		cleanup()
		return "", nil, errors.New("failed to save file")
	}

	h.log.WithFields(logrus.Fields{
		"filename": sanitizeForLog(header.Filename),
		"size":     header.Size,
	}).Debug("upload saved")
	return out.Name(), cleanup, nil
}
