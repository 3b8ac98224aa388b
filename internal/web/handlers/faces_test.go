package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/facegate/internal/database/mock"
	"github.com/kozaktomas/facegate/internal/embedding"
	"github.com/kozaktomas/facegate/internal/faceid"
	"github.com/kozaktomas/facegate/internal/logging"
	"github.com/kozaktomas/facegate/internal/matcher"
)

var fakeJPEG = []byte{0xFF, 0xD8, 0xFF, 0xE0, 'J', 'F', 'I', 'F'}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestFacesHandler_Register(t *testing.T) {
	reg := &stubRegistrar{res: &faceid.RegisterResult{Success: true, Message: "Face registered successfully"}}
	h := NewFacesHandler(reg, &stubVerifier{}, mock.NewMockRecordStore(), 0, logging.Discard())

	req := requestWithChiParams(multipartRequest(t, "/api/v1/faces/12/register", fakeJPEG), map[string]string{"employeeID": "12"})
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, int64(12), reg.gotReq.EmployeeID)
	assert.True(t, reg.sawFile, "upload is on disk while the flow runs")

	_, err := os.Stat(reg.gotReq.ImagePath)
	assert.True(t, os.IsNotExist(err), "upload is removed after the flow returns")
}

func TestFacesHandler_RegisterRejected(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantReason string
	}{
		{"spoof", &faceid.Error{Kind: faceid.KindSpoofDetected, Message: "Please use a real face, not a photo or video"}, http.StatusUnprocessableEntity, "spoof_detected"},
		{"unknown employee", &faceid.Error{Kind: faceid.KindUnknownEmployee, Message: "Employee with ID 12 not found in employee table"}, http.StatusNotFound, "unknown_employee"},
		{"store", &faceid.Error{Kind: faceid.KindStoreError, Message: "Database error", Err: errors.New("gone")}, http.StatusInternalServerError, "store_error"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewFacesHandler(&stubRegistrar{err: tc.err}, &stubVerifier{}, mock.NewMockRecordStore(), 0, logging.Discard())
			req := requestWithChiParams(multipartRequest(t, "/api/v1/faces/12/register", fakeJPEG), map[string]string{"employeeID": "12"})
			rec := httptest.NewRecorder()
			h.Register(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tc.wantReason, body["reason"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestFacesHandler_BadInput(t *testing.T) {
	reg := &stubRegistrar{}
	h := NewFacesHandler(reg, &stubVerifier{}, mock.NewMockRecordStore(), 0, logging.Discard())

	req := requestWithChiParams(multipartRequest(t, "/api/v1/faces/abc/register", fakeJPEG), map[string]string{"employeeID": "abc"})
	rec := httptest.NewRecorder()
	h.Register(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "user_id must be a valid integer", decodeBody(t, rec)["error"])

	req = requestWithChiParams(multipartRequest(t, "/api/v1/faces/12/match", nil), map[string]string{"employeeID": "12"})
	rec = httptest.NewRecorder()
	h.Match(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "image is required", body["error"])
	assert.Equal(t, "invalid_input", body["reason"])

	assert.Zero(t, reg.gotReq.EmployeeID)
}

func TestFacesHandler_UploadTooLarge(t *testing.T) {
	h := NewFacesHandler(&stubRegistrar{}, &stubVerifier{}, mock.NewMockRecordStore(), 64, logging.Discard())

	big := append(append([]byte{}, fakeJPEG...), make([]byte, 1024)...)
	req := requestWithChiParams(multipartRequest(t, "/api/v1/faces/12/register", big), map[string]string{"employeeID": "12"})
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFacesHandler_Match(t *testing.T) {
	best := &matcher.Candidate{EmployeeID: 12, Distance: 0.1, Similarity: 0.9}

	tests := []struct {
		name       string
		verifier   *stubVerifier
		wantStatus int
		wantMatch  bool
	}{
		{
			name: "matched",
			verifier: &stubVerifier{res: &faceid.MatchResult{
				Matched: true, Stored: true, BestMatch: best, AllMatches: []matcher.Candidate{*best},
				TotalMatches: 1, RecordsChecked: 3, Message: "Face matched and encoding stored successfully",
			}},
			wantStatus: http.StatusOK,
			wantMatch:  true,
		},
		{
			name: "not matched",
			verifier: &stubVerifier{res: &faceid.MatchResult{
				RecordsChecked: 3, Message: "Face does not match any stored encodings. Not storing unmatched face.",
			}},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "not registered",
			verifier:   &stubVerifier{err: &faceid.Error{Kind: faceid.KindNotRegistered, Message: "No face data found for this employee. Please register first."}},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "poor quality",
			verifier:   &stubVerifier{err: &faceid.Error{Kind: faceid.KindPoorQuality, Message: "Poor image quality or no face detected. Please try again."}},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "provider down",
			verifier:   &stubVerifier{err: &faceid.Error{Kind: faceid.KindProviderError, Message: "Face detection failed", Err: errors.New("dial tcp")}},
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewFacesHandler(&stubRegistrar{}, tc.verifier, mock.NewMockRecordStore(), 0, logging.Discard())
			req := requestWithChiParams(multipartRequest(t, "/api/v1/faces/12/match", fakeJPEG), map[string]string{"employeeID": "12"})
			rec := httptest.NewRecorder()
			h.Match(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, tc.wantMatch, body["matched"])
			assert.Equal(t, int64(12), tc.verifier.gotReq.EmployeeID)
			if tc.wantMatch {
				bm := body["best_match"].(map[string]any)
				assert.Equal(t, float64(12), bm["user_id"])
				assert.NotContains(t, bm, "RecordID")
			}
		})
	}
}

func TestFacesHandler_Exists(t *testing.T) {
	store := mock.NewMockRecordStore()
	store.AddVector(7, embedding.Vector{1, 0})
	h := NewFacesHandler(&stubRegistrar{}, &stubVerifier{}, store, 0, logging.Discard())

	for id, want := range map[string]bool{"7": true, "8": false} {
		req := requestWithChiParams(httptest.NewRequest(http.MethodGet, "/api/v1/faces/"+id+"/exists", nil), map[string]string{"employeeID": id})
		rec := httptest.NewRecorder()
		h.Exists(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, want, decodeBody(t, rec)["exists"], id)
	}

	store.HasError = errors.New("down")
	req := requestWithChiParams(httptest.NewRequest(http.MethodGet, "/api/v1/faces/7/exists", nil), map[string]string{"employeeID": "7"})
	rec := httptest.NewRecorder()
	h.Exists(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
