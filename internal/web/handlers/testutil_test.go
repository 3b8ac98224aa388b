package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/facegate/internal/faceid"
)

// stubRegistrar records the request and returns the configured outcome
type stubRegistrar struct {
	res     *faceid.RegisterResult
	err     error
	gotReq  faceid.RegisterRequest
	sawFile bool
}

func (s *stubRegistrar) Register(_ context.Context, req faceid.RegisterRequest) (*faceid.RegisterResult, error) {
	s.gotReq = req
	_, err := os.Stat(req.ImagePath)
	s.sawFile = err == nil
	return s.res, s.err
}

type stubVerifier struct {
	res    *faceid.MatchResult
	err    error
	gotReq faceid.MatchRequest
}

func (s *stubVerifier) Match(_ context.Context, req faceid.MatchRequest) (*faceid.MatchResult, error) {
	s.gotReq = req
	return s.res, s.err
}

// multipartRequest builds a POST request carrying data in the "image" field
func multipartRequest(t *testing.T, path string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if data != nil {
		part, err := w.CreateFormFile("image", "capture.jpg")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		part.Write(data)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
