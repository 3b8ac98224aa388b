package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	handler := CORS([]string{"https://hr.example.com"})(next)

	tests := []struct {
		name       string
		method     string
		origin     string
		wantOrigin string
		wantStatus int
	}{
		{"allowed origin", http.MethodPost, "https://hr.example.com", "https://hr.example.com", http.StatusTeapot},
		{"localhost with port", http.MethodGet, "http://localhost:5173", "http://localhost:5173", http.StatusTeapot},
		{"lookalike localhost", http.MethodGet, "http://localhost.evil.com", "", http.StatusTeapot},
		{"unknown origin", http.MethodGet, "https://evil.example.com", "", http.StatusTeapot},
		{"no origin", http.MethodGet, "", "", http.StatusTeapot},
		{"preflight", http.MethodOptions, "https://hr.example.com", "https://hr.example.com", http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/api/v1/health", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Errorf("expected status %d, got %d", tc.wantStatus, rec.Code)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tc.wantOrigin {
				t.Errorf("expected Access-Control-Allow-Origin %q, got %q", tc.wantOrigin, got)
			}
		})
	}
}
