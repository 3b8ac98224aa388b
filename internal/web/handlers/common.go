package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/kozaktomas/facegate/internal/faceid"
)

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusForKind maps a flow rejection onto an HTTP status.
func statusForKind(kind faceid.Kind) int {
	switch kind {
	case faceid.KindInvalidInput:
		return http.StatusBadRequest
	case faceid.KindNoFace, faceid.KindMultipleFaces, faceid.KindSpoofDetected,
		faceid.KindPoorQuality, faceid.KindInvalidEmbedding:
		return http.StatusUnprocessableEntity
	case faceid.KindNotRegistered, faceid.KindUnknownEmployee:
		return http.StatusNotFound
	case faceid.KindProviderError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
