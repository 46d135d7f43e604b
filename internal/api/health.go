package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// HealthTimeout bounds the index check behind /health.
const HealthTimeout = 3 * time.Second

// HealthResponse represents the JSON response from the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Index     string `json:"index"`
	Timestamp string `json:"timestamp"`
}

// HealthChecker is implemented by the vector store.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// NewHealthHandler reports 200 when the index answers within HealthTimeout, 503 otherwise.
func NewHealthHandler(index HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), HealthTimeout)
		defer cancel()

		response := HealthResponse{
			Status:    "healthy",
			Index:     "connected",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		status := http.StatusOK

		if err := index.Health(ctx); err != nil {
			response.Status = "unhealthy"
			response.Index = "disconnected"
			status = http.StatusServiceUnavailable
		}

		writeJSON(w, slog.Default(), status, response)
	}
}
