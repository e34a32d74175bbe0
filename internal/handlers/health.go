package handlers

import (
	"net/http"
	"time"
)

type HealthResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Health reports liveness. It needs no authentication.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "OK",
		Message:   "Baymax Backend is running!",
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
}
