package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/baymax-health/apiserver/internal/services"
	"github.com/baymax-health/apiserver/internal/store"
	"github.com/baymax-health/apiserver/internal/tracker"
)

const maxBodyBytes = 1 << 20

type contextKey string

const (
	contextSubjectKey contextKey = "sub"
	contextClaimsKey  contextKey = "claims"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Envelope is the body of every API response.
type Envelope struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func userIDFromContext(ctx context.Context) (string, error) {
	subject, ok := ctx.Value(contextSubjectKey).(string)
	if !ok {
		return "", errors.New("missing subject")
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", errors.New("invalid subject")
	}
	return subject, nil
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Envelope{Status: statusSuccess, Data: data})
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Envelope{Status: statusSuccess, Message: message})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Envelope{Status: statusError, Message: message})
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("invalid request body")
	}
	return nil
}

// writeServiceError maps the error taxonomy onto HTTP statuses. Unknown
// errors are logged and reported with fallback.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, notFound, fallback string) {
	var verr *tracker.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, notFound)
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, services.ErrEmailTaken):
		writeError(w, http.StatusConflict, "User already exists with this email")
	case errors.Is(err, tracker.ErrInsufficientStock),
		errors.Is(err, tracker.ErrAlreadyTaken),
		errors.Is(err, tracker.ErrNotTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "record was modified concurrently, please retry")
	case errors.Is(err, services.ErrReportsDisabled):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		slog.ErrorContext(r.Context(), fallback, slog.String("path", r.URL.Path), slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
