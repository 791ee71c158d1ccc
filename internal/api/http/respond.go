package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"viaje-seguro-partner/internal/domain"
	"viaje-seguro-partner/internal/logger"
	"viaje-seguro-partner/internal/service"
)

type errorResponse struct {
	Error   string           `json:"error"`
	Notices []service.Notice `json:"notices,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error, notices ...service.Notice) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "status", status, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Notices: notices})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var netErr *domain.NetworkError
	switch {
	case domain.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrNoCaptureSession):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrActionInFlight), errors.Is(err, domain.ErrCaptureSessionActive):
		return http.StatusConflict
	case domain.IsCameraNotReady(err):
		return http.StatusConflict
	case domain.IsCameraAccess(err):
		return http.StatusServiceUnavailable
	case errors.As(err, &netErr):
		// Client errors from the backend are passed through.
		if netErr.StatusCode >= 400 && netErr.StatusCode < 500 {
			return netErr.StatusCode
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.NewValidationError("body", "invalid JSON body")
	}
	return nil
}
