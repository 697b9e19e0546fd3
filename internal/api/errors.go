package api

import (
	"errors"
	"log/slog"
	"net/http"

	"deltashare-mock/internal/domain"
)

// httpStatusFromDomainError maps domain errors to HTTP status codes.
func httpStatusFromDomainError(err error) int {
	var notFound *domain.NotFoundError
	var validation *domain.ValidationError
	var unavailable *domain.UnavailableError

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// clientMessage returns the message sent to the client for err. Only
// not-found and validation messages are passed through.
func clientMessage(status int, err error) string {
	switch status {
	case http.StatusNotFound, http.StatusBadRequest:
		return err.Error()
	case http.StatusServiceUnavailable:
		return "Service unavailable"
	default:
		return "Internal server error"
	}
}

// writeDomainError writes err as {"error": ...} with its mapped status.
// Server-side failures are logged with full detail.
func writeDomainError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := httpStatusFromDomainError(err)
	if status >= http.StatusInternalServerError {
		attrs := []any{"method", r.Method, "path", r.URL.Path, "status", status, "error", err}
		var se *domain.StorageError
		if errors.As(err, &se) && se.Code != "" {
			attrs = append(attrs, "store_code", se.Code)
		}
		logger.ErrorContext(r.Context(), "request failed", attrs...)
	}
	writeError(w, status, clientMessage(status, err))
}
