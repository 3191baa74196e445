package errors

import (
	"context"
	"errors"
	"net/http"

	"gorm.io/gorm"

	"github.com/pairdaily/pairing-service/internal/service/cycle"
)

// Map converts service/infra errors into an HTTP status for the trigger
// surface. Keeps the handler layer clean by centralizing error mapping.
func Map(err error) int {
	if err == nil {
		return http.StatusOK
	}

	switch {
	case errors.Is(err, cycle.ErrInsufficientPool):
		return http.StatusUnprocessableEntity

	case errors.Is(err, cycle.ErrCycleAlreadyRunning):
		return http.StatusConflict

	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}
