// Package httputil provides HTTP utility functions for request and response handling.
package httputil

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/webhook-ledger/internal/errors"
)

// ErrorResponse represents a structured error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleErrorGin maps domain errors to HTTP status codes and returns a JSON response.
// Unknown errors become 500 without exposing internals to the caller; the webhook
// provider retries on 500, so that is the correct signal for any dependency failure.
func HandleErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if err == nil {
		return
	}

	var statusCode int
	var response ErrorResponse

	switch {
	case apperrors.Is(err, apperrors.ErrInvalidInput):
		statusCode = http.StatusBadRequest
		response = ErrorResponse{Error: err.Error()}

	case apperrors.Is(err, apperrors.ErrUnauthorized):
		statusCode = http.StatusUnauthorized
		response = ErrorResponse{Error: err.Error()}

	case apperrors.Is(err, apperrors.ErrNotFound):
		statusCode = http.StatusNotFound
		response = ErrorResponse{Error: "not found"}

	case apperrors.Is(err, apperrors.ErrConflict):
		statusCode = http.StatusConflict
		response = ErrorResponse{Error: "conflict"}

	default:
		statusCode = http.StatusInternalServerError
		response = ErrorResponse{Error: "Internal error"}
		logger.Error("internal error",
			slog.Any("error", err),
			slog.String("path", c.Request.URL.Path),
		)
	}

	c.JSON(statusCode, response)
}
