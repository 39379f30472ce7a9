// Package httpkit provides HTTP response utilities.
// This is part of the platform layer and contains no business logic.
package httpkit

import (
	"errors"
	"net/http"

	"production_backend/platform/apperr"
	"production_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

const msgInternal = "internal error"

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// Error sends an error response with the given status code and message.
func Error(c *gin.Context, status int, message string, details interface{}) {
	c.JSON(status, ErrorResponse{Code: codeForStatus(status), Message: message, Details: details})
}

// OK sends a 200 OK response with the given payload.
func OK(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, payload)
}

// HandleError maps domain errors to HTTP responses.
// Typed *apperr.Error values keep their kind, message and details. Anything
// else is logged with the request correlation id and answered as INTERNAL
// without exposing the underlying cause.
// Returns true if an error was handled, false otherwise.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	var domainErr *apperr.Error
	if errors.As(err, &domainErr) && domainErr.Kind != apperr.KindUnknown {
		status := domainErr.HTTPStatus()
		if status >= http.StatusInternalServerError {
			logFor(c).HTTPError(c.Request.Method, c.Request.URL.Path, status, err, c.ClientIP())
			c.JSON(status, ErrorResponse{Code: domainErr.Code(), Message: msgInternal})
			return true
		}
		c.JSON(status, ErrorResponse{
			Code:    domainErr.Code(),
			Message: domainErr.Message,
			Details: domainErr.Details,
		})
		return true
	}

	logFor(c).HTTPError(c.Request.Method, c.Request.URL.Path, http.StatusInternalServerError, err, c.ClientIP())
	c.JSON(http.StatusInternalServerError, ErrorResponse{Code: "INTERNAL", Message: msgInternal})
	return true
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "VALIDATION_ERROR"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusConflict:
		return "CONFLICT"
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	default:
		if status >= http.StatusInternalServerError {
			return "INTERNAL"
		}
		return "BAD_REQUEST"
	}
}

func logFor(c *gin.Context) *logger.Logger {
	if value, ok := c.Get(ContextLoggerKey); ok {
		if log, ok := value.(*logger.Logger); ok {
			return log
		}
	}
	return fallbackLogger
}

var fallbackLogger = logger.New("production")
