// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the response helpers shared by every endpoint: the error
// envelope, fail()/ok(), and failErr() which maps service errors to HTTP
// statuses in one place:
//
//	*services.ValidationError  → 400 validation_failed (with details)
//	services.ErrHabitNotFound  → 404 not_found
//	services.ErrToggleConflict → 409 conflict
//	anything else              → 500 with the operation's code
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-habit-backend/internal/http/middleware"
	"github.com/tbourn/go-habit-backend/internal/services"
)

// ErrorDetail names the violated input constraint.
type ErrorDetail struct {
	Field  string `json:"field"  example:"weekDays[0]"`
	Reason string `json:"reason" example:"must be <= 6"`
}

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"validation_failed"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"weekDays[0] must be <= 6"`
	// Present on validation failures
	Details *ErrorDetail `json:"details,omitempty"`
}

// fail aborts with the error envelope. 5xx responses are logged through the
// request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	failWith(c, status, ErrorResponse{Code: code, Message: msg})
}

func failWith(c *gin.Context, status int, resp ErrorResponse) {
	resp.RequestID = middleware.RequestIDFrom(c)

	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", resp.Code).
			Str("message", resp.Message).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail() for router-level fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// failErr translates a service error. internalCode is used for 5xx so the
// client can tell which operation failed.
func failErr(c *gin.Context, err error, internalCode string) {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		msg := ve.Reason
		if ve.Field != "" {
			msg = ve.Field + " " + ve.Reason
		}
		failWith(c, http.StatusBadRequest, ErrorResponse{
			Code:    ErrCodeValidation,
			Message: msg,
			Details: &ErrorDetail{Field: ve.Field, Reason: ve.Reason},
		})
	case errors.Is(err, services.ErrHabitNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "habit not found")
	case errors.Is(err, services.ErrToggleConflict):
		fail(c, http.StatusConflict, ErrCodeConflict, "habit was toggled concurrently, retry")
	default:
		// Storage details stay in the log, not in the response.
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, internalCode, "internal error")
	}
}

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// okEmpty writes a success status with no body.
func okEmpty(c *gin.Context) {
	c.Status(http.StatusOK)
}
