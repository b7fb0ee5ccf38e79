package response

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maxmaster/portal-server-go/pkg/apperrors"
)

// Envelope represents the standard API response shape.
type Envelope struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Error      interface{} `json:"error,omitempty"`
	Pagination interface{} `json:"pagination,omitempty"`
}

// Success writes a success response with optional message and data.
func Success(c *gin.Context, status int, data interface{}, message string, pagination interface{}) {
	c.JSON(status, Envelope{
		Success:    true,
		Message:    message,
		Data:       data,
		Pagination: pagination,
	})
}

// Created is a convenience helper for POST 201 responses.
func Created(c *gin.Context, data interface{}, message string) {
	Success(c, http.StatusCreated, data, message, nil)
}

// Error writes an error response. detail is serialized into the error field;
// a nil detail falls back to the status' error code.
func Error(c *gin.Context, status int, message string, detail interface{}) {
	if detail == nil {
		detail = apperrors.CodeForStatus(status)
	}
	c.JSON(status, Envelope{
		Success: false,
		Message: message,
		Error:   detail,
	})
}

// ErrorWithLog writes an error response and logs the underlying error.
// The error text itself is never sent to the client.
func ErrorWithLog(logger *slog.Logger, c *gin.Context, status int, message string, err error) {
	if logger != nil && err != nil {
		level := slog.LevelWarn
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, message,
			slog.Int("status", status),
			slog.String("path", c.Request.URL.Path),
			slog.String("error", err.Error()),
		)
	}

	Error(c, status, message, nil)
}

// AppError writes an apperrors.AppError using its status, code and fields.
func AppError(logger *slog.Logger, c *gin.Context, err *apperrors.AppError) {
	detail := interface{}(err.Code())
	if fields := err.Fields(); len(fields) > 0 {
		detail = gin.H{"code": err.Code(), "fields": fields}
	}

	if logger != nil && err.Unwrap() != nil {
		logger.ErrorContext(c.Request.Context(), err.Message(),
			slog.Int("status", err.StatusCode()),
			slog.String("error", err.Error()),
		)
	}

	Error(c, err.StatusCode(), err.Message(), detail)
}
