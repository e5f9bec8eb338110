// internal/common/errors/handler.go
package errors

import (
	"time"
)

// ErrorHandler normalizes task errors and decides whether another
// attempt is worth making.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleTaskError normalizes, logs, and reports how many retries remain
// for the failed task. attempt is 1-based.
func (h *ErrorHandler) HandleTaskError(task string, attempt int, err error) (retryable bool) {
	stdErr := h.normalizeError(err)

	remaining := GetRetryCount(stdErr.Code) - attempt
	if !stdErr.Retryable {
		remaining = 0
	}

	h.logError(task, attempt, stdErr, remaining)
	return remaining > 0
}

// normalizeError ensures we always have a StandardError
func (h *ErrorHandler) normalizeError(err error) *StandardError {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr
	}
	return &StandardError{
		Code:      "INTERNAL_ERROR",
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func (h *ErrorHandler) logError(task string, attempt int, stdErr *StandardError, remaining int) {
	h.logger.Error("Task failed", map[string]interface{}{
		"task":             task,
		"attempt":          attempt,
		"errorCode":        string(stdErr.Code),
		"message":          stdErr.Message,
		"details":          stdErr.Details,
		"retryable":        stdErr.Retryable,
		"retriesRemaining": remaining,
		"errorCategory":    GetErrorCategory(stdErr.Code),
	})
}
