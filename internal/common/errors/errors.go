// Package errors provides standardized error handling for harvest runs.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeFetchFailed       ErrorCode = "FETCH_FAILED"
	ErrCodeFetchTimeout      ErrorCode = "FETCH_TIMEOUT"
	ErrCodeFetchBlocked      ErrorCode = "FETCH_BLOCKED"
	ErrCodePageParseFailed   ErrorCode = "PAGE_PARSE_FAILED"
	ErrCodeFeedInvalid       ErrorCode = "FEED_INVALID"
	ErrCodeStateDecodeFailed ErrorCode = "STATE_DECODE_FAILED"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"
	ErrCodeUpsertFailed             ErrorCode = "UPSERT_FAILED"
	ErrCodeColumnCreateFailed       ErrorCode = "COLUMN_CREATE_FAILED"

	ErrCodeExportUploadFailed ErrorCode = "EXPORT_UPLOAD_FAILED"
	ErrCodeExportDedupFailed  ErrorCode = "EXPORT_DEDUP_FAILED"

	ErrCodeElasticsearchConnectionFailed ErrorCode = "ELASTICSEARCH_CONNECTION_FAILED"
	ErrCodeIndexBulkFailed               ErrorCode = "INDEX_BULK_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewFetchFailedError creates a retryable fetch error.
func NewFetchFailedError(url string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeFetchFailed,
		Message:   "Page fetch failed",
		Details:   fmt.Sprintf("url: %s, error: %s", url, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewFetchTimeoutError creates a retryable fetch timeout error.
func NewFetchTimeoutError(url string) *StandardError {
	return &StandardError{
		Code:      ErrCodeFetchTimeout,
		Message:   "Page fetch timeout",
		Details:   fmt.Sprintf("url: %s", url),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewFetchBlockedError creates a non-retryable error for a source that
// is refusing the client. Retrying immediately only digs the hole.
func NewFetchBlockedError(url string, statusCode int) *StandardError {
	return &StandardError{
		Code:      ErrCodeFetchBlocked,
		Message:   "Source refused the request",
		Details:   fmt.Sprintf("url: %s, status: %d", url, statusCode),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPageParseFailedError creates a non-retryable parse error; the page
// content will not change on retry.
func NewPageParseFailedError(url string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePageParseFailed,
		Message:   "Page parsing failed",
		Details:   fmt.Sprintf("url: %s, error: %s", url, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewFeedInvalidError creates a non-retryable feed validation error.
func NewFeedInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeFeedInvalid,
		Message:   "Review feed payload failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStateDecodeFailedError creates a non-retryable persisted-state error.
func NewStateDecodeFailedError(businessID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStateDecodeFailed,
		Message:   "Persisted harvest state is malformed",
		Details:   fmt.Sprintf("businessId: %s, error: %s", businessID, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(query string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("query: %s, error: %s", query, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryTimeoutError creates a retryable query timeout error.
func NewQueryTimeoutError(query string) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryTimeout,
		Message:   "Database query timeout",
		Details:   fmt.Sprintf("query: %s", query),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewUpsertFailedError creates a retryable upsert error.
func NewUpsertFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpsertFailed,
		Message:   "Record upsert failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewColumnCreateFailedError creates a retryable schema extension error.
func NewColumnCreateFailedError(column string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeColumnCreateFailed,
		Message:   "Tag column creation failed",
		Details:   fmt.Sprintf("column: %s, error: %s", column, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewExportUploadFailedError creates a retryable bucket upload error.
func NewExportUploadFailedError(object string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeExportUploadFailed,
		Message:   "Bucket upload failed",
		Details:   fmt.Sprintf("object: %s, error: %s", object, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewExportDedupFailedError creates a retryable dedup store error.
func NewExportDedupFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeExportDedupFailed,
		Message:   "Export dedup store error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewElasticsearchConnectionFailedError creates a retryable Elasticsearch connection error.
func NewElasticsearchConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeElasticsearchConnectionFailed,
		Message:   "Elasticsearch connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewIndexBulkFailedError creates a retryable bulk indexing error.
func NewIndexBulkFailedError(index string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeIndexBulkFailed,
		Message:   "Bulk indexing failed",
		Details:   fmt.Sprintf("index: %s, error: %s", index, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("type: %s, error: %s", notificationType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// Generic constructors

func NewBusinessRuleError(message, details string) *StandardError {
	return &StandardError{
		Code:      "BUSINESS_RULE_VIOLATION",
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "EXTERNAL_SERVICE_ERROR",
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "TIMEOUT_ERROR",
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return &StandardError{
		Code:      "RESOURCE_NOT_FOUND",
		Message:   fmt.Sprintf("Resource not found in %s", service),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Retry Policy
// ==========================

// GetRetryCount returns the recommended retry count per error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeUpsertFailed,
		ErrCodeColumnCreateFailed,
		ErrCodeExportUploadFailed,
		ErrCodeExportDedupFailed,
		ErrCodeElasticsearchConnectionFailed,
		ErrCodeIndexBulkFailed,
		ErrCodeNotificationSendFailed:
		return 3 // Retryable technical errors

	case ErrCodeFetchFailed,
		ErrCodeFetchTimeout,
		ErrCodeQueryTimeout:
		return 2 // Partial retry for transient fetch/query problems

	default:
		return 0 // Parse and validation errors: no retry
	}
}

// ==========================
// 4. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "FETCH") || strings.Contains(codeStr, "PAGE"):
		return "FETCH"
	case strings.Contains(codeStr, "FEED") || strings.Contains(codeStr, "STATE"):
		return "VALIDATION"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY") ||
		strings.Contains(codeStr, "UPSERT") || strings.Contains(codeStr, "COLUMN"):
		return "DATABASE"
	case strings.Contains(codeStr, "EXPORT"):
		return "EXPORT"
	case strings.Contains(codeStr, "ELASTICSEARCH") || strings.Contains(codeStr, "INDEX"):
		return "SEARCH"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	default:
		return "OTHER"
	}
}
