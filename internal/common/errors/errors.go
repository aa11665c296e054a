// Package errors provides the GreenCrew error taxonomy and its mapping onto
// HTTP responses and BPMN job failures.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Domain taxonomy. These propagate from the engines to the caller unchanged.
const (
	ErrCodeValidation     ErrorCode = "VALIDATION_ERROR"
	ErrCodeAuthentication ErrorCode = "AUTHENTICATION_ERROR"
	ErrCodeAuthorization  ErrorCode = "AUTHORIZATION_ERROR"
	ErrCodeNotFound       ErrorCode = "NOT_FOUND"
	ErrCodeState          ErrorCode = "STATE_ERROR"
	ErrCodeConflict       ErrorCode = "CONFLICT"
)

// Technical codes.
const (
	ErrCodeDatabase               ErrorCode = "DATABASE_ERROR"
	ErrCodeSearchBackend          ErrorCode = "SEARCH_BACKEND_ERROR"
	ErrCodeCache                  ErrorCode = "CACHE_ERROR"
	ErrCodeIdentityProvider       ErrorCode = "IDENTITY_PROVIDER_ERROR"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeInternal               ErrorCode = "INTERNAL_ERROR"
)

// FieldError names one violated input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Fields    []FieldError           `json:"fields,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key to the error metadata and returns the error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationError reports every violated field at once.
func NewValidationError(message string, fields ...FieldError) *StandardError {
	if message == "" {
		message = "Invalid input"
	}
	e := newError(ErrCodeValidation, message, "", false)
	e.Fields = fields
	if len(fields) > 0 {
		parts := make([]string, 0, len(fields))
		for _, f := range fields {
			parts = append(parts, f.Field+": "+f.Message)
		}
		e.Details = strings.Join(parts, "; ")
	}
	return e
}

// NewFieldError is shorthand for a validation error on a single field.
func NewFieldError(field, message string) *StandardError {
	return NewValidationError("", FieldError{Field: field, Message: message})
}

func NewAuthenticationError(details string) *StandardError {
	return newError(ErrCodeAuthentication, "Authentication required", details, false)
}

func NewAuthorizationError(details string) *StandardError {
	return newError(ErrCodeAuthorization, "Permission denied", details, false)
}

func NewNotFoundError(entity, id string) *StandardError {
	return newError(ErrCodeNotFound, fmt.Sprintf("%s not found", entity), fmt.Sprintf("id: %s", id), false).
		WithMetadata("entity", entity)
}

// NewStateError reports an operation that is not legal from the entity's current status.
func NewStateError(entity, current, operation string) *StandardError {
	return newError(ErrCodeState,
		fmt.Sprintf("%s cannot %s from status %q", entity, operation, current), "", false).
		WithMetadata("status", current)
}

func NewConflictError(message, details string) *StandardError {
	return newError(ErrCodeConflict, message, details, false)
}

func NewDatabaseError(operation string, err error) *StandardError {
	e := newError(ErrCodeDatabase, "Database operation failed", fmt.Sprintf("operation: %s, error: %v", operation, err), true)
	e.cause = err
	return e
}

func NewSearchBackendError(operation string, err error) *StandardError {
	e := newError(ErrCodeSearchBackend, "Search backend error", fmt.Sprintf("operation: %s, error: %v", operation, err), true)
	e.cause = err
	return e
}

func NewCacheError(operation string, err error) *StandardError {
	e := newError(ErrCodeCache, "Cache operation failed", fmt.Sprintf("operation: %s, error: %v", operation, err), true)
	e.cause = err
	return e
}

func NewIdentityProviderError(err error) *StandardError {
	e := newError(ErrCodeIdentityProvider, "Identity provider error", err.Error(), true)
	e.cause = err
	return e
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	e := newError(ErrCodeNotificationSendFailed, "Notification delivery failed",
		fmt.Sprintf("channel: %s, error: %v", channel, err), true)
	e.cause = err
	return e
}

func NewInternalError(err error) *StandardError {
	e := newError(ErrCodeInternal, "Unexpected error", err.Error(), false)
	e.cause = err
	return e
}

// ==========================
// 4. Inspection
// ==========================

// As extracts the first StandardError in err's chain.
func As(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// CodeOf returns the taxonomy code of err, or INTERNAL_ERROR for foreign errors.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	if stdErr, ok := As(err); ok {
		return stdErr.Code
	}
	return ErrCodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// Normalize always yields a StandardError.
func Normalize(err error) *StandardError {
	if stdErr, ok := As(err); ok {
		return stdErr
	}
	return NewInternalError(err)
}

// HTTPStatus maps a code onto the status returned to API callers.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeAuthentication:
		return http.StatusUnauthorized
	case ErrCodeAuthorization:
		return http.StatusForbidden
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeState, ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeSearchBackend, ErrCodeIdentityProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// IsUserFacing is true for codes whose message and detail may be shown to callers.
func IsUserFacing(code ErrorCode) bool {
	switch code {
	case ErrCodeValidation, ErrCodeNotFound, ErrCodeState, ErrCodeConflict:
		return true
	default:
		return false
	}
}

// ==========================
// 5. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabase,
		ErrCodeSearchBackend,
		ErrCodeNotificationSendFailed:
		return 3
	case ErrCodeCache, ErrCodeIdentityProvider:
		return 2
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}
	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}
	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// GetErrorCategory groups codes for logging.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeValidation:
		return "VALIDATION"
	case ErrCodeAuthentication, ErrCodeAuthorization, ErrCodeIdentityProvider:
		return "AUTH"
	case ErrCodeNotFound, ErrCodeState, ErrCodeConflict:
		return "LIFECYCLE"
	case ErrCodeDatabase, ErrCodeCache:
		return "DATABASE"
	case ErrCodeSearchBackend:
		return "SEARCH"
	case ErrCodeNotificationSendFailed:
		return "NOTIFICATION"
	default:
		return "OTHER"
	}
}
