package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidationError_ListsEveryField(t *testing.T) {
	err := NewValidationError("",
		FieldError{Field: "message", Message: "must be at least 20 characters"},
		FieldError{Field: "proposedRate", Message: "must be between 15 and 200"},
	)

	assert.Equal(t, ErrCodeValidation, err.Code)
	assert.Len(t, err.Fields, 2)
	assert.Contains(t, err.Details, "message: must be at least 20 characters")
	assert.Contains(t, err.Details, "proposedRate")
	assert.False(t, err.Retryable)
}

func TestAs_ThroughWrapping(t *testing.T) {
	base := NewStateError("application", "rejected", "be decided")
	wrapped := fmt.Errorf("course decide: %w", base)

	got, ok := As(wrapped)
	require.True(t, ok)
	assert.Same(t, base, got)
	assert.Equal(t, ErrCodeState, CodeOf(wrapped))
	assert.True(t, IsCode(wrapped, ErrCodeState))
	assert.False(t, IsCode(nil, ErrCodeState))
}

func TestCodeOf_ForeignError(t *testing.T) {
	assert.Equal(t, ErrCodeInternal, CodeOf(stderrors.New("plain")))
	assert.Equal(t, ErrorCode(""), CodeOf(nil))
}

func TestUnwrap_KeepsCause(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := NewDatabaseError("insert application", cause)
	assert.True(t, stderrors.Is(err, cause))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeAuthentication, http.StatusUnauthorized},
		{ErrCodeAuthorization, http.StatusForbidden},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeState, http.StatusConflict},
		{ErrCodeConflict, http.StatusConflict},
		{ErrCodeDatabase, http.StatusInternalServerError},
		{ErrCodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.code))
		})
	}
}

func TestIsUserFacing(t *testing.T) {
	assert.True(t, IsUserFacing(ErrCodeValidation))
	assert.True(t, IsUserFacing(ErrCodeConflict))
	assert.False(t, IsUserFacing(ErrCodeAuthorization))
	assert.False(t, IsUserFacing(ErrCodeDatabase))
}

func TestConvertToBPMNError(t *testing.T) {
	retryable := ConvertToBPMNError(NewNotificationSendFailedError("email", stderrors.New("throttled")))
	assert.Equal(t, "NOTIFICATION_SEND_FAILED", retryable.Code)
	assert.Equal(t, 3, retryable.Retries)
	assert.Equal(t, "NOTIFICATION_SEND_FAILED", retryable.ToErrorVariables()["originalErrorCode"])

	withMeta := ConvertToBPMNError(NewNotificationSendFailedError("sms", stderrors.New("opted out")).
		WithMetadata("status", "failed"))
	assert.Equal(t, "failed", withMeta.ToErrorVariables()["status"])

	business := ConvertToBPMNError(NewNotFoundError("notification", "n-1"))
	assert.Equal(t, 0, business.Retries)
	assert.False(t, business.Retryable)
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "LIFECYCLE", GetErrorCategory(ErrCodeConflict))
	assert.Equal(t, "AUTH", GetErrorCategory(ErrCodeAuthorization))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeDatabase))
	assert.Equal(t, "OTHER", GetErrorCategory("SOMETHING"))
}
