package camunda

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "greencrew/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient() *Client {
	return &Client{config: &ClientConfig{
		RequestTimeout: time.Second,
		RetryConfig: &RetryConfig{
			MaxRetries: 2,
			BaseDelay:  time.Millisecond,
			MaxDelay:   2 * time.Millisecond,
		},
	}}
}

func TestIsRetryableZeebeError(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"rpc error: code = Unavailable desc = connection refused", true},
		{"context deadline exceeded", true},
		{"broken pipe", true},
		{"rpc error: code = NotFound desc = no such process", false},
		{"invalid argument", false},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableZeebeError(errors.New(tt.msg)))
		})
	}
}

func TestMapZeebeError(t *testing.T) {
	tests := []struct {
		msg  string
		code apperrors.ErrorCode
	}{
		{"message not found", apperrors.ErrCodeNotFound},
		{"message with id already exists", apperrors.ErrCodeConflict},
		{"rpc error: code = Unauthenticated", apperrors.ErrCodeIdentityProvider},
		{"connection refused", apperrors.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			err := mapZeebeError(errors.New(tt.msg), "publish-message", 0)
			assert.Equal(t, tt.code, apperrors.CodeOf(err))
		})
	}
}

func TestExecuteWithRetry(t *testing.T) {
	t.Run("retries transient failures", func(t *testing.T) {
		calls := 0
		result, err := testClient().ExecuteWithRetry(context.Background(), func(context.Context) (interface{}, error) {
			calls++
			if calls < 3 {
				return nil, errors.New("unavailable")
			}
			return "ok", nil
		}, "op")

		require.NoError(t, err)
		assert.Equal(t, "ok", result)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on permanent failure", func(t *testing.T) {
		calls := 0
		_, err := testClient().ExecuteWithRetry(context.Background(), func(context.Context) (interface{}, error) {
			calls++
			return nil, errors.New("already exists")
		}, "op")

		assert.Equal(t, apperrors.ErrCodeConflict, apperrors.CodeOf(err))
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		_, err := testClient().ExecuteWithRetry(context.Background(), func(context.Context) (interface{}, error) {
			calls++
			return nil, errors.New("timeout")
		}, "op")

		require.Error(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("honours cancellation", func(t *testing.T) {
		c := testClient()
		c.config.RetryConfig.BaseDelay = time.Hour
		c.config.RetryConfig.MaxDelay = time.Hour
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.ExecuteWithRetry(ctx, func(context.Context) (interface{}, error) {
			return nil, errors.New("unavailable")
		}, "op")

		assert.ErrorIs(t, err, context.Canceled)
	})
}
