package camunda

import (
	"context"
	"testing"
	"time"

	apperrors "seo-offers/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var fastRetry = &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

func TestWithRetry_RecoversFromTransientStatus(t *testing.T) {
	calls := 0
	key, err := withRetry(t.Context(), fastRetry, "create-instance", func(context.Context) (int64, error) {
		calls++
		if calls < 3 {
			return 0, status.Error(codes.Unavailable, "gateway restarting")
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, int64(42), key)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_StopsOnPermanentStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperrors.ErrorCode
	}{
		{"process missing", status.Error(codes.NotFound, "no process with id offer-submitted"), apperrors.ErrCodeResourceNotFound},
		{"bad variables", status.Error(codes.InvalidArgument, "variables must be a document"), apperrors.ErrCodeValidationFailed},
		{"credentials", status.Error(codes.Unauthenticated, "token expired"), apperrors.ErrCodeUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			_, err := withRetry(t.Context(), fastRetry, "create-instance", func(context.Context) (int64, error) {
				calls++
				return 0, tt.err
			})

			assert.Equal(t, 1, calls)
			assert.Equal(t, tt.want, apperrors.CodeOf(err))
		})
	}
}

func TestWithRetry_ExhaustsBudget(t *testing.T) {
	calls := 0
	_, err := withRetry(t.Context(), fastRetry, "deploy-resource", func(context.Context) (struct{}, error) {
		calls++
		return struct{}{}, status.Error(codes.DeadlineExceeded, "slow broker")
	})

	assert.Equal(t, fastRetry.MaxRetries+1, calls)
	stdErr, ok := apperrors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeTimeout, stdErr.Code)
	assert.Contains(t, stdErr.Details, "deploy-resource")
}

func TestTransient(t *testing.T) {
	assert.True(t, transient(status.Error(codes.ResourceExhausted, "backpressure")))
	assert.True(t, transient(context.DeadlineExceeded))
	assert.False(t, transient(status.Error(codes.NotFound, "process not found")))
}
