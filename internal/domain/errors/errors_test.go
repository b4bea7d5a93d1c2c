package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cassiomorais/acquiring/internal/domain/status"
	"github.com/stretchr/testify/assert"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *DomainError
		expected string
	}{
		{
			name: "with wrapped error",
			err: &DomainError{
				Code:    "payment_failed",
				Message: "payment processing failed",
				Err:     errors.New("gateway timeout"),
			},
			expected: "payment processing failed: gateway timeout",
		},
		{
			name: "without wrapped error",
			err: &DomainError{
				Code:    "invalid_state",
				Message: "cannot process payment in current state",
				Err:     nil,
			},
			expected: "cannot process payment in current state",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	domainErr := NewDomainError("test", "test message", originalErr)

	assert.Equal(t, originalErr, domainErr.Unwrap())
	assert.ErrorIs(t, domainErr, originalErr)
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("amount", "must be greater than 0")

	assert.Equal(t, "validation failed for field amount: must be greater than 0", err.Error())
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestTransportError(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewTransportError("get_state", cause)

	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "get_state: connection reset", err.Error())
	assert.NotErrorIs(t, err, ErrPaymentRejected)
}

func TestRejectedError(t *testing.T) {
	err := fmt.Errorf("poll: %w", NewRejectedError(42))

	assert.ErrorIs(t, err, ErrPaymentRejected)
	assert.NotErrorIs(t, err, ErrPaymentTimeout)

	var rejected *RejectedError
	assert.True(t, errors.As(err, &rejected))
	assert.Equal(t, int64(42), rejected.PaymentID)
}

func TestTimeoutError(t *testing.T) {
	t.Run("retries exhausted", func(t *testing.T) {
		err := NewTimeoutError(7, nil)
		assert.ErrorIs(t, err, ErrPaymentTimeout)
		assert.Nil(t, err.Status)
		assert.Contains(t, err.Error(), "retries count is over")
	})

	t.Run("deadline expired", func(t *testing.T) {
		s := status.DeadlineExpired
		err := NewTimeoutError(7, &s)
		assert.ErrorIs(t, err, ErrPaymentTimeout)
		assert.Equal(t, status.DeadlineExpired, *err.Status)
		assert.Contains(t, err.Error(), "DEADLINE_EXPIRED")
	})
}

func TestNewInvalidTransition(t *testing.T) {
	err := NewInvalidTransition("created", "cancel")

	assert.ErrorIs(t, err, ErrInvalidStateTransition)
	assert.Equal(t, "invalid_transition", err.Code)
	assert.Contains(t, err.Error(), "cannot apply cancel in state created")
}

func TestIsCancelled(t *testing.T) {
	assert.True(t, IsCancelled(ErrCancelled))
	assert.True(t, IsCancelled(context.Canceled))
	assert.True(t, IsCancelled(NewTransportError("submit", context.Canceled)))
	assert.False(t, IsCancelled(context.DeadlineExceeded))
	assert.False(t, IsCancelled(NewRejectedError(1)))
	assert.False(t, IsCancelled(nil))
}
