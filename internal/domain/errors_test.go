package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultRetryableTable(t *testing.T) {
	retryable := []ErrorKind{ErrNetwork, ErrTimeout, ErrRateLimit}
	for _, k := range retryable {
		assert.True(t, DefaultRetryable(k), "%s should default retryable", k)
	}
	nonRetryable := []ErrorKind{ErrValidation, ErrAuthentication, ErrAuthorization, ErrNotFound, ErrInternal, ErrUser}
	for _, k := range nonRetryable {
		assert.False(t, DefaultRetryable(k), "%s should default non-retryable", k)
	}
}

func TestNewExecutionErrorUsesKindDefault(t *testing.T) {
	e := NewExecutionError(ErrNetwork, "timeout talking to upstream")
	assert.True(t, e.Retryable)
	assert.Equal(t, ErrNetwork, e.Kind)
	assert.Contains(t, e.Error(), "network")
}

func TestWithRetryableOverridesDefault(t *testing.T) {
	e := NewExecutionError(ErrNetwork, "boom").WithRetryable(false)
	assert.False(t, e.Retryable)
}

func TestWithDetailAccumulates(t *testing.T) {
	e := NewExecutionError(ErrValidation, "bad input")
	e.WithDetail("field", "url").WithDetail("reason", "empty")
	assert.Equal(t, "url", e.Details["field"])
	assert.Equal(t, "empty", e.Details["reason"])
}

func TestAsExecutionError(t *testing.T) {
	assert.Nil(t, AsExecutionError(nil))

	already := NewExecutionError(ErrTimeout, "slow")
	assert.Same(t, already, AsExecutionError(already))

	wrapped := AsExecutionError(errors.New("plain error"))
	assert.Equal(t, ErrInternal, wrapped.Kind)
	assert.False(t, wrapped.Retryable)
}
