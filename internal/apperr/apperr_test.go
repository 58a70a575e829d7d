package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAndError(t *testing.T) {
	err := BadRequest("missing field %s", "name")
	assert.Equal(t, "bad_request: missing field name", err.Error())
	assert.Equal(t, KindBadRequest, err.Kind)
}

func TestWrapIncludesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Database(cause, "query users")
	assert.Contains(t, err.Error(), "connection refused")
	assert.ErrorIs(t, err, cause)
}

func TestAsExtractsWrappedAppError(t *testing.T) {
	inner := Sandbox(errors.New("trap"), "guest panicked")
	wrapped := fmt.Errorf("submit failed: %w", inner)

	ae, ok := As(wrapped)
	require := assert.New(t)
	require.True(ok)
	require.Equal(KindSandbox, ae.Kind)
}

func TestAsReturnsFalseForPlainError(t *testing.T) {
	_, ok := As(errors.New("plain"))
	assert.False(t, ok)
}
