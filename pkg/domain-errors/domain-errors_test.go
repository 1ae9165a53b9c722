package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessageCarriesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, CodeInternal, "persist credential")

	// Audit failure entries record err.Error(); the underlying failure must
	// survive in that string.
	assert.Equal(t, "persist credential: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestErrorMessageWithoutCause(t *testing.T) {
	err := New(CodeInvalidInput, "title is required")
	assert.Equal(t, "title is required", err.Error())
}

func TestErrorMessageFallsBackToCode(t *testing.T) {
	err := &Error{Code: CodeInternal}
	assert.Equal(t, "internal_error", err.Error())

	err = &Error{Code: CodeInternal, Err: errors.New("boom")}
	assert.Equal(t, "internal_error: boom", err.Error())
}

func TestWrapPreservesExistingCode(t *testing.T) {
	inner := New(CodeNotFound, "credential not found")
	outer := Wrap(fmt.Errorf("load: %w", inner), CodeInternal, "verify credential")

	assert.True(t, HasCode(outer, CodeNotFound))
	assert.False(t, HasCode(outer, CodeInternal))
}

func TestHasCode(t *testing.T) {
	err := New(CodeForbidden, "not the owner")

	assert.True(t, HasCode(err, CodeForbidden))
	assert.False(t, HasCode(err, CodeNotFound))
	assert.False(t, HasCode(errors.New("plain"), CodeForbidden))
	assert.False(t, HasCode(nil, CodeForbidden))
}

func TestIsMatchesByCode(t *testing.T) {
	var e *Error
	require.True(t, errors.As(New(CodeExpired, "grant has expired"), &e))
	assert.True(t, errors.Is(e, New(CodeExpired, "different message")))
	assert.False(t, errors.Is(e, New(CodeUnauthorized, "different code")))
}
