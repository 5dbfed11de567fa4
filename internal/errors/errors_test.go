package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	t.Run("Error returns formatted string", func(t *testing.T) {
		err := New(ErrCodeNotFound, "Screen not found")
		assert.Equal(t, "NOT_FOUND: Screen not found", err.Error())
	})

	t.Run("Error with cause includes cause", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Wrap(ErrCodeDatabase, "Database error", cause)
		assert.Contains(t, err.Error(), "DATABASE_ERROR")
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("WithCause adds cause to error", func(t *testing.T) {
		cause := errors.New("original error")
		err := New(ErrCodeInternal, "Something went wrong").WithCause(cause)
		assert.Equal(t, cause, err.Unwrap())
	})

	t.Run("Is matches by code through wrapping", func(t *testing.T) {
		wrapped := fmt.Errorf("validate: %w", PairingExpired())
		assert.True(t, errors.Is(wrapped, PairingExpired()))
		assert.False(t, errors.Is(wrapped, AlreadyUsed()))
	})
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name         string
		constructor  func() *AppError
		expectedCode ErrorCode
	}{
		{"Unauthorized", func() *AppError { return Unauthorized("test") }, ErrCodeUnauthorized},
		{"Forbidden", func() *AppError { return Forbidden("test") }, ErrCodeForbidden},
		{"InvalidToken", InvalidToken, ErrCodeInvalidToken},
		{"TokenExpired", TokenExpired, ErrCodeTokenExpired},
		{"NotFound", func() *AppError { return NotFound("Screen") }, ErrCodeNotFound},
		{"ValidationError", func() *AppError { return ValidationError("test") }, ErrCodeValidation},
		{"InvalidInput", func() *AppError { return InvalidInput("screenId", "invalid") }, ErrCodeInvalidInput},
		{"MissingRequired", func() *AppError { return MissingRequired("code") }, ErrCodeMissingRequired},
		{"InvalidPairingCode", func() *AppError { return InvalidPairingCode(2) }, ErrCodeInvalidPairingCode},
		{"PairingExpired", PairingExpired, ErrCodePairingExpired},
		{"AlreadyUsed", AlreadyUsed, ErrCodeAlreadyUsed},
		{"AttemptsExceeded", AttemptsExceeded, ErrCodeAttemptsExceeded},
		{"RateLimitExceeded", RateLimitExceeded, ErrCodeRateLimitExceeded},
		{"Internal", func() *AppError { return Internal("test") }, ErrCodeInternal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.constructor()
			assert.Equal(t, tc.expectedCode, err.Code)
			assert.NotEmpty(t, err.Message)
		})
	}
}

func TestInvalidPairingCode(t *testing.T) {
	err := InvalidPairingCode(1)
	assert.Equal(t, "Invalid pairing code. 1 attempts remaining.", err.Message)
	assert.Equal(t, map[string]int{"attemptsRemaining": 1}, err.Details)
}

func TestAsAppError(t *testing.T) {
	t.Run("extracts AppError", func(t *testing.T) {
		original := NotFound("Pairing request")
		extracted, ok := AsAppError(original)
		assert.True(t, ok)
		assert.Equal(t, original, extracted)
	})

	t.Run("returns false for non-AppError", func(t *testing.T) {
		extracted, ok := AsAppError(errors.New("standard error"))
		assert.False(t, ok)
		assert.Nil(t, extracted)
	})
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeNotFound, GetCode(NotFound("x")))
	assert.Equal(t, ErrCodeInternal, GetCode(errors.New("standard error")))
	assert.False(t, IsAppError(errors.New("standard error")))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(ErrCodeInvalidPairingCode))
	assert.False(t, Retryable(ErrCodePairingExpired))
	assert.False(t, Retryable(ErrCodeAlreadyUsed))
	assert.False(t, Retryable(ErrCodeAttemptsExceeded))
	assert.False(t, Retryable(ErrCodeTokenExpired))
}
