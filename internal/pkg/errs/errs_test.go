package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewError(t *testing.T) {
	t.Run("known code defaults status to 200", func(t *testing.T) {
		err := NewError(ErrInvalidCredentials)
		assert.Equal(t, ErrInvalidCredentials, err.Code)
		assert.Equal(t, http.StatusOK, err.Status)
		assert.Equal(t, "Error: Incorrect email or password.", err.Message)
	})

	t.Run("explicit status is kept", func(t *testing.T) {
		err := NewError(ErrUnauthorized)
		assert.Equal(t, http.StatusUnauthorized, err.Status)
	})

	t.Run("details fill the message template", func(t *testing.T) {
		err := NewError(ErrMessageContentTooLong, 5000)
		assert.Equal(t, "Message is too long (max 5000 bytes).", err.Message)
	})

	t.Run("unknown code falls back to ErrUnknown", func(t *testing.T) {
		err := NewError(987654)
		assert.Equal(t, ErrUnknown, err.Code)
		assert.Equal(t, http.StatusInternalServerError, err.Status)
	})

	t.Run("template is not mutated between calls", func(t *testing.T) {
		_ = NewError(ErrFileSizeTooLarge, 5)
		err := NewError(ErrFileSizeTooLarge, 7)
		assert.Equal(t, "File is too large (max 7 MB).", err.Message)
	})
}

func TestFromAndHasCode(t *testing.T) {
	require.Nil(t, From(nil))

	wrapped := fmt.Errorf("sign in: %w", NewError(ErrProfileNotFound))
	assert.True(t, HasCode(wrapped, ErrProfileNotFound))
	assert.False(t, HasCode(wrapped, ErrInvalidCredentials))
	assert.Equal(t, ErrProfileNotFound, From(wrapped).Code)

	plain := errors.New("connection refused")
	assert.Equal(t, ErrUnknown, From(plain).Code)
	assert.False(t, HasCode(plain, ErrUnknown))
}

func TestErrorsIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("wrap: %w", NewError(ErrUserAlreadyExists))
	assert.ErrorIs(t, err, NewError(ErrUserAlreadyExists))
	assert.NotErrorIs(t, err, NewError(ErrInvalidEmail))
}
