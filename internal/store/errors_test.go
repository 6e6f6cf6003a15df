package store_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/kaziapp/taggraph/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	err := &store.Error{
		Code:    http.StatusNotFound,
		Message: "not found",
	}

	assert.Equal(t, "not found", err.Error())
}

func TestError_ErrorWithCause(t *testing.T) {
	cause := errors.New("underlying error")
	err := &store.Error{
		Code:    http.StatusNotFound,
		Message: "not found",
		Err:     cause,
	}

	assert.Contains(t, err.Error(), "not found")
	assert.Contains(t, err.Error(), "underlying error")
	assert.Equal(t, cause, err.Unwrap())
}

func TestError_HTTPCode(t *testing.T) {
	assert.Equal(t, http.StatusConflict, store.ErrAlreadyExists.HTTPCode())
}

func TestError_WithMessageStillMatchesSentinel(t *testing.T) {
	err := store.ErrNotFound.WithMessage("tag not found")

	assert.Equal(t, "tag not found", err.Error())
	assert.True(t, errors.Is(err, store.ErrNotFound))
	assert.False(t, errors.Is(err, store.ErrAlreadyExists))

	wrapped := fmt.Errorf("get tag: %w", err)
	assert.True(t, errors.Is(wrapped, store.ErrNotFound))
}
