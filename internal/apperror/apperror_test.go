package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCode(t *testing.T) {
	cases := map[Kind]int{
		Validation:   http.StatusBadRequest,
		Conflict:     http.StatusBadRequest,
		BadRequest:   http.StatusBadRequest,
		Unauthorized: http.StatusUnauthorized,
		Forbidden:    http.StatusForbidden,
		NotFound:     http.StatusNotFound,
		Internal:     http.StatusInternalServerError,
	}
	for kind, want := range cases {
		t.Run(kind.String(), func(t *testing.T) {
			assert.Equal(t, want, New(kind, "x", nil).StatusCode())
		})
	}
}

func TestFromWrappedError(t *testing.T) {
	base := NewNotFound("user not found")
	wrapped := fmt.Errorf("get user: %w", base)

	got, ok := From(wrapped)
	require.True(t, ok)
	assert.Same(t, base, got)
	assert.Equal(t, NotFound, got.Kind)
	assert.False(t, IsConflict(wrapped))

	_, ok = From(errors.New("plain"))
	assert.False(t, ok)
}

func TestErrorMessageIncludesCause(t *testing.T) {
	err := NewInternal(errors.New("db down"))
	assert.Equal(t, "internal server error: db down", err.Error())
	assert.ErrorIs(t, err, err.Err)
}
