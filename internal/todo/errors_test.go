package todo

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorHelpers_MatchWrapped(t *testing.T) {
	ve := fmt.Errorf("create: %w", NewValidationError("title", "must not be empty"))
	ne := fmt.Errorf("update: %w", NewNotFoundError("missing-id"))
	te := fmt.Errorf("list: %w", &TransportError{Op: "list", Err: errors.New("connection refused")})

	assert.True(t, IsValidation(ve))
	assert.False(t, IsValidation(ne))

	assert.True(t, IsNotFound(ne))
	assert.False(t, IsNotFound(te))

	assert.True(t, IsTransport(te))
	assert.False(t, IsTransport(ve))
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "invalid title: must not be empty", NewValidationError("title", "must not be empty").Error())
	assert.Equal(t, `item "x" not found`, NewNotFoundError("x").Error())
	assert.Equal(t, "list: boom", (&TransportError{Op: "list", Err: errors.New("boom")}).Error())
}

func TestWrapTransport(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, WrapTransport("list", nil))
	})

	t.Run("domain errors pass through", func(t *testing.T) {
		nf := NewNotFoundError("a")
		assert.Same(t, nf, WrapTransport("update", nf))
	})

	t.Run("plain errors become transport errors", func(t *testing.T) {
		cause := errors.New("dial tcp: refused")
		err := WrapTransport("list", cause)
		assert.True(t, IsTransport(err))
		assert.ErrorIs(t, err, cause)
	})
}
