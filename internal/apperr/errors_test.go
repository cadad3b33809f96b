package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsByCode(t *testing.T) {
	err := NotFound("post not found", errors.New("no rows"))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrForbidden))
}

func TestErrorWrappedStillMatches(t *testing.T) {
	err := fmt.Errorf("delete post: %w", Forbidden("not the author"))

	assert.True(t, errors.Is(err, ErrForbidden))
	assert.Equal(t, CodeForbidden, CodeOf(err))
}

func TestErrorUnwrapCause(t *testing.T) {
	cause := errors.New("boom")
	err := Conflict("category has posts", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "category has posts: boom", err.Error())
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, CodeUnknown, CodeOf(errors.New("plain")))
	assert.Nil(t, FieldsOf(errors.New("plain")))
}

func TestFieldsOfInvalid(t *testing.T) {
	err := fmt.Errorf("create post: %w", Invalid("invalid form", map[string]string{"title": "required"}))

	assert.Equal(t, map[string]string{"title": "required"}, FieldsOf(err))
}
