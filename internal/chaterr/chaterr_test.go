package chaterr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeValidation, CodeOf(Validation("empty body")))
	assert.Equal(t, CodeNotFound, CodeOf(NotFound("listing %d", 7)))

	// Untyped errors surface as persistence failures.
	assert.Equal(t, CodePersistence, CodeOf(errors.New("boom")))
}

func TestWrappedErrorsKeepTheirCode(t *testing.T) {
	inner := Authorization("not a participant")
	wrapped := fmt.Errorf("handling frame: %w", inner)

	assert.True(t, HasCode(wrapped, CodeAuthorization))
	assert.False(t, HasCode(wrapped, CodeValidation))
	assert.Equal(t, CodeAuthorization, CodeOf(wrapped))
}

func TestPersistenceUnwrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Persistence(cause, "message not stored")

	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "persistence_error")
	assert.Contains(t, err.Error(), "connection reset")
}
