package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf_WrappedSentinel(t *testing.T) {
	// Given: a persistence error wrapped twice
	err := fmt.Errorf("update 0042: %w", fmt.Errorf("exec: %w", ErrPersistence))

	// Then: both errors.Is and KindOf see through the wrapping
	assert.True(t, errors.Is(err, ErrPersistence))
	assert.False(t, errors.Is(err, ErrSourceFile))
	assert.Equal(t, "PERSISTENCE", KindOf(err))
}

func TestKindOf_PlainError(t *testing.T) {
	assert.Equal(t, "", KindOf(errors.New("boom")))
	assert.Equal(t, "", KindOf(nil))
}
