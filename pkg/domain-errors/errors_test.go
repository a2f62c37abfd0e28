package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	base := errors.New("db down")

	t.Run("matches outer code", func(t *testing.T) {
		err := Wrap(base, CodeInternal, "failed to load")
		assert.True(t, HasCode(err, CodeInternal))
		assert.False(t, HasCode(err, CodeNotFound))
	})

	t.Run("matches nested code through fmt wrapping", func(t *testing.T) {
		inner := New(CodeNotFound, "notification not found")
		err := fmt.Errorf("handler: %w", Wrap(inner, CodeInternal, "outer"))
		assert.True(t, HasCode(err, CodeNotFound))
		assert.True(t, HasCode(err, CodeInternal))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		assert.False(t, HasCode(base, CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(base))
	})

	t.Run("unwrap exposes cause", func(t *testing.T) {
		err := Wrap(base, CodeInternal, "failed")
		assert.ErrorIs(t, err, base)
		assert.Equal(t, "failed: db down", err.Error())
	})
}
