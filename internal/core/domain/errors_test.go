package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrUnsupportedType", ErrUnsupportedType},
		{"ErrConfig", ErrConfig},
		{"ErrTooLarge", ErrTooLarge},
		{"ErrUnparsable", ErrUnparsable},
		{"ErrToolUnavailable", ErrToolUnavailable},
		{"ErrTransport", ErrTransport},
		{"ErrIndexRejected", ErrIndexRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

// TestErrNotFound tests ErrNotFound error
func TestErrNotFound(t *testing.T) {
	assert.Equal(t, "not found", ErrNotFound.Error())
	assert.True(t, errors.Is(ErrNotFound, ErrNotFound))
	assert.False(t, errors.Is(ErrNotFound, ErrInvalidInput))
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(ErrTransport))
	assert.True(t, IsTransient(fmt.Errorf("bulk: %w", ErrTransport)))
	assert.False(t, IsTransient(ErrIndexRejected))
	assert.False(t, IsTransient(nil))
}
