package scouterr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	err := New(InvalidPath, "path escapes the workspace root: %s", "../etc/passwd")
	assert.Equal(t, "InvalidPath: path escapes the workspace root: ../etc/passwd", err.Error())

	wrapped := Wrap(StorageUnavailable, errors.New("disk full"), "open database")
	assert.Contains(t, wrapped.Error(), "StorageUnavailable")
	assert.Contains(t, wrapped.Error(), "disk full")
}

func TestKindOf(t *testing.T) {
	err := New(PatternRejected, "too long")
	assert.Equal(t, PatternRejected, KindOf(err))
	assert.True(t, IsKind(err, PatternRejected))
	assert.False(t, IsKind(err, InvalidPath))

	// Kind survives fmt wrapping.
	outer := fmt.Errorf("tool layer: %w", err)
	assert.Equal(t, PatternRejected, KindOf(outer))

	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestUnwrap(t *testing.T) {
	inner := errors.New("root cause")
	err := Wrap(BackendTimeout, inner, "query deadline exceeded")
	require.ErrorIs(t, err, inner)
}
