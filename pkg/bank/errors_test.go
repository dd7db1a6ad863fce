package bank

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Message(t *testing.T) {
	err := opError(CodeNotFound, "read", "/mb/core/projectBrief.md", fs.ErrNotExist)
	assert.Contains(t, err.Error(), "read")
	assert.Contains(t, err.Error(), "/mb/core/projectBrief.md")
	assert.Contains(t, err.Error(), string(CodeNotFound))
}

func TestError_Unwrap(t *testing.T) {
	cause := fs.ErrPermission
	err := opError(CodePermissionDenied, "write", "/mb/x.md", cause)
	assert.True(t, errors.Is(err, fs.ErrPermission))
}

func TestCodeOf(t *testing.T) {
	err := opError(CodeInvalidPath, "resolve", "../escape", nil)
	assert.Equal(t, CodeInvalidPath, CodeOf(err))

	wrapped := fmt.Errorf("outer: %w", err)
	assert.Equal(t, CodeInvalidPath, CodeOf(wrapped))

	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
	assert.Equal(t, ErrorCode(""), CodeOf(nil))
}

func TestIsCode(t *testing.T) {
	err := opError(CodePathEscape, "resolve", "x", nil)
	assert.True(t, IsCode(err, CodePathEscape))
	assert.False(t, IsCode(err, CodeInvalidPath))

	require.False(t, IsCode(nil, CodePathEscape))
}
