package path

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errCause = errors.New("cause")

func TestRequireFile(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(f, []byte("x"), 0o644))

	assert.NoError(t, RequireFile(f, errCause))
	assert.ErrorIs(t, RequireFile(filepath.Join(dir, "missing.txt"), errCause), errCause)
	assert.ErrorIs(t, RequireFile(dir, errCause), errCause)
}

func TestRequireNewFile(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(f, []byte("x"), 0o644))

	assert.ErrorIs(t, RequireNewFile(f, errCause), errCause)
	assert.NoError(t, RequireNewFile(filepath.Join(dir, "new.txt"), errCause))
	assert.ErrorIs(t, RequireNewFile(filepath.Join(dir, "nope", "new.txt"), errCause), errCause)
}
