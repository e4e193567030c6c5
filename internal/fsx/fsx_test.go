package fsx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.md")
	require.NoError(t, os.WriteFile(path, []byte("docs"), 0644))

	var fsys OS
	assert.True(t, fsys.Exists(path))
	assert.False(t, fsys.Exists(filepath.Join(dir, "missing.md")))
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.js")
	require.NoError(t, os.WriteFile(path, []byte("contents"), 0644))

	var fsys OS

	got, err := fsys.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "contents", got)

	_, err = fsys.ReadFile(filepath.Join(dir, "missing.js"))
	assert.Error(t, err)
}
