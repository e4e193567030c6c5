package fsx

import (
	"fmt"
	"os"
)

// FS is a read-only view of the filesystem. The filter and the collector
// depend on this interface so tests can inject a fake view.
type FS interface {
	Exists(path string) bool
	ReadFile(path string) (string, error)
}

// OS implements FS against the local disk.
type OS struct{}

// Exists reports whether path denotes an existing file. Any stat failure,
// including permission errors, counts as "does not exist" so callers always
// get a decision instead of an error.
func (OS) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ReadFile returns the full contents of the file at path.
func (OS) ReadFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(b), nil
}
