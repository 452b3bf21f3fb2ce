package path

import (
	"fmt"
	"os"
	"path/filepath"
)

// Exists reports whether p exists on the filesystem.
func Exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// RequireFile checks that p exists and is not a directory, wrapping any
// failure with cause so callers can classify it (e.g. as ConfigInvalid).
func RequireFile(p string, cause error) error {
	fi, err := os.Stat(p)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", cause, p, err)
	}
	if fi.IsDir() {
		return fmt.Errorf("%w: %s is a directory", cause, p)
	}
	return nil
}

// RequireNewFile checks that p's parent directory exists and that p itself
// does not already exist, so diff/patch never silently clobbers output.
func RequireNewFile(p string, cause error) error {
	if Exists(p) {
		return fmt.Errorf("%w: %s already exists", cause, p)
	}
	dir := filepath.Dir(p)
	fi, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", cause, dir, err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", cause, dir)
	}
	return nil
}
