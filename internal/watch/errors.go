package watch

import (
	"errors"
	"fmt"
)

// Sentinel errors for watcher construction and scanning.
var (
	ErrNegativeRecursionLimit = errors.New("watch: recursion limit must not be negative")
	ErrRootNotDirectory       = errors.New("watch: root is not a directory")
)

// ScanError wraps a filesystem failure that aborted one scan of a watcher.
// The watcher's index is left untouched when a ScanError is returned.
type ScanError struct {
	Root string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("watch: scan of %s failed: %v", e.Root, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}
