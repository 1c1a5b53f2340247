package domain

import (
	"errors"
	"fmt"
)

// Exported error variables allow callers to use errors.Is() for error checking.
var (
	ErrVersionNameEmpty        = errors.New("version name cannot be empty")
	ErrVersionNameDot          = errors.New("version name cannot be '.' or '..'")
	ErrVersionNameNonPrintable = errors.New("version name contains non-printable characters")
	ErrVersionNameInvalidChars = errors.New("version name contains invalid characters (<>:\"/|?*)")
	ErrVersionNameReserved     = errors.New("version name is a reserved system filename")
	ErrVersionNameNullByte     = errors.New("version name contains null byte")
	ErrVersionNameTrailing     = errors.New("version name cannot end with '.' or a space")
)

var (
	// ErrNotFound reports a version name without a directory in the versions store.
	ErrNotFound = errors.New("version not found")
	// ErrAlreadyExists reports a version name that already has a directory.
	ErrAlreadyExists = errors.New("version already exists")
	// ErrSwapIncomplete is wrapped into the error of a swap that failed after the
	// primary directory had been cleared. The primary contents need manual recovery.
	ErrSwapIncomplete = errors.New("swap incomplete: primary directory may be partially replaced")

	// ErrInvalidName reports a name that cannot be used as a single path segment.
	ErrInvalidName = errors.New("invalid version name")
	// ErrOverlappingDirs reports a primary directory and versions store that
	// contain one another.
	ErrOverlappingDirs = errors.New("primary directory and versions directory overlap")

	ErrGameNotFound = errors.New("game not registered")
	ErrGameExists   = errors.New("game already registered")
)

// IOError wraps a failed filesystem call made while working on a version tree.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// WrapIO returns nil for a nil err, keeps an existing *IOError intact and wraps
// anything else.
func WrapIO(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var ioErr *IOError
	if errors.As(err, &ioErr) {
		return err
	}
	return &IOError{Op: op, Path: path, Err: err}
}
