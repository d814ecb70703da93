package govfs

import (
	"errors"
	"fmt"
)

var (
	// ErrUnresolved is returned when an identifier cannot be mapped to a
	// concrete path for the requested access mode.
	ErrUnresolved = errors.New("identifier did not resolve")

	// ErrMalformedIdentifier is returned for input not of the form
	// scheme://relative/path.
	ErrMalformedIdentifier = errors.New("malformed identifier")

	// ErrInvalidOperation is returned when the caller requests an operation
	// variant the adapter does not support.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrInvalidLockMode is returned for lock operations outside the
	// recognized shared/exclusive/unlock/non-block values.
	ErrInvalidLockMode = fmt.Errorf("%w: invalid lock mode", ErrInvalidOperation)

	// ErrInvalidHandle is returned for operations on a nil or closed handle.
	ErrInvalidHandle = errors.New("invalid or closed handle")

	// ErrNotDir is returned when a directory iterator is opened on a
	// resource that is not a directory.
	ErrNotDir = errors.New("not a directory")
)
