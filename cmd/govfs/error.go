package main

import "errors"

var (
	// ErrUsage occurs when the program was invoked with an unknown command
	// or a wrong number of arguments.
	ErrUsage = errors.New("invalid usage")

	// ErrPartialTransfer occurs when a transfer batch has finished with one
	// or more items skipped.
	ErrPartialTransfer = errors.New("transfer has finished partially")

	// ErrUnknownScheme occurs when a command names a scheme the configured
	// mount table does not govern.
	ErrUnknownScheme = errors.New("scheme not in mount table")
)
