package locator

import "errors"

var (
	// ErrNoConfig is returned when no configuration source is set.
	ErrNoConfig = errors.New("no configuration file set")

	// ErrInvalidConfig is returned for configurations failing validation.
	ErrInvalidConfig = errors.New("invalid configuration")
)
