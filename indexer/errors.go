package indexer

import "errors"

var (
	// ErrConfiguration is returned by New when the configuration is invalid.
	ErrConfiguration = errors.New("invalid indexer configuration")
	// ErrInvalidPath is reported for a path that cannot be normalized.
	ErrInvalidPath = errors.New("invalid path")
)
