package index

import "errors"

var (
	// ErrEmptyToken is returned when a query token is empty.
	ErrEmptyToken = errors.New("token should not be empty")
	// ErrIndexBusy is returned when the read lock could not be acquired in
	// time. The query can be retried.
	ErrIndexBusy = errors.New("index is being updated, try later")

	errPoolClosed = errors.New("worker pool is closed")
)
