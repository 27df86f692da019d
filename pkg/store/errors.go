package store

import "errors"

var (
	// ErrClosed is returned by operations performed after Close.
	ErrClosed = errors.New("store: closed")

	// ErrNoLease is returned when LeaseGrant fails to allocate a lease ID.
	ErrNoLease = errors.New("store: lease grant failed")
)
