package seedcache

import "errors"

// Errors.
var (
	// ErrInvalidSize is returned when a capacity or count is outside of [1, MaxCapacity].
	ErrInvalidSize = errors.New("invalid size")
	// ErrAllocationFailed is returned when the seed storage could not be obtained.
	ErrAllocationFailed = errors.New("allocation failed")
	// ErrLockInitFailed is returned when the cache lock could not be set up.
	ErrLockInitFailed = errors.New("lock initialization failed")
	// ErrInvalidArgument is returned for an empty or missing key.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrAlreadyExists is returned by Create when the process-wide cache is already present.
	ErrAlreadyExists = errors.New("cache already exists")
	// ErrClosed is returned when populating a cache whose storage was released.
	ErrClosed = errors.New("cache is closed")
)
