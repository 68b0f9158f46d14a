package store

import "errors"

// Sentinel errors returned by Store methods. Callers compare with errors.Is.
var (
	// ErrNotHashable is returned when an attribute or decision value cannot
	// be used as a memory key (slices, maps, and funcs are not comparable).
	ErrNotHashable = errors.New("store: value is not hashable")

	// ErrFutureTime is returned by Populate when the supplied creation time
	// is after the store's current clock.
	ErrFutureTime = errors.New("store: creation time is in the future")

	// ErrConflictingIdentity is returned by Populate when the same
	// (attributes, decision, outcome) identity already exists with a
	// different creation time.
	ErrConflictingIdentity = errors.New("store: conflicting creation time for existing instance")

	// ErrOccurrenceNotFound is returned by MoveOccurrence when the instance
	// has no occurrence at the requested time.
	ErrOccurrenceNotFound = errors.New("store: no occurrence at the given time")
)
