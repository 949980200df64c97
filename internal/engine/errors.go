package engine

import "errors"

// Sentinel errors returned by engine operations, either directly or wrapped
// with %w, so callers can distinguish them with errors.Is rather than
// string-matching.
var (
	// ErrKeyNotFound is returned by Get for an absent key and by Remove for
	// a key that was never set or was already removed.
	ErrKeyNotFound = errors.New("key not found")

	// ErrReaderNotFound indicates the index holds a pointer into a
	// generation for which no reader is registered — an internal invariant
	// violation, never expected in normal operation.
	ErrReaderNotFound = errors.New("reader not found for generation")

	// ErrCorrupt is returned when a log record fails to decode, or decodes
	// to a command kind that cannot appear at that position (a Remove
	// record reached through an index pointer, which must only ever
	// resolve to a Set).
	ErrCorrupt = errors.New("corrupt log record")
)
