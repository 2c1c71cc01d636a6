package core

import "errors"

var (
	// ErrStorageUnavailable means the environment has no usable persistent storage.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrStorageWriteFailed wraps any failure while replacing the persisted collection.
	ErrStorageWriteFailed = errors.New("storage write failed")
	// ErrLegacyNotFound is returned when there is no legacy payload to import.
	ErrLegacyNotFound = errors.New("legacy slides not found")
	// ErrLegacyParseFailed means the legacy payload could not be read as a slide list.
	ErrLegacyParseFailed = errors.New("legacy slides could not be parsed")
	// ErrGeneration wraps transport and parsing failures of a content generator.
	ErrGeneration = errors.New("content generation failed")
	// ErrIndexOutOfRange rejects an operation addressing a position outside the collection.
	ErrIndexOutOfRange = errors.New("slide index out of range")
	// ErrDuplicateID rejects slides whose id is already in the collection.
	ErrDuplicateID = errors.New("duplicate slide id")
)
