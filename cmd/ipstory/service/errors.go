package service

import "errors"

var (
	// ErrStoryNotFound means no story is registered for the address.
	ErrStoryNotFound = errors.New("no story registered for address")

	// ErrConflict means an entry with the requested creation timestamp
	// is already present in the address history.
	ErrConflict = errors.New("an entry with this timestamp is already present")
)
