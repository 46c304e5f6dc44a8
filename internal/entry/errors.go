package entry

import "errors"

// Domain errors for the entry package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, entry.ErrEntryNotFound) {
//	    // handle not found case
//	}
var (
	// ErrEntryNotFound is returned when an entry ID does not exist.
	ErrEntryNotFound = errors.New("entry: not found")

	// ErrEntryExists is returned when creating an entry with an ID that
	// already exists.
	ErrEntryExists = errors.New("entry: already exists")

	// ErrUnknownDomain is returned when no integration is registered for
	// an entry's domain.
	ErrUnknownDomain = errors.New("entry: unknown integration domain")

	// ErrNotLoaded is returned when an operation requires a loaded entry.
	ErrNotLoaded = errors.New("entry: not loaded")

	// ErrAlreadyLoaded is returned when setting up an entry that already
	// has a running instance.
	ErrAlreadyLoaded = errors.New("entry: already loaded")
)
