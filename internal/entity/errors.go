package entity

import "errors"

// Domain errors for the entity package.
var (
	// ErrNotWritable is returned when Set is called on a read-only entity.
	ErrNotWritable = errors.New("entity: not writable")

	// ErrInvalidValue is returned when a written value has the wrong type
	// or is outside the entity's accepted range.
	ErrInvalidValue = errors.New("entity: invalid value")

	// ErrEntityNotFound is returned by lookups for an unknown entity ID.
	ErrEntityNotFound = errors.New("entity: not found")
)
