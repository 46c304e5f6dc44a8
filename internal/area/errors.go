package area

import "errors"

var (
	// ErrAreaNotFound is returned when an area ID does not exist.
	ErrAreaNotFound = errors.New("area: not found")

	// ErrInvalidArea is returned when an area fails validation.
	ErrInvalidArea = errors.New("area: invalid")

	// ErrSlugExists is returned when creating an area whose slug is taken.
	ErrSlugExists = errors.New("area: slug already exists")
)
