package documents

import "errors"

var (
	// ErrNotFound indicates no document matched the family/id pair.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidInput indicates the caller supplied unusable fields.
	ErrInvalidInput = errors.New("invalid input")
)
