package settings

import "errors"

// ErrNotFound is returned when no settings row exists for a family.
var ErrNotFound = errors.New("settings not found")
