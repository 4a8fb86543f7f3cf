package usage

import "errors"

// ErrLimitReached indicates the family exhausted its question allowance.
var ErrLimitReached = errors.New("limit reached")
