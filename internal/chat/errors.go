package chat

import "errors"

// Provider and store failures surface to the caller as one generic
// message. The distinct kinds below exist for logs and tests only.
var (
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	ErrModelUnavailable     = errors.New("model unavailable")
	ErrStoreUnavailable     = errors.New("store unavailable")
	// ErrInvalidInput indicates the caller supplied an unusable request.
	ErrInvalidInput = errors.New("invalid input")
)
