package object

import (
	"context"
	"io"
	"time"
)

// ObjectStore defines the contract for saving and retrieving binary objects.
// Save namespaces keys by family so one tenant's assets never collide with
// another's; SaveWithKey is for callers that manage their own key layout.
type ObjectStore interface {
	Save(ctx context.Context, familyId string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
}

// URLSigner is implemented by stores that can mint short-lived GET links
// for stored objects. Callers should fall back to raw storage keys when a
// store does not sign.
type URLSigner interface {
	SignedURL(ctx context.Context, storageKey string, expires time.Duration) (string, error)
}
