package settings

import "context"

// Repo persists per-family settings. Append must be safe under concurrent
// ingest workers: two appends to the same family may not lose values.
type Repo interface {
	Get(ctx context.Context, familyID string) (Settings, error)
	Upsert(ctx context.Context, s Settings) error
	Append(ctx context.Context, familyID string, vals Values) error
	Delete(ctx context.Context, familyID string) error
}
