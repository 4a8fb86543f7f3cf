package families

import (
	"context"
	"errors"
)

// ErrNotFound indicates no family matched the requested ID.
var ErrNotFound = errors.New("family not found")

type Repo interface {
	Create(ctx context.Context, fam Family) error
	GetByID(ctx context.Context, familyID string) (Family, error)
	Rename(ctx context.Context, familyID, name string) error
}
