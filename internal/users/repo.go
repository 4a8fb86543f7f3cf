package users

import "context"

var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "user not found" }

type Repo interface {
	Upsert(ctx context.Context, user User) error
	GetByID(ctx context.Context, userID string) (User, error)
	// ListByFamily returns the family's members ordered by join time.
	ListByFamily(ctx context.Context, familyID string) ([]User, error)
	AssignFamily(ctx context.Context, userID, familyID string) error
}
