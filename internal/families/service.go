package families

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxNameLength = 80

type Service struct {
	Repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// CreateForUser provisions the single-member family a user receives on
// first sign-in, named after them.
func (s *Service) CreateForUser(ctx context.Context, displayName string) (Family, error) {
	name := "Family Archive"
	if trimmed := strings.TrimSpace(displayName); trimmed != "" {
		name = fmt.Sprintf("%s's Family", trimmed)
	}
	fam := Family{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, fam); err != nil {
		return Family{}, err
	}
	return fam, nil
}

func (s *Service) Get(ctx context.Context, familyID string) (Family, error) {
	if strings.TrimSpace(familyID) == "" {
		return Family{}, errors.New("family id is required")
	}
	return s.Repo.GetByID(ctx, familyID)
}

func (s *Service) Rename(ctx context.Context, familyID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("name is required")
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("name exceeds %d characters", maxNameLength)
	}
	return s.Repo.Rename(ctx, familyID, name)
}
