package users

import (
	"context"
	"errors"
	"strings"
)

type Service struct {
	Repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// UpsertFromAuth persists the user identity from OAuth to stabilize history and usage ownership.
func (s *Service) UpsertFromAuth(ctx context.Context, user User) error {
	if s == nil || s.Repo == nil {
		return errors.New("users service not configured")
	}
	if strings.TrimSpace(user.ID) == "" || strings.TrimSpace(user.Email) == "" {
		return errors.New("user id and email are required")
	}
	return s.Repo.Upsert(ctx, user)
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return User{}, errors.New("user id is required")
	}
	return s.Repo.GetByID(ctx, userID)
}

// AssignFamily links a user to a family. A user belongs to exactly one
// family, so this also covers moving households.
func (s *Service) AssignFamily(ctx context.Context, userID, familyID string) error {
	if s == nil || s.Repo == nil {
		return errors.New("users service not configured")
	}
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(familyID) == "" {
		return errors.New("user id and family id are required")
	}
	return s.Repo.AssignFamily(ctx, userID, familyID)
}

// ListByFamily returns the family's members.
func (s *Service) ListByFamily(ctx context.Context, familyID string) ([]User, error) {
	if s == nil || s.Repo == nil {
		return nil, errors.New("users service not configured")
	}
	if strings.TrimSpace(familyID) == "" {
		return nil, errors.New("family id is required")
	}
	return s.Repo.ListByFamily(ctx, familyID)
}

// MemberNames returns the display names of a family's members. Retrieval
// uses them to ground "from Mom" style sender references. Guest tenants
// have no member rows and get an empty list.
func (s *Service) MemberNames(ctx context.Context, familyID string) ([]string, error) {
	members, err := s.ListByFamily(ctx, familyID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(members))
	for _, m := range members {
		if name := strings.TrimSpace(m.DisplayName()); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}
