package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Service implements get-or-create and additive vocabulary updates.
type Service struct {
	Repo Repo
}

// GetOrCreate returns the family's settings, seeding a new row with the
// default event types on first access.
func (s *Service) GetOrCreate(ctx context.Context, familyID string) (Settings, error) {
	if strings.TrimSpace(familyID) == "" {
		return Settings{}, fmt.Errorf("familyID is required")
	}

	existing, err := s.Repo.Get(ctx, familyID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Settings{}, err
	}

	fresh := Settings{
		FamilyID:       familyID,
		EventTypes:     append([]string(nil), DefaultEventTypes...),
		SenderNames:    []string{},
		RecipientNames: []string{},
	}
	if err := s.Repo.Upsert(ctx, fresh); err != nil {
		return Settings{}, err
	}
	return fresh, nil
}

// AppendValues merges new vocabulary values into the family's settings.
// Additions already present are skipped with a case-insensitive compare, so
// the stored casing of the first occurrence wins. The merge itself happens
// inside the repo, under its row lock, so concurrent ingest workers cannot
// lose each other's values.
func (s *Service) AppendValues(ctx context.Context, familyID string, vals Values) error {
	if vals.IsZero() {
		return nil
	}

	if _, err := s.GetOrCreate(ctx, familyID); err != nil {
		return err
	}
	return s.Repo.Append(ctx, familyID, vals)
}

// ClaimGuest folds a guest tenant's vocabulary into the target family and
// removes the guest row.
func (s *Service) ClaimGuest(ctx context.Context, guestFamilyID, familyID string) error {
	guest, err := s.Repo.Get(ctx, guestFamilyID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.AppendValues(ctx, familyID, Values{
		EventTypes:     guest.EventTypes,
		SenderNames:    guest.SenderNames,
		RecipientNames: guest.RecipientNames,
	}); err != nil {
		return err
	}
	return s.Repo.Delete(ctx, guestFamilyID)
}

// mergeValues folds the additions into the settings, reporting whether
// anything new was appended.
func mergeValues(s Settings, vals Values) (Settings, bool) {
	changed := false
	if merged, added := appendAbsent(s.EventTypes, vals.EventTypes); added {
		s.EventTypes = merged
		changed = true
	}
	if merged, added := appendAbsent(s.SenderNames, vals.SenderNames); added {
		s.SenderNames = merged
		changed = true
	}
	if merged, added := appendAbsent(s.RecipientNames, vals.RecipientNames); added {
		s.RecipientNames = merged
		changed = true
	}
	return s, changed
}

func appendAbsent(existing []string, additions []string) ([]string, bool) {
	added := false
	for _, raw := range additions {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}
		found := false
		for _, have := range existing {
			if strings.EqualFold(have, value) {
				found = true
				break
			}
		}
		if !found {
			existing = append(existing, value)
			added = true
		}
	}
	return existing, added
}
