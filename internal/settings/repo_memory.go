package settings

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory Repo used in dev mode and tests.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Settings
}

// NewMemoryRepo constructs an empty in-memory repo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Settings)}
}

// Get returns the settings for a family.
func (m *MemoryRepo) Get(ctx context.Context, familyID string) (Settings, error) {
	if err := ctx.Err(); err != nil {
		return Settings{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.data[familyID]
	if !ok {
		return Settings{}, ErrNotFound
	}
	return copySettings(s), nil
}

// Upsert stores the settings for a family.
func (m *MemoryRepo) Upsert(ctx context.Context, s Settings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[s.FamilyID] = copySettings(s)
	return nil
}

// Append merges vocabulary additions into the family's settings while
// holding the repo lock, mirroring the row-locked merge of the PG repo.
func (m *MemoryRepo) Append(ctx context.Context, familyID string, vals Values) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if vals.IsZero() {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.data[familyID]
	if !ok {
		return ErrNotFound
	}
	merged, changed := mergeValues(copySettings(s), vals)
	if changed {
		m.data[familyID] = merged
	}
	return nil
}

// Delete removes the settings for a family.
func (m *MemoryRepo) Delete(ctx context.Context, familyID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, familyID)
	return nil
}

func copySettings(s Settings) Settings {
	out := s
	out.EventTypes = append([]string(nil), s.EventTypes...)
	out.SenderNames = append([]string(nil), s.SenderNames...)
	out.RecipientNames = append([]string(nil), s.RecipientNames...)
	return out
}

var _ Repo = (*MemoryRepo)(nil)
