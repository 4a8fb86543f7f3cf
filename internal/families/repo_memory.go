package families

import (
	"context"
	"sync"
)

type MemoryRepo struct {
	mu       sync.RWMutex
	families map[string]Family
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{families: make(map[string]Family)}
}

func (r *MemoryRepo) Create(ctx context.Context, fam Family) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.families[fam.ID] = fam
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, familyID string) (Family, error) {
	if err := ctx.Err(); err != nil {
		return Family{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	fam, ok := r.families[familyID]
	if !ok {
		return Family{}, ErrNotFound
	}
	return fam, nil
}

func (r *MemoryRepo) Rename(ctx context.Context, familyID, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fam, ok := r.families[familyID]
	if !ok {
		return ErrNotFound
	}
	fam.Name = name
	r.families[familyID] = fam
	return nil
}
