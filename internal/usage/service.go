package usage

import "context"

type store interface {
	Get(ctx context.Context, familyID string) (Usage, error)
	EnsurePeriod(ctx context.Context, familyID string) (Usage, error)
	Consume(ctx context.Context, familyID string, n int) (Usage, error)
	Reset(ctx context.Context, familyID string) (Usage, error)
}

// Service manages usage data via an underlying store.
type Service struct {
	store store
}

// NewService constructs a Service with in-memory store.
func NewService() *Service {
	return &Service{store: newMemoryStore()}
}

// NewPostgresService constructs a Service backed by Postgres.
func NewPostgresService(pgStore store) *Service {
	return &Service{store: pgStore}
}

// Get returns the current usage for a family, initializing defaults if absent.
func (s *Service) Get(ctx context.Context, familyID string) (Usage, error) {
	return s.store.Get(ctx, familyID)
}

// EnsurePeriod resets usage if the period has expired.
func (s *Service) EnsurePeriod(ctx context.Context, familyID string) (Usage, error) {
	return s.store.EnsurePeriod(ctx, familyID)
}

// ConsumeAsk spends one AI question from the family's allowance.
func (s *Service) ConsumeAsk(ctx context.Context, familyID string) error {
	_, err := s.store.Consume(ctx, familyID, 1)
	return err
}

// Consume increments usage by n if within limit.
func (s *Service) Consume(ctx context.Context, familyID string, n int) (Usage, error) {
	return s.store.Consume(ctx, familyID, n)
}

// Reset sets usage to zero and resets the window.
func (s *Service) Reset(ctx context.Context, familyID string) (Usage, error) {
	return s.store.Reset(ctx, familyID)
}
