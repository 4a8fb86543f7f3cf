package settings

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

func TestGetOrCreateSeedsDefaults(t *testing.T) {
	svc := &Service{Repo: NewMemoryRepo()}

	s, err := svc.GetOrCreate(context.Background(), "fam-1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if len(s.EventTypes) != len(DefaultEventTypes) {
		t.Fatalf("event types = %v, want defaults", s.EventTypes)
	}
	if len(s.SenderNames) != 0 || len(s.RecipientNames) != 0 {
		t.Fatalf("new settings should have empty name lists: %+v", s)
	}

	again, err := svc.GetOrCreate(context.Background(), "fam-1")
	if err != nil {
		t.Fatalf("GetOrCreate second call: %v", err)
	}
	if len(again.EventTypes) != len(DefaultEventTypes) {
		t.Fatalf("second call should return the stored row: %+v", again)
	}
}

func TestGetOrCreateRequiresFamilyID(t *testing.T) {
	svc := &Service{Repo: NewMemoryRepo()}
	if _, err := svc.GetOrCreate(context.Background(), "  "); err == nil {
		t.Fatal("expected error for blank familyID")
	}
}

func TestAppendValuesDedupesCaseInsensitively(t *testing.T) {
	svc := &Service{Repo: NewMemoryRepo()}
	ctx := context.Background()

	if err := svc.AppendValues(ctx, "fam-1", Values{
		SenderNames: []string{"Grandma June", "Uncle Theo"},
		EventTypes:  []string{"birthday", "Housewarming"},
	}); err != nil {
		t.Fatalf("AppendValues: %v", err)
	}
	if err := svc.AppendValues(ctx, "fam-1", Values{
		SenderNames: []string{"GRANDMA JUNE", "  "},
		EventTypes:  []string{"HOUSEWARMING"},
	}); err != nil {
		t.Fatalf("AppendValues repeat: %v", err)
	}

	s, err := svc.GetOrCreate(ctx, "fam-1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if len(s.SenderNames) != 2 {
		t.Fatalf("sender names = %v, want 2 entries", s.SenderNames)
	}
	if s.SenderNames[0] != "Grandma June" {
		t.Fatalf("stored casing should be first occurrence, got %q", s.SenderNames[0])
	}

	wantEvents := len(DefaultEventTypes) + 1
	if len(s.EventTypes) != wantEvents {
		t.Fatalf("event types = %v, want %d entries", s.EventTypes, wantEvents)
	}
}

func TestAppendValuesConcurrentAppendsAllSurvive(t *testing.T) {
	svc := &Service{Repo: NewMemoryRepo()}
	ctx := context.Background()

	const workers = 16
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.AppendValues(ctx, "fam-1", Values{
				SenderNames: []string{fmt.Sprintf("Sender %02d", i)},
			})
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("AppendValues worker %d: %v", i, err)
		}
	}

	s, err := svc.GetOrCreate(ctx, "fam-1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if len(s.SenderNames) != workers {
		t.Fatalf("sender names = %d, want %d (a concurrent append was lost)", len(s.SenderNames), workers)
	}
}

func TestAppendValuesNoOpSkipsWrite(t *testing.T) {
	repo := NewMemoryRepo()
	svc := &Service{Repo: repo}
	ctx := context.Background()

	if err := svc.AppendValues(ctx, "fam-1", Values{}); err != nil {
		t.Fatalf("AppendValues empty: %v", err)
	}
	if _, err := repo.Get(ctx, "fam-1"); err != ErrNotFound {
		t.Fatalf("empty batch should not create a row, got err=%v", err)
	}
}

func TestClaimGuestMergesAndDeletes(t *testing.T) {
	repo := NewMemoryRepo()
	svc := &Service{Repo: repo}
	ctx := context.Background()

	if err := svc.AppendValues(ctx, "guest:abc", Values{
		SenderNames: []string{"Grandma June"},
		EventTypes:  []string{"Housewarming"},
	}); err != nil {
		t.Fatalf("seed guest: %v", err)
	}
	if err := svc.AppendValues(ctx, "fam-1", Values{
		SenderNames: []string{"Uncle Theo"},
	}); err != nil {
		t.Fatalf("seed family: %v", err)
	}

	if err := svc.ClaimGuest(ctx, "guest:abc", "fam-1"); err != nil {
		t.Fatalf("ClaimGuest: %v", err)
	}

	s, err := svc.GetOrCreate(ctx, "fam-1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if len(s.SenderNames) != 2 {
		t.Fatalf("sender names after claim = %v", s.SenderNames)
	}
	found := false
	for _, et := range s.EventTypes {
		if et == "Housewarming" {
			found = true
		}
	}
	if !found {
		t.Fatalf("guest event type not merged: %v", s.EventTypes)
	}

	if _, err := repo.Get(ctx, "guest:abc"); err != ErrNotFound {
		t.Fatalf("guest row should be deleted, got err=%v", err)
	}
}

func TestClaimGuestMissingGuestIsNoOp(t *testing.T) {
	svc := &Service{Repo: NewMemoryRepo()}
	if err := svc.ClaimGuest(context.Background(), "guest:missing", "fam-1"); err != nil {
		t.Fatalf("ClaimGuest: %v", err)
	}
}
