package auth

import (
	"context"
	"testing"
	"time"

	"archive-backend/internal/families"
	"archive-backend/internal/users"
)

func TestEnsureMembershipCreatesFamilyOnce(t *testing.T) {
	svc := &GoogleService{
		users:    users.NewService(users.NewMemoryRepo()),
		families: families.NewService(families.NewMemoryRepo()),
	}
	info := googleUserInfo{Email: "june@example.com", Name: "June Petersen", GivenName: "June"}

	familyID, err := svc.ensureMembership(context.Background(), "google:sub-1", info)
	if err != nil {
		t.Fatalf("first sign-in: %v", err)
	}
	if familyID == "" {
		t.Fatal("first sign-in returned empty family")
	}

	family, err := svc.families.Get(context.Background(), familyID)
	if err != nil {
		t.Fatalf("get family: %v", err)
	}
	if family.Name != "June's Family" {
		t.Errorf("family name = %q, want June's Family", family.Name)
	}

	again, err := svc.ensureMembership(context.Background(), "google:sub-1", info)
	if err != nil {
		t.Fatalf("second sign-in: %v", err)
	}
	if again != familyID {
		t.Errorf("second sign-in family = %q, want %q reused", again, familyID)
	}

	user, err := svc.users.GetByID(context.Background(), "google:sub-1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user.FamilyID != familyID {
		t.Errorf("user family = %q, want %q", user.FamilyID, familyID)
	}
}

func TestEnsureMembershipKeepsExistingFamilyAcrossProfileUpdates(t *testing.T) {
	svc := &GoogleService{
		users:    users.NewService(users.NewMemoryRepo()),
		families: families.NewService(families.NewMemoryRepo()),
	}

	first, err := svc.ensureMembership(context.Background(), "google:sub-2", googleUserInfo{Email: "leo@example.com", Name: "Leo"})
	if err != nil {
		t.Fatalf("first sign-in: %v", err)
	}

	// A changed Google profile must not re-home the user.
	second, err := svc.ensureMembership(context.Background(), "google:sub-2", googleUserInfo{Email: "leo@example.com", Name: "Leonard", GivenName: "Leonard"})
	if err != nil {
		t.Fatalf("second sign-in: %v", err)
	}
	if second != first {
		t.Errorf("family changed across sign-ins: %q then %q", first, second)
	}
}

func TestStateStoreConsumeOnce(t *testing.T) {
	store := newStateStore()
	store.put("state-1", time.Now().Add(time.Minute))

	if !store.consume("state-1") {
		t.Fatal("first consume failed")
	}
	if store.consume("state-1") {
		t.Fatal("second consume succeeded")
	}
	if store.consume("never-stored") {
		t.Fatal("unknown state consumed")
	}

	store.put("state-2", time.Now().Add(-time.Second))
	if store.consume("state-2") {
		t.Fatal("expired state consumed")
	}
}
