package documents

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func seedDoc(t *testing.T, repo Repo, doc Document) Document {
	t.Helper()
	if doc.AIStatus == "" {
		doc.AIStatus = AIStatusReady
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	if err := repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("seed document %s: %v", doc.ID, err)
	}
	return doc
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestMemoryRepoFindByFiltersNewestFirst(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	base := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)
	seedDoc(t, repo, Document{ID: "old", FamilyID: "fam-1", SenderName: "Grandma June", EventType: "Birthday", DocDate: date(2020, time.May, 12), CreatedAt: base})
	seedDoc(t, repo, Document{ID: "new", FamilyID: "fam-1", SenderName: "Grandma June", EventType: "Birthday", DocDate: date(2023, time.May, 12), CreatedAt: base})
	seedDoc(t, repo, Document{ID: "mid-early", FamilyID: "fam-1", SenderName: "Grandma June", EventType: "Birthday", DocDate: date(2021, time.May, 12), CreatedAt: base})
	seedDoc(t, repo, Document{ID: "mid-late", FamilyID: "fam-1", SenderName: "Grandma June", EventType: "Birthday", DocDate: date(2021, time.May, 12), CreatedAt: base.Add(time.Hour)})

	docs, err := repo.FindByFilters(ctx, "fam-1", Filters{})
	if err != nil {
		t.Fatalf("FindByFilters: %v", err)
	}

	gotIDs := make([]string, 0, len(docs))
	for _, d := range docs {
		gotIDs = append(gotIDs, d.ID)
	}
	want := []string{"new", "mid-late", "mid-early", "old"}
	if len(gotIDs) != len(want) {
		t.Fatalf("got %v, want %v", gotIDs, want)
	}
	for i := range want {
		if gotIDs[i] != want[i] {
			t.Fatalf("order mismatch at %d: got %v, want %v", i, gotIDs, want)
		}
	}
}

func TestMemoryRepoFiltersAreCaseInsensitive(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	seedDoc(t, repo, Document{ID: "d1", FamilyID: "fam-1", SenderName: "Grandma June", EventType: "Birthday", DocDate: date(2021, time.May, 12)})
	seedDoc(t, repo, Document{ID: "d2", FamilyID: "fam-1", SenderName: "Uncle Theo", EventType: "Christmas", DocDate: date(2021, time.December, 25)})

	docs, err := repo.FindByFilters(ctx, "fam-1", Filters{Sender: "grandma june", EventType: "BIRTHDAY"})
	if err != nil {
		t.Fatalf("FindByFilters: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "d1" {
		t.Fatalf("docs = %+v, want only d1", docs)
	}
}

func TestMemoryRepoYearFilterBoundaries(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	seedDoc(t, repo, Document{ID: "dec31", FamilyID: "fam-1", SenderName: "A", EventType: "Birthday", DocDate: time.Date(2021, time.December, 31, 23, 59, 0, 0, time.UTC)})
	seedDoc(t, repo, Document{ID: "jan1", FamilyID: "fam-1", SenderName: "A", EventType: "Birthday", DocDate: time.Date(2022, time.January, 1, 0, 0, 0, 0, time.UTC)})

	docs, err := repo.FindByFilters(ctx, "fam-1", Filters{Year: 2021})
	if err != nil {
		t.Fatalf("FindByFilters: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "dec31" {
		t.Fatalf("year 2021 returned %+v, want only dec31", docs)
	}
}

func TestMemoryRepoFindByFiltersCapsAtFetchLimit(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	for i := 0; i < FetchLimit+5; i++ {
		seedDoc(t, repo, Document{
			ID:         fmt.Sprintf("doc-%d", i),
			FamilyID:   "fam-1",
			SenderName: "A",
			EventType:  "Birthday",
			DocDate:    date(2020, time.January, 1).AddDate(0, 0, i),
		})
	}

	docs, err := repo.FindByFilters(ctx, "fam-1", Filters{})
	if err != nil {
		t.Fatalf("FindByFilters: %v", err)
	}
	if len(docs) != FetchLimit {
		t.Fatalf("got %d docs, want %d", len(docs), FetchLimit)
	}
}

func TestMemoryRepoTenantIsolation(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	seedDoc(t, repo, Document{ID: "a", FamilyID: "fam-a", SenderName: "A", EventType: "Birthday", DocDate: date(2021, time.May, 1)})
	seedDoc(t, repo, Document{ID: "b", FamilyID: "fam-b", SenderName: "A", EventType: "Birthday", DocDate: date(2021, time.May, 1), Embedding: []float32{1, 0}})

	docs, err := repo.FindByFilters(ctx, "fam-a", Filters{})
	if err != nil {
		t.Fatalf("FindByFilters: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "a" {
		t.Fatalf("fam-a sees %+v", docs)
	}

	scored, err := repo.FindBySimilarity(ctx, "fam-a", []float32{1, 0}, Filters{}, 5)
	if err != nil {
		t.Fatalf("FindBySimilarity: %v", err)
	}
	if len(scored) != 0 {
		t.Fatalf("fam-a similarity sees %+v", scored)
	}

	if _, err := repo.GetByID(ctx, "fam-a", "b"); err != ErrNotFound {
		t.Fatalf("cross-tenant GetByID err = %v, want ErrNotFound", err)
	}
}

func TestMemoryRepoFindBySimilarityRanksAndFilters(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	seedDoc(t, repo, Document{ID: "close", FamilyID: "fam-1", SenderName: "Grandma June", EventType: "Birthday", DocDate: date(2021, time.May, 1), Embedding: []float32{1, 0, 0}})
	seedDoc(t, repo, Document{ID: "far", FamilyID: "fam-1", SenderName: "Grandma June", EventType: "Birthday", DocDate: date(2021, time.June, 1), Embedding: []float32{0, 1, 0}})
	seedDoc(t, repo, Document{ID: "other-sender", FamilyID: "fam-1", SenderName: "Uncle Theo", EventType: "Birthday", DocDate: date(2021, time.July, 1), Embedding: []float32{1, 0, 0}})
	seedDoc(t, repo, Document{ID: "no-embedding", FamilyID: "fam-1", SenderName: "Grandma June", EventType: "Birthday", DocDate: date(2021, time.August, 1)})

	scored, err := repo.FindBySimilarity(ctx, "fam-1", []float32{1, 0, 0}, Filters{Sender: "Grandma June"}, 5)
	if err != nil {
		t.Fatalf("FindBySimilarity: %v", err)
	}
	if len(scored) != 2 {
		t.Fatalf("got %d results, want 2 (filtered, embedded only): %+v", len(scored), scored)
	}
	if scored[0].Document.ID != "close" || scored[1].Document.ID != "far" {
		t.Fatalf("ranking wrong: %s, %s", scored[0].Document.ID, scored[1].Document.ID)
	}
	if scored[0].Similarity <= scored[1].Similarity {
		t.Fatalf("similarities not descending: %v", scored)
	}
}

func TestMemoryRepoFindBySimilarityTopKBounds(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		seedDoc(t, repo, Document{
			ID:         fmt.Sprintf("doc-%d", i),
			FamilyID:   "fam-1",
			SenderName: "A",
			EventType:  "Birthday",
			DocDate:    date(2021, time.January, 1),
			Embedding:  []float32{1, float32(i)},
		})
	}

	scored, err := repo.FindBySimilarity(ctx, "fam-1", []float32{1, 0}, Filters{}, 0)
	if err != nil {
		t.Fatalf("FindBySimilarity topK=0: %v", err)
	}
	if len(scored) != DefaultTopK {
		t.Fatalf("topK=0 returned %d, want default %d", len(scored), DefaultTopK)
	}

	scored, err = repo.FindBySimilarity(ctx, "fam-1", []float32{1, 0}, Filters{}, 99)
	if err != nil {
		t.Fatalf("FindBySimilarity topK=99: %v", err)
	}
	if len(scored) != MaxTopK {
		t.Fatalf("topK=99 returned %d, want cap %d", len(scored), MaxTopK)
	}
}

func TestMemoryRepoUpdateAIContextAndFailure(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	seedDoc(t, repo, Document{ID: "d1", FamilyID: "fam-1", SenderName: "A", EventType: "Birthday", DocDate: date(2021, time.May, 1), AIStatus: AIStatusPending})

	if err := repo.UpdateAIContext(ctx, "fam-1", "d1", "blob text", []float32{0.1, 0.2}); err != nil {
		t.Fatalf("UpdateAIContext: %v", err)
	}
	doc, err := repo.GetByID(ctx, "fam-1", "d1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if doc.AIStatus != AIStatusReady || doc.ContextText != "blob text" || len(doc.Embedding) != 2 {
		t.Fatalf("after update: %+v", doc)
	}

	if err := repo.MarkAIFailed(ctx, "fam-1", "d1", "boom"); err != nil {
		t.Fatalf("MarkAIFailed: %v", err)
	}
	doc, _ = repo.GetByID(ctx, "fam-1", "d1")
	if doc.AIStatus != AIStatusFailed || doc.AIError != "boom" {
		t.Fatalf("after failure: %+v", doc)
	}
	if doc.ContextText != "blob text" {
		t.Fatalf("failure must not clear the blob: %+v", doc)
	}

	if err := repo.UpdateAIContext(ctx, "fam-1", "missing", "x", nil); err != ErrNotFound {
		t.Fatalf("UpdateAIContext missing err = %v, want ErrNotFound", err)
	}
}

func TestMemoryRepoSoftDelete(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	seedDoc(t, repo, Document{ID: "d1", FamilyID: "fam-1", SenderName: "A", EventType: "Birthday", DocDate: date(2021, time.May, 1)})

	if err := repo.SoftDelete(ctx, "fam-1", "d1"); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if _, err := repo.GetByID(ctx, "fam-1", "d1"); err != ErrNotFound {
		t.Fatalf("deleted doc still readable: err = %v", err)
	}
	if err := repo.SoftDelete(ctx, "fam-1", "d1"); err != ErrNotFound {
		t.Fatalf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestMemoryRepoClaimGuestMovesDocuments(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	seedDoc(t, repo, Document{ID: "g1", FamilyID: "guest:abc", UploaderID: "guest:abc", SenderName: "A", EventType: "Birthday", DocDate: date(2021, time.May, 1)})
	seedDoc(t, repo, Document{ID: "g2", FamilyID: "guest:abc", UploaderID: "guest:abc", SenderName: "B", EventType: "Christmas", DocDate: date(2021, time.December, 25)})

	moved, err := repo.ClaimGuest(ctx, "guest:abc", "fam-1", "user-1")
	if err != nil {
		t.Fatalf("ClaimGuest: %v", err)
	}
	if moved != 2 {
		t.Fatalf("moved = %d, want 2", moved)
	}

	docs, err := repo.FindByFilters(ctx, "fam-1", Filters{})
	if err != nil {
		t.Fatalf("FindByFilters: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("family has %d docs, want 2", len(docs))
	}
	for _, d := range docs {
		if d.FamilyID != "fam-1" || d.UploaderID != "user-1" {
			t.Fatalf("doc not reassigned: %+v", d)
		}
	}

	if remaining, _ := repo.FindByFilters(ctx, "guest:abc", Filters{}); len(remaining) != 0 {
		t.Fatalf("guest still has %d docs", len(remaining))
	}
}
