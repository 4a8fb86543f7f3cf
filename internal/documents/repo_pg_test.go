package documents

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pgvector/pgvector-go"
)

var documentRowColumns = []string{
	"id", "family_id", "uploader_id", "file_name", "mime_type", "size_bytes",
	"storage_key", "thumbnail_key", "sender_name", "recipient_name", "event_type",
	"doc_date", "context_text", "ai_status", "ai_error", "created_at",
}

func TestPGRepoCreateDefaultsToPendingWithoutEmbedding(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	doc := Document{
		ID:         "doc-1",
		FamilyID:   "fam-1",
		UploaderID: "user-1",
		FileName:   "card.pdf",
		MimeType:   "application/pdf",
		SizeBytes:  1234,
		StorageKey: "fam-1/doc-1/card.pdf",
		SenderName: "Grandma June",
		EventType:  "Birthday",
		DocDate:    time.Date(2021, time.May, 12, 0, 0, 0, 0, time.UTC),
		CreatedAt:  time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC),
	}

	mock.ExpectExec("INSERT INTO documents").
		WithArgs(
			doc.ID,
			doc.FamilyID,
			doc.UploaderID,
			doc.FileName,
			doc.MimeType,
			doc.SizeBytes,
			doc.StorageKey,
			nil, // thumbnail_key
			doc.SenderName,
			nil, // recipient_name
			doc.EventType,
			doc.DocDate,
			nil, // context_text
			nil, // embedding
			AIStatusPending,
			doc.CreatedAt,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectQuery("SELECT id, family_id, uploader_id").
		WithArgs("fam-1", "doc-missing").
		WillReturnRows(sqlmock.NewRows(documentRowColumns))

	if _, err := repo.GetByID(context.Background(), "fam-1", "doc-missing"); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDScansNullables(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	now := time.Now().UTC()
	rows := sqlmock.NewRows(documentRowColumns).
		AddRow("doc-1", "fam-1", "user-1", "card.pdf", "application/pdf", int64(1234),
			"fam-1/doc-1/card.pdf", nil, "Grandma June", nil, "Birthday",
			time.Date(2021, time.May, 12, 0, 0, 0, 0, time.UTC), nil, AIStatusPending, nil, now)
	mock.ExpectQuery("SELECT id, family_id, uploader_id").
		WithArgs("fam-1", "doc-1").
		WillReturnRows(rows)

	doc, err := repo.GetByID(context.Background(), "fam-1", "doc-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if doc.ID != "doc-1" || doc.SenderName != "Grandma June" {
		t.Fatalf("doc = %+v", doc)
	}
	if doc.ThumbnailKey != "" || doc.RecipientName != "" || doc.ContextText != "" || doc.AIError != "" {
		t.Fatalf("null columns should scan empty: %+v", doc)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoFindByFiltersAppendsClauseArgs(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	yearStart := time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := yearStart.AddDate(1, 0, 0)

	rows := sqlmock.NewRows(documentRowColumns).
		AddRow("doc-1", "fam-1", "user-1", "card.pdf", "application/pdf", int64(1),
			"k", nil, "Grandma June", nil, "Birthday",
			time.Date(2021, time.May, 12, 0, 0, 0, 0, time.UTC), nil, AIStatusReady, nil, time.Now().UTC())
	mock.ExpectQuery("FROM documents.*ORDER BY doc_date DESC, created_at DESC").
		WithArgs("fam-1", "Grandma June", "Birthday", yearStart, yearEnd).
		WillReturnRows(rows)

	docs, err := repo.FindByFilters(context.Background(), "fam-1", Filters{
		Sender:    "Grandma June",
		EventType: "Birthday",
		Year:      2021,
	})
	if err != nil {
		t.Fatalf("FindByFilters: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "doc-1" {
		t.Fatalf("docs = %+v", docs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoFindByFiltersNoFiltersCapsAtLimit(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectQuery("FROM documents.*LIMIT 50").
		WithArgs("fam-1").
		WillReturnRows(sqlmock.NewRows(documentRowColumns))

	docs, err := repo.FindByFilters(context.Background(), "fam-1", Filters{})
	if err != nil {
		t.Fatalf("FindByFilters: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("docs = %+v", docs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoFindBySimilarityPassesVectorAndTopK(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	embedding := []float32{0.1, 0.2, 0.3}

	scoredColumns := append(append([]string(nil), documentRowColumns...), "similarity")
	rows := sqlmock.NewRows(scoredColumns).
		AddRow("doc-close", "fam-1", "user-1", "a.pdf", "application/pdf", int64(1),
			"k1", nil, "Grandma June", nil, "Birthday",
			time.Date(2021, time.May, 12, 0, 0, 0, 0, time.UTC), "blob a", AIStatusReady, nil, time.Now().UTC(), 0.93).
		AddRow("doc-far", "fam-1", "user-1", "b.pdf", "application/pdf", int64(1),
			"k2", nil, "Grandma June", nil, "Birthday",
			time.Date(2020, time.May, 12, 0, 0, 0, 0, time.UTC), "blob b", AIStatusReady, nil, time.Now().UTC(), 0.41)
	mock.ExpectQuery("AS similarity FROM documents.*embedding IS NOT NULL.*LIMIT 5").
		WithArgs("fam-1", pgvector.NewVector(embedding)).
		WillReturnRows(rows)

	scored, err := repo.FindBySimilarity(context.Background(), "fam-1", embedding, Filters{}, 0)
	if err != nil {
		t.Fatalf("FindBySimilarity: %v", err)
	}
	if len(scored) != 2 {
		t.Fatalf("scored = %+v", scored)
	}
	if scored[0].Document.ID != "doc-close" || scored[0].Similarity != 0.93 {
		t.Fatalf("best match = %+v", scored[0])
	}
	if scored[1].Document.ID != "doc-far" || scored[1].Similarity != 0.41 {
		t.Fatalf("second match = %+v", scored[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpdateAIContextWritesBlobAndEmbeddingTogether(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectExec("UPDATE documents SET context_text").
		WithArgs("blob text", pgvector.NewVector([]float32{0.1, 0.2}), AIStatusReady, "fam-1", "doc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.UpdateAIContext(context.Background(), "fam-1", "doc-1", "blob text", []float32{0.1, 0.2})
	if err != nil {
		t.Fatalf("UpdateAIContext: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpdateAIContextNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectExec("UPDATE documents SET context_text").
		WithArgs("blob text", nil, AIStatusReady, "fam-1", "doc-missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.UpdateAIContext(context.Background(), "fam-1", "doc-missing", "blob text", nil)
	if err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoSoftDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectExec("UPDATE documents SET deleted_at").
		WithArgs(sqlmock.AnyArg(), "fam-1", "doc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SoftDelete(context.Background(), "fam-1", "doc-1"); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoClaimGuestReportsMovedCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectExec("UPDATE documents SET family_id").
		WithArgs("fam-1", "user-1", "guest:abc").
		WillReturnResult(sqlmock.NewResult(0, 3))

	moved, err := repo.ClaimGuest(context.Background(), "guest:abc", "fam-1", "user-1")
	if err != nil {
		t.Fatalf("ClaimGuest: %v", err)
	}
	if moved != 3 {
		t.Fatalf("moved = %d, want 3", moved)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
