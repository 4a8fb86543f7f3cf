package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/pgvector/pgvector-go"
)

// PGRepo implements Repo using Postgres with a pgvector embedding column.
type PGRepo struct {
	DB *sql.DB
}

const documentColumns = `id, family_id, uploader_id, file_name, mime_type, size_bytes, storage_key, thumbnail_key, sender_name, recipient_name, event_type, doc_date, context_text, ai_status, ai_error, created_at`

// Create inserts a new document.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (
    id,
    family_id,
    uploader_id,
    file_name,
    mime_type,
    size_bytes,
    storage_key,
    thumbnail_key,
    sender_name,
    recipient_name,
    event_type,
    doc_date,
    context_text,
    embedding,
    ai_status,
    ai_error,
    created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NULL, $16)`

	status := doc.AIStatus
	if status == "" {
		status = AIStatusPending
	}

	_, err := r.DB.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.FamilyID,
		doc.UploaderID,
		doc.FileName,
		doc.MimeType,
		doc.SizeBytes,
		doc.StorageKey,
		nullString(doc.ThumbnailKey),
		doc.SenderName,
		nullString(doc.RecipientName),
		doc.EventType,
		doc.DocDate,
		nullString(doc.ContextText),
		vectorOrNull(doc.Embedding),
		status,
		doc.CreatedAt,
	)
	return err
}

// GetByID fetches a document by ID within a family.
func (r *PGRepo) GetByID(ctx context.Context, familyId, documentID string) (Document, error) {
	query := `
SELECT ` + documentColumns + `
FROM documents
WHERE family_id = $1 AND id = $2 AND deleted_at IS NULL
LIMIT 1`
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, familyId, documentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

// FindByFilters returns matching documents newest-first by document date.
func (r *PGRepo) FindByFilters(ctx context.Context, familyId string, f Filters) ([]Document, error) {
	query := `
SELECT ` + documentColumns + `
FROM documents
WHERE family_id = $1 AND deleted_at IS NULL`
	args := []any{familyId}
	query, args = appendFilterClauses(query, args, f)
	query += `
ORDER BY doc_date DESC, created_at DESC
LIMIT ` + strconv.Itoa(FetchLimit)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// FindBySimilarity applies the filters before ranking by cosine distance
// against the stored embeddings, best match first. Rows without an
// embedding never qualify.
func (r *PGRepo) FindBySimilarity(ctx context.Context, familyId string, queryEmbedding []float32, f Filters, topK int) ([]ScoredDocument, error) {
	topK = normalizeTopK(topK)

	query := `
SELECT ` + documentColumns + `, 1 - (embedding <=> $2) AS similarity
FROM documents
WHERE family_id = $1 AND deleted_at IS NULL AND embedding IS NOT NULL`
	args := []any{familyId, pgvector.NewVector(queryEmbedding)}
	query, args = appendFilterClauses(query, args, f)
	query += `
ORDER BY embedding <=> $2
LIMIT ` + strconv.Itoa(topK)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ScoredDocument
	for rows.Next() {
		scored, err := scanScoredDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, scored)
	}
	return out, rows.Err()
}

// UpdateAIContext writes blob and embedding in one statement and marks the
// document ready, keeping the derived-from invariant intact.
func (r *PGRepo) UpdateAIContext(ctx context.Context, familyId, documentID, contextText string, embedding []float32) error {
	const query = `
UPDATE documents
SET context_text = $1, embedding = $2, ai_status = $3, ai_error = NULL
WHERE family_id = $4 AND id = $5 AND deleted_at IS NULL`
	res, err := r.DB.ExecContext(ctx, query, contextText, vectorOrNull(embedding), AIStatusReady, familyId, documentID)
	if err != nil {
		return err
	}
	updated, _ := res.RowsAffected()
	if updated == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAIFailed records an ingest failure without touching blob or embedding.
func (r *PGRepo) MarkAIFailed(ctx context.Context, familyId, documentID, reason string) error {
	const query = `
UPDATE documents
SET ai_status = $1, ai_error = $2
WHERE family_id = $3 AND id = $4 AND deleted_at IS NULL`
	res, err := r.DB.ExecContext(ctx, query, AIStatusFailed, reason, familyId, documentID)
	if err != nil {
		return err
	}
	updated, _ := res.RowsAffected()
	if updated == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete marks a document deleted.
func (r *PGRepo) SoftDelete(ctx context.Context, familyId, documentID string) error {
	const query = `
UPDATE documents
SET deleted_at = $1
WHERE family_id = $2 AND id = $3 AND deleted_at IS NULL`
	res, err := r.DB.ExecContext(ctx, query, time.Now().UTC(), familyId, documentID)
	if err != nil {
		return err
	}
	updated, _ := res.RowsAffected()
	if updated == 0 {
		return ErrNotFound
	}
	return nil
}

// ClaimGuest moves a guest tenant's documents into the given family,
// reassigning the uploader to the authenticated user.
func (r *PGRepo) ClaimGuest(ctx context.Context, guestFamilyID, familyId, userID string) (int, error) {
	const query = `
UPDATE documents
SET family_id = $1, uploader_id = $2
WHERE family_id = $3 AND deleted_at IS NULL`
	res, err := r.DB.ExecContext(ctx, query, familyId, userID, guestFamilyID)
	if err != nil {
		return 0, err
	}
	updated, _ := res.RowsAffected()
	return int(updated), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var thumbnailKey sql.NullString
	var recipientName sql.NullString
	var contextText sql.NullString
	var aiError sql.NullString
	err := row.Scan(
		&doc.ID,
		&doc.FamilyID,
		&doc.UploaderID,
		&doc.FileName,
		&doc.MimeType,
		&doc.SizeBytes,
		&doc.StorageKey,
		&thumbnailKey,
		&doc.SenderName,
		&recipientName,
		&doc.EventType,
		&doc.DocDate,
		&contextText,
		&doc.AIStatus,
		&aiError,
		&doc.CreatedAt,
	)
	if err != nil {
		return Document{}, err
	}
	if thumbnailKey.Valid {
		doc.ThumbnailKey = thumbnailKey.String
	}
	if recipientName.Valid {
		doc.RecipientName = recipientName.String
	}
	if contextText.Valid {
		doc.ContextText = contextText.String
	}
	if aiError.Valid {
		doc.AIError = aiError.String
	}
	return doc, nil
}

func scanScoredDocument(row rowScanner) (ScoredDocument, error) {
	var doc Document
	var thumbnailKey sql.NullString
	var recipientName sql.NullString
	var contextText sql.NullString
	var aiError sql.NullString
	var similarity float64
	err := row.Scan(
		&doc.ID,
		&doc.FamilyID,
		&doc.UploaderID,
		&doc.FileName,
		&doc.MimeType,
		&doc.SizeBytes,
		&doc.StorageKey,
		&thumbnailKey,
		&doc.SenderName,
		&recipientName,
		&doc.EventType,
		&doc.DocDate,
		&contextText,
		&doc.AIStatus,
		&aiError,
		&doc.CreatedAt,
		&similarity,
	)
	if err != nil {
		return ScoredDocument{}, err
	}
	if thumbnailKey.Valid {
		doc.ThumbnailKey = thumbnailKey.String
	}
	if recipientName.Valid {
		doc.RecipientName = recipientName.String
	}
	if contextText.Valid {
		doc.ContextText = contextText.String
	}
	if aiError.Valid {
		doc.AIError = aiError.String
	}
	return ScoredDocument{Document: doc, Similarity: similarity}, nil
}

func appendFilterClauses(query string, args []any, f Filters) (string, []any) {
	if f.Sender != "" {
		args = append(args, f.Sender)
		query += fmt.Sprintf(" AND LOWER(sender_name) = LOWER($%d)", len(args))
	}
	if f.EventType != "" {
		args = append(args, f.EventType)
		query += fmt.Sprintf(" AND LOWER(event_type) = LOWER($%d)", len(args))
	}
	if f.Year != 0 {
		start := time.Date(f.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		args = append(args, start, start.AddDate(1, 0, 0))
		query += fmt.Sprintf(" AND doc_date >= $%d AND doc_date < $%d", len(args)-1, len(args))
	}
	return query, args
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func vectorOrNull(embedding []float32) any {
	if len(embedding) == 0 {
		return nil
	}
	return pgvector.NewVector(embedding)
}

var _ Repo = (*PGRepo)(nil)
