package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"archive-backend/internal/extract"
	"archive-backend/internal/llm"
	"archive-backend/internal/queue"
	"archive-backend/internal/settings"
	"archive-backend/internal/shared/metrics"
	"archive-backend/internal/shared/storage/object"
	"archive-backend/internal/shared/telemetry"
)

// thumbnailURLTTL bounds how long a signed thumbnail link stays valid.
const thumbnailURLTTL = 15 * time.Minute

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".txt":  true,
	".md":   true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// Service contains business logic for archive documents: upload, the AI
// ingestion pipeline, and scoped reads.
type Service struct {
	Store    object.ObjectStore
	Repo     Repo
	Settings *settings.Service
	Embedder llm.Embedder
	Vision   llm.Describer
	Queue    queue.Client
}

// UploadInput carries the multipart form fields of an upload.
type UploadInput struct {
	FileName      string
	Reader        io.Reader
	SenderName    string
	RecipientName string
	EventType     string
	DocDate       time.Time
}

// Upload saves the file to object storage, records the document with
// pending AI status, and dispatches ingestion.
func (s *Service) Upload(ctx context.Context, familyID, userID string, in UploadInput) (Document, error) {
	if strings.TrimSpace(familyID) == "" || strings.TrimSpace(userID) == "" {
		return Document{}, fmt.Errorf("%w: family and user are required", ErrInvalidInput)
	}
	fileName := strings.TrimSpace(in.FileName)
	if fileName == "" {
		return Document{}, fmt.Errorf("%w: file name is required", ErrInvalidInput)
	}
	if !allowedExtensions[strings.ToLower(filepath.Ext(fileName))] {
		return Document{}, fmt.Errorf("%w: unsupported file type", ErrInvalidInput)
	}
	sender := strings.TrimSpace(in.SenderName)
	if sender == "" {
		return Document{}, fmt.Errorf("%w: senderName is required", ErrInvalidInput)
	}
	eventType := strings.TrimSpace(in.EventType)
	if eventType == "" {
		return Document{}, fmt.Errorf("%w: eventType is required", ErrInvalidInput)
	}
	if in.DocDate.IsZero() {
		return Document{}, fmt.Errorf("%w: docDate is required", ErrInvalidInput)
	}

	storageKey, size, mimeType, err := s.Store.Save(ctx, familyID, fileName, in.Reader)
	if err != nil {
		return Document{}, err
	}

	doc := Document{
		ID:            uuid.NewString(),
		FamilyID:      familyID,
		UploaderID:    userID,
		FileName:      fileName,
		MimeType:      mimeType,
		SizeBytes:     size,
		StorageKey:    storageKey,
		SenderName:    sender,
		RecipientName: strings.TrimSpace(in.RecipientName),
		EventType:     eventType,
		DocDate:       in.DocDate.UTC(),
		AIStatus:      AIStatusPending,
		CreatedAt:     time.Now().UTC(),
	}
	// Scans double as their own thumbnail. PDFs and text files have none.
	if strings.HasPrefix(mimeType, "image/") {
		doc.ThumbnailKey = storageKey
	}

	if err := s.Repo.Create(ctx, doc); err != nil {
		return Document{}, err
	}

	s.dispatchIngest(ctx, doc)
	return doc, nil
}

func (s *Service) dispatchIngest(ctx context.Context, doc Document) {
	requestID := requestIDFromContext(ctx)
	if s.Queue != nil {
		msg := queue.Message{
			DocumentID: doc.ID,
			FamilyID:   doc.FamilyID,
			RequestID:  requestID,
			EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
			Version:    1,
		}
		err := s.Queue.Send(ctx, msg)
		if err == nil {
			return
		}
		telemetry.Error("document.enqueue", map[string]any{
			"request_id":  requestID,
			"family_id":   doc.FamilyID,
			"document_id": doc.ID,
			"error":       flattenErr(err),
		})
	}
	go s.ingestAsync(backgroundWithRequestID(ctx), doc.FamilyID, doc.ID)
}

func (s *Service) ingestAsync(ctx context.Context, familyID, documentID string) {
	defer func() {
		if r := recover(); r != nil {
			s.failIngest(ctx, familyID, documentID, fmt.Errorf("panic: %v", r), time.Now().UTC())
		}
	}()
	_ = s.ProcessDocument(ctx, familyID, documentID)
}

// ProcessDocument runs the ingestion pipeline for one document: extract
// text, build the context blob, embed it, and mark the document ready.
// Failures are recorded on the document and returned.
func (s *Service) ProcessDocument(ctx context.Context, familyID, documentID string) error {
	startedAt := time.Now().UTC()

	doc, err := s.Repo.GetByID(ctx, familyID, documentID)
	if err != nil {
		return fmt.Errorf("document lookup id=%s: %w", documentID, err)
	}
	if doc.AIStatus == AIStatusReady {
		return nil
	}

	text, err := extract.ExtractText(ctx, s.Store, doc.StorageKey, doc.MimeType, doc.FileName)
	if err != nil {
		s.failIngest(ctx, familyID, documentID, fmt.Errorf("document %s mime %s: %w", doc.ID, doc.MimeType, err), startedAt)
		return err
	}
	if strings.TrimSpace(text) == "" && strings.HasPrefix(doc.MimeType, "image/") {
		text = s.describeImage(ctx, doc)
	}

	contextText := buildContextText(doc, text)

	embedder := llm.RetryingEmbedder{Base: s.Embedder, RequestID: requestIDFromContext(ctx)}
	embedding, err := embedder.Embed(ctx, contextText)
	if err != nil {
		// Without a provider the archive degrades to metadata-only retrieval.
		if !errors.Is(err, llm.ErrNotImplemented) {
			s.failIngest(ctx, familyID, documentID, fmt.Errorf("document %s: embed: %w", doc.ID, err), startedAt)
			return err
		}
		embedding = nil
	}

	if err := s.Repo.UpdateAIContext(ctx, familyID, documentID, contextText, embedding); err != nil {
		s.failIngest(ctx, familyID, documentID, fmt.Errorf("document %s: store context: %w", doc.ID, err), startedAt)
		return err
	}

	if s.Settings != nil {
		vals := settings.Values{
			EventTypes:  []string{doc.EventType},
			SenderNames: []string{doc.SenderName},
		}
		if doc.RecipientName != "" {
			vals.RecipientNames = []string{doc.RecipientName}
		}
		if err := s.Settings.AppendValues(ctx, familyID, vals); err != nil {
			telemetry.Error("document.vocab", map[string]any{
				"request_id":  requestIDFromContext(ctx),
				"family_id":   familyID,
				"document_id": documentID,
				"error":       flattenErr(err),
			})
		}
	}

	completedAt := time.Now().UTC()
	metrics.IncIngestReady()
	metrics.ObserveIngestDurationMs(float64(completedAt.Sub(startedAt).Microseconds()) / 1000.0)
	telemetry.Info("document.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"family_id":         familyID,
		"document_id":       documentID,
		"status":            AIStatusReady,
		"status_transition": "pending->ready",
		"has_embedding":     len(embedding) > 0,
		"text_len":          len(text),
	})
	return nil
}

func (s *Service) failIngest(ctx context.Context, familyID, documentID string, cause error, startedAt time.Time) {
	msg := flattenErr(cause)
	if updateErr := s.Repo.MarkAIFailed(context.Background(), familyID, documentID, msg); updateErr != nil {
		telemetry.Error("document.status", map[string]any{
			"family_id":   familyID,
			"document_id": documentID,
			"error":       flattenErr(updateErr),
			"cause":       msg,
		})
	}
	completedAt := time.Now().UTC()
	metrics.IncIngestFailed()
	metrics.ObserveIngestDurationMs(float64(completedAt.Sub(startedAt).Microseconds()) / 1000.0)
	telemetry.Info("document.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"family_id":         familyID,
		"document_id":       documentID,
		"status":            AIStatusFailed,
		"status_transition": "pending->failed",
		"error":             msg,
	})
}

// describeImage sends a scan through the vision model. A photo or
// handwritten card has no text layer; the model's transcript or scene
// description becomes its searchable text. Failures degrade to a
// metadata-only blob rather than failing the ingest.
func (s *Service) describeImage(ctx context.Context, doc Document) string {
	if s.Vision == nil {
		return ""
	}

	body, err := s.Store.Open(ctx, doc.StorageKey)
	if err != nil {
		s.logDescribeSkip(ctx, doc, err)
		return ""
	}
	defer body.Close()
	raw, err := io.ReadAll(body)
	if err != nil {
		s.logDescribeSkip(ctx, doc, err)
		return ""
	}

	describer := llm.RetryingDescriber{Base: s.Vision, RequestID: requestIDFromContext(ctx)}
	text, err := describer.Describe(ctx, llm.DescribeInput{MimeType: doc.MimeType, Data: raw})
	if err != nil {
		if !errors.Is(err, llm.ErrNotImplemented) {
			s.logDescribeSkip(ctx, doc, err)
		}
		return ""
	}
	return text
}

func (s *Service) logDescribeSkip(ctx context.Context, doc Document, cause error) {
	telemetry.Error("document.describe", map[string]any{
		"request_id":  requestIDFromContext(ctx),
		"family_id":   doc.FamilyID,
		"document_id": doc.ID,
		"error":       flattenErr(cause),
	})
}

// buildContextText prefixes the extracted text with a metadata sentence so
// similarity search can still find documents whose scans carry no text.
func buildContextText(doc Document, text string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "This is a %s from %s", doc.EventType, doc.SenderName)
	if doc.RecipientName != "" {
		fmt.Fprintf(&b, " to %s", doc.RecipientName)
	}
	fmt.Fprintf(&b, " dated %s.", doc.DocDate.Format("2006-01-02"))

	trimmed := strings.TrimSpace(text)
	if trimmed != "" {
		b.WriteString("\n\n")
		b.WriteString(trimmed)
	}
	return b.String()
}

// List returns the family's documents, newest first, optionally narrowed
// by sender, event type, or year.
func (s *Service) List(ctx context.Context, familyID string, f Filters) ([]Document, error) {
	if strings.TrimSpace(familyID) == "" {
		return nil, fmt.Errorf("%w: family is required", ErrInvalidInput)
	}
	return s.Repo.FindByFilters(ctx, familyID, f)
}

// Get returns one document scoped to the family.
func (s *Service) Get(ctx context.Context, familyID, documentID string) (Document, error) {
	if strings.TrimSpace(familyID) == "" || strings.TrimSpace(documentID) == "" {
		return Document{}, fmt.Errorf("%w: family and document are required", ErrInvalidInput)
	}
	return s.Repo.GetByID(ctx, familyID, documentID)
}

// Delete soft-deletes one document scoped to the family. The stored scan
// is kept for recovery.
func (s *Service) Delete(ctx context.Context, familyID, documentID string) error {
	if strings.TrimSpace(familyID) == "" || strings.TrimSpace(documentID) == "" {
		return fmt.Errorf("%w: family and document are required", ErrInvalidInput)
	}
	return s.Repo.SoftDelete(ctx, familyID, documentID)
}

// ThumbnailRef returns a reference the client can load the thumbnail from:
// a presigned URL when the store supports signing, otherwise an API path
// served by this process. Empty when the document has no thumbnail.
func (s *Service) ThumbnailRef(ctx context.Context, doc Document) string {
	if doc.ThumbnailKey == "" {
		return ""
	}
	if signer, ok := s.Store.(object.URLSigner); ok {
		url, err := signer.SignedURL(ctx, doc.ThumbnailKey, thumbnailURLTTL)
		if err == nil {
			return url
		}
		telemetry.Error("document.thumbnail_url", map[string]any{
			"family_id":   doc.FamilyID,
			"document_id": doc.ID,
			"error":       flattenErr(err),
		})
	}
	return "/api/v1/documents/" + doc.ID + "/thumbnail"
}

func flattenErr(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
