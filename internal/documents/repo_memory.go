package documents

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo used in dev mode and
// unit tests. Documents are bucketed by family so cross-tenant reads are
// impossible by construction.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string][]Document // familyId -> documents
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string][]Document),
	}
}

// Create stores a document under its owning family.
func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[doc.FamilyID] = append(r.data[doc.FamilyID], doc)
	return nil
}

// GetByID returns a document by ID within a family.
func (r *MemoryRepo) GetByID(ctx context.Context, familyId, documentID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	docs := r.data[familyId]
	for i := range docs {
		if docs[i].ID == documentID {
			return docs[i], nil
		}
	}
	return Document{}, ErrNotFound
}

// FindByFilters returns matching documents newest-first by document date.
func (r *MemoryRepo) FindByFilters(ctx context.Context, familyId string, f Filters) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	candidates := append([]Document(nil), r.data[familyId]...)
	r.mu.RUnlock()

	out := make([]Document, 0, len(candidates))
	for _, doc := range candidates {
		if matchesFilters(doc, f) {
			out = append(out, doc)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].DocDate.Equal(out[j].DocDate) {
			return out[i].DocDate.After(out[j].DocDate)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if len(out) > FetchLimit {
		out = out[:FetchLimit]
	}
	return out, nil
}

// FindBySimilarity filters the family's documents, then ranks the remainder
// by cosine similarity to the query embedding, best first.
func (r *MemoryRepo) FindBySimilarity(ctx context.Context, familyId string, queryEmbedding []float32, f Filters, topK int) ([]ScoredDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	topK = normalizeTopK(topK)

	r.mu.RLock()
	candidates := append([]Document(nil), r.data[familyId]...)
	r.mu.RUnlock()

	scored := make([]ScoredDocument, 0, len(candidates))
	for _, doc := range candidates {
		if len(doc.Embedding) == 0 {
			continue
		}
		if !matchesFilters(doc, f) {
			continue
		}
		scored = append(scored, ScoredDocument{
			Document:   doc,
			Similarity: cosineSimilarity(queryEmbedding, doc.Embedding),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

// UpdateAIContext writes blob and embedding together and marks the document ready.
func (r *MemoryRepo) UpdateAIContext(ctx context.Context, familyId, documentID, contextText string, embedding []float32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	docs := r.data[familyId]
	for i := range docs {
		if docs[i].ID == documentID {
			docs[i].ContextText = contextText
			docs[i].Embedding = append([]float32(nil), embedding...)
			docs[i].AIStatus = AIStatusReady
			docs[i].AIError = ""
			r.data[familyId] = docs
			return nil
		}
	}
	return ErrNotFound
}

// MarkAIFailed records an ingest failure without touching blob or embedding.
func (r *MemoryRepo) MarkAIFailed(ctx context.Context, familyId, documentID, reason string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	docs := r.data[familyId]
	for i := range docs {
		if docs[i].ID == documentID {
			docs[i].AIStatus = AIStatusFailed
			docs[i].AIError = reason
			r.data[familyId] = docs
			return nil
		}
	}
	return ErrNotFound
}

// SoftDelete removes a document from its family bucket.
func (r *MemoryRepo) SoftDelete(ctx context.Context, familyId, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	docs := r.data[familyId]
	for i := range docs {
		if docs[i].ID == documentID {
			r.data[familyId] = append(docs[:i:i], docs[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// ClaimGuest moves a guest tenant's documents into the given family,
// reassigning the uploader to the authenticated user.
func (r *MemoryRepo) ClaimGuest(ctx context.Context, guestFamilyID, familyId, userID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	docs := r.data[guestFamilyID]
	if len(docs) == 0 {
		return 0, nil
	}
	for i := range docs {
		docs[i].FamilyID = familyId
		docs[i].UploaderID = userID
	}
	r.data[familyId] = append(r.data[familyId], docs...)
	delete(r.data, guestFamilyID)
	return len(docs), nil
}

func matchesFilters(doc Document, f Filters) bool {
	if f.Sender != "" && !strings.EqualFold(doc.SenderName, f.Sender) {
		return false
	}
	if f.EventType != "" && !strings.EqualFold(doc.EventType, f.EventType) {
		return false
	}
	if f.Year != 0 {
		start := time.Date(f.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(1, 0, 0)
		if doc.DocDate.Before(start) || !doc.DocDate.Before(end) {
			return false
		}
	}
	return true
}

var _ Repo = (*MemoryRepo)(nil)
