package documents

import "context"

// Filters narrows a find to rigid metadata attributes. Zero values mean
// no constraint for that field.
type Filters struct {
	Sender    string
	EventType string
	Year      int
}

// IsZero reports whether no filter field is set.
func (f Filters) IsZero() bool {
	return f.Sender == "" && f.EventType == "" && f.Year == 0
}

// ScoredDocument pairs a document with its similarity to a query embedding.
type ScoredDocument struct {
	Document   Document
	Similarity float64
}

const (
	// FetchLimit caps filtered finds so a broad query cannot return the
	// whole archive in one response.
	FetchLimit = 50
	// DefaultTopK bounds similarity results when the caller passes no limit.
	DefaultTopK = 5
	// MaxTopK is the hard ceiling for similarity results.
	MaxTopK = 10
)

// Repo defines persistence operations for documents. Every method takes the
// owning family as its first argument; there is no unscoped variant.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, familyId, documentID string) (Document, error)
	// FindByFilters returns matching documents newest-first by document date.
	FindByFilters(ctx context.Context, familyId string, f Filters) ([]Document, error)
	// FindBySimilarity applies f before ranking by cosine similarity against
	// queryEmbedding, best match first. Documents without an embedding are
	// never candidates.
	FindBySimilarity(ctx context.Context, familyId string, queryEmbedding []float32, f Filters, topK int) ([]ScoredDocument, error)
	// UpdateAIContext stores the context blob together with the embedding
	// computed from it and marks the document ready. An empty embedding is
	// stored as absent.
	UpdateAIContext(ctx context.Context, familyId, documentID, contextText string, embedding []float32) error
	MarkAIFailed(ctx context.Context, familyId, documentID, reason string) error
	SoftDelete(ctx context.Context, familyId, documentID string) error
}

func normalizeTopK(topK int) int {
	if topK <= 0 {
		return DefaultTopK
	}
	if topK > MaxTopK {
		return MaxTopK
	}
	return topK
}
