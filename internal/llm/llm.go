package llm

import (
	"context"
	"errors"
	"time"
)

// Tool names returned by the query router.
const (
	ToolFetch  = "fetch"
	ToolSearch = "search"
)

// Turn is a single prior exchange in a conversation.
type Turn struct {
	Role    string
	Content string
}

// Vocabulary is the tenant's known metadata values, used to ground
// router output against real senders and event types.
type Vocabulary struct {
	SenderNames []string
	EventTypes  []string
}

// RouteInput captures the inputs for a routing decision.
type RouteInput struct {
	Query   string
	History []Turn
	Vocab   Vocabulary
}

// Decision is the structured outcome of query classification.
// Sender, EventType and Year are zero when the query does not name them.
type Decision struct {
	Tool      string
	QueryText string
	Sender    string
	EventType string
	Year      int
}

// ContextBlock is one retrieved document prepared for answer synthesis.
// Ordinal is the 1-based citation number shown to the model.
type ContextBlock struct {
	Ordinal    int
	DocumentID string
	Sender     string
	EventType  string
	DocDate    time.Time
	Text       string
}

// SynthesizeInput captures the inputs for answer synthesis.
type SynthesizeInput struct {
	Query   string
	History []Turn
	Blocks  []ContextBlock
}

// Client abstracts the chat-completion provider behind the two archive
// operations: classifying a query and answering it over retrieved context.
type Client interface {
	Route(ctx context.Context, input RouteInput) (Decision, error)
	Synthesize(ctx context.Context, input SynthesizeInput) (string, error)
}

// Embedder turns text into a vector for similarity retrieval.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// DescribeInput is a scanned image handed to the vision model.
type DescribeInput struct {
	MimeType string
	Data     []byte
}

// Describer transcribes or describes an image scan. Ingestion uses it so
// photos and handwritten cards still produce a searchable context blob.
type Describer interface {
	Describe(ctx context.Context, input DescribeInput) (string, error)
}

// ErrNotImplemented is returned by the placeholder implementations.
var ErrNotImplemented = errors.New("LLM not implemented")

// PlaceholderClient is a stub implementation until provider wiring is added.
type PlaceholderClient struct{}

// Route returns ErrNotImplemented.
func (PlaceholderClient) Route(ctx context.Context, input RouteInput) (Decision, error) {
	_ = ctx
	_ = input
	return Decision{}, ErrNotImplemented
}

// Synthesize returns ErrNotImplemented.
func (PlaceholderClient) Synthesize(ctx context.Context, input SynthesizeInput) (string, error) {
	_ = ctx
	_ = input
	return "", ErrNotImplemented
}

// Describe returns ErrNotImplemented.
func (PlaceholderClient) Describe(ctx context.Context, input DescribeInput) (string, error) {
	_ = ctx
	_ = input
	return "", ErrNotImplemented
}

// PlaceholderEmbedder is a stub embedder until provider wiring is added.
type PlaceholderEmbedder struct{}

// Embed returns ErrNotImplemented.
func (PlaceholderEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	_ = ctx
	_ = text
	return nil, ErrNotImplemented
}

var (
	_ Client    = PlaceholderClient{}
	_ Describer = PlaceholderClient{}
	_ Embedder  = PlaceholderEmbedder{}
)
