package llm

import (
	"context"
	"hash/fnv"
	"strings"
)

// StubClient serves local development without a provider key. Every
// question becomes an unfiltered fetch answered with a fixed sentence, so
// the chat flow works end to end without inventing document content.
type StubClient struct{}

// Route always selects an unfiltered fetch.
func (StubClient) Route(ctx context.Context, input RouteInput) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}
	_ = input
	return Decision{Tool: ToolFetch}, nil
}

// Synthesize returns a fixed listing sentence.
func (StubClient) Synthesize(ctx context.Context, input SynthesizeInput) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	_ = input
	return "Here are the newest documents from your archive.", nil
}

// Describe returns a fixed transcript so image ingestion completes.
func (StubClient) Describe(ctx context.Context, input DescribeInput) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	_ = input
	return "A scanned image from the family archive.", nil
}

const stubEmbedderDims = 64

// StubEmbedder hashes words into a fixed-size bag-of-words vector. The
// same text always embeds to the same vector and texts sharing words land
// near each other, so similarity search behaves sensibly in keyless dev.
type StubEmbedder struct{}

// Embed returns the deterministic local vector for the text.
func (StubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float32, stubEmbedderDims)
	words := strings.Fields(strings.ToLower(text))
	for _, word := range words {
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[h.Sum32()%stubEmbedderDims]++
	}
	if len(words) == 0 {
		vec[0] = 1
	}
	return vec, nil
}

var (
	_ Client    = StubClient{}
	_ Describer = StubClient{}
	_ Embedder  = StubEmbedder{}
)
