package chat

import (
	"context"
	"regexp"
	"strconv"
	"time"

	"archive-backend/internal/documents"
	"archive-backend/internal/llm"
)

// EmptyResultAnswer is the exact message returned when retrieval found
// nothing. Callers and the UI rely on this wording.
const EmptyResultAnswer = "I couldn't find any relevant documents to answer your question."

var citationPattern = regexp.MustCompile(`\[(\d+)\]`)

// Synthesizer produces the final answer over retrieved documents.
type Synthesizer struct {
	LLM       llm.Client
	Timeout   time.Duration
	RequestID string
}

// Synthesis is the outcome of answer generation. Cited holds the retrieved
// documents the answer actually references, in first-citation order.
type Synthesis struct {
	Answer string
	Cited  []documents.Document
}

// Synthesize generates a grounded answer for the query. An empty document
// list short-circuits to the fixed no-results message without a model
// call. Citations pointing outside the retrieved set are discarded, so an
// answer can never reference a document that was not provided.
func (s Synthesizer) Synthesize(ctx context.Context, query string, history []llm.Turn, docs []documents.Document) (Synthesis, error) {
	if len(docs) == 0 {
		return Synthesis{Answer: EmptyResultAnswer}, nil
	}

	blocks := make([]llm.ContextBlock, 0, len(docs))
	for i, doc := range docs {
		blocks = append(blocks, llm.ContextBlock{
			Ordinal:    i + 1,
			DocumentID: doc.ID,
			Sender:     doc.SenderName,
			EventType:  doc.EventType,
			DocDate:    doc.DocDate,
			Text:       doc.ContextText,
		})
	}

	client := llm.RetryingClient{Base: s.LLM, RequestID: s.RequestID}
	synthCtx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	answer, err := client.Synthesize(synthCtx, llm.SynthesizeInput{Query: query, History: history, Blocks: blocks})
	if err != nil {
		return Synthesis{}, err
	}
	return Synthesis{Answer: answer, Cited: citedDocuments(answer, docs)}, nil
}

// citedDocuments resolves [n] citations in the answer back to documents,
// deduplicated and ordered by first appearance. Out-of-range ordinals are
// ignored.
func citedDocuments(answer string, docs []documents.Document) []documents.Document {
	matches := citationPattern.FindAllStringSubmatch(answer, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[int]bool, len(matches))
	cited := make([]documents.Document, 0, len(matches))
	for _, m := range matches {
		ordinal, err := strconv.Atoi(m[1])
		if err != nil || ordinal < 1 || ordinal > len(docs) {
			continue
		}
		if seen[ordinal] {
			continue
		}
		seen[ordinal] = true
		cited = append(cited, docs[ordinal-1])
	}
	return cited
}
