package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"archive-backend/internal/documents"
	"archive-backend/internal/llm"
	"archive-backend/internal/settings"
	"archive-backend/internal/shared/metrics"
	"archive-backend/internal/shared/telemetry"
	"archive-backend/internal/usage"
)

// defaultCallTimeout bounds each external call (classification, embedding,
// retrieval, synthesis) when no timeout is configured.
const defaultCallTimeout = 30 * time.Second

// MemberSource lists family member display names for vocabulary grounding.
type MemberSource interface {
	MemberNames(ctx context.Context, familyID string) ([]string, error)
}

// Service answers questions about a family's archive. Each request routes
// to exactly one retrieval tool, runs it, and synthesizes a grounded
// answer. Per-request state lives on the stack, so one Service instance
// handles concurrent requests.
type Service struct {
	Repo        documents.Repo
	Docs        *documents.Service
	Settings    *settings.Service
	Members     MemberSource
	Quota       *usage.Service
	LLM         llm.Client
	Embedder    llm.Embedder
	CallTimeout time.Duration
}

// Ask runs one question end to end. The response's Tool field names the
// retrieval tool used, for request logging.
func (s *Service) Ask(ctx context.Context, familyID string, req AskRequest) (AskResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return AskResponse{}, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}
	if strings.TrimSpace(familyID) == "" {
		return AskResponse{}, fmt.Errorf("%w: familyID is required", ErrInvalidInput)
	}

	if s.Quota != nil {
		if err := s.Quota.ConsumeAsk(ctx, familyID); err != nil {
			return AskResponse{}, err
		}
	}

	startedAt := time.Now().UTC()
	requestID := requestIDFromContext(ctx)
	history := req.turns()
	metrics.IncChatAsk()

	router := Router{LLM: s.LLM, Timeout: s.callTimeout(), RequestID: requestID}
	decision, err := router.Decide(ctx, query, history, s.vocabulary(ctx, familyID, requestID))
	if err != nil {
		return AskResponse{}, s.fail(familyID, requestID, "routing", err, startedAt)
	}

	docs, err := s.retrieve(ctx, familyID, requestID, decision)
	if err != nil {
		return AskResponse{}, s.fail(familyID, requestID, "retrieving", err, startedAt)
	}

	synth := Synthesizer{LLM: s.LLM, Timeout: s.callTimeout(), RequestID: requestID}
	result, err := synth.Synthesize(ctx, query, history, docs)
	if err != nil {
		if ctx.Err() != nil {
			return AskResponse{}, s.fail(familyID, requestID, "synthesizing", ctx.Err(), startedAt)
		}
		wrapped := fmt.Errorf("%w: %s", ErrModelUnavailable, flattenErr(err))
		return AskResponse{}, s.fail(familyID, requestID, "synthesizing", wrapped, startedAt)
	}

	// A fetch answers with the full listing; a search answers with the
	// subset the model actually cited.
	referenced := docs
	if decision.Tool == llm.ToolSearch {
		referenced = result.Cited
	}

	resp := AskResponse{Answer: result.Answer, Tool: decision.Tool}
	if len(referenced) > 0 {
		resp.Documents = make([]DocumentSummary, 0, len(referenced))
		for _, doc := range referenced {
			resp.Documents = append(resp.Documents, toSummary(doc, s.thumbnailRef(ctx, doc)))
		}
	}

	if decision.Tool == llm.ToolFetch {
		metrics.IncChatFetch()
	} else {
		metrics.IncChatSearch()
	}
	durationMs := float64(time.Since(startedAt)) / float64(time.Millisecond)
	metrics.ObserveChatDurationMs(durationMs)
	telemetry.Info("chat.status", map[string]any{
		"request_id":  requestID,
		"family_id":   familyID,
		"status":      "done",
		"tool":        decision.Tool,
		"retrieved":   len(docs),
		"referenced":  len(referenced),
		"duration_ms": durationMs,
	})
	return resp, nil
}

// retrieve runs the single retrieval tool the decision selected.
func (s *Service) retrieve(ctx context.Context, familyID, requestID string, decision llm.Decision) ([]documents.Document, error) {
	filters := documents.Filters{
		Sender:    decision.Sender,
		EventType: decision.EventType,
		Year:      decision.Year,
	}

	switch decision.Tool {
	case llm.ToolFetch:
		return s.fetch(ctx, familyID, filters)
	case llm.ToolSearch:
		return s.search(ctx, familyID, requestID, decision.QueryText, filters)
	default:
		return nil, fmt.Errorf("%w: unknown retrieval tool %q", ErrInvalidInput, decision.Tool)
	}
}

func (s *Service) fetch(ctx context.Context, familyID string, filters documents.Filters) ([]documents.Document, error) {
	findCtx, cancel := context.WithTimeout(ctx, s.callTimeout())
	defer cancel()

	docs, err := s.Repo.FindByFilters(findCtx, familyID, filters)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s", ErrStoreUnavailable, flattenErr(err))
	}
	return docs, nil
}

func (s *Service) search(ctx context.Context, familyID, requestID, queryText string, filters documents.Filters) ([]documents.Document, error) {
	embedder := llm.RetryingEmbedder{Base: s.Embedder, RequestID: requestID}
	embedCtx, cancelEmbed := context.WithTimeout(ctx, s.callTimeout())
	embedding, err := embedder.Embed(embedCtx, queryText)
	cancelEmbed()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s", ErrEmbeddingUnavailable, flattenErr(err))
	}

	findCtx, cancelFind := context.WithTimeout(ctx, s.callTimeout())
	defer cancelFind()
	scored, err := s.Repo.FindBySimilarity(findCtx, familyID, embedding, filters, documents.DefaultTopK)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s", ErrStoreUnavailable, flattenErr(err))
	}

	docs := make([]documents.Document, 0, len(scored))
	for _, sd := range scored {
		docs = append(docs, sd.Document)
	}
	return docs, nil
}

// vocabulary merges stored sender names with family member names.
// Failures degrade to whatever was gathered: grounding is best-effort and
// unmatched values pass through verbatim anyway.
func (s *Service) vocabulary(ctx context.Context, familyID, requestID string) llm.Vocabulary {
	var vocab llm.Vocabulary
	if s.Settings != nil {
		stored, err := s.Settings.GetOrCreate(ctx, familyID)
		if err != nil {
			telemetry.Error("chat.vocabulary", map[string]any{
				"request_id": requestID,
				"family_id":  familyID,
				"source":     "settings",
				"error":      flattenErr(err),
			})
		} else {
			vocab.SenderNames = append(vocab.SenderNames, stored.SenderNames...)
			vocab.EventTypes = append(vocab.EventTypes, stored.EventTypes...)
		}
	}
	if s.Members != nil {
		names, err := s.Members.MemberNames(ctx, familyID)
		if err != nil {
			telemetry.Error("chat.vocabulary", map[string]any{
				"request_id": requestID,
				"family_id":  familyID,
				"source":     "members",
				"error":      flattenErr(err),
			})
		} else {
			vocab.SenderNames = mergeAbsent(vocab.SenderNames, names)
		}
	}
	return vocab
}

func (s *Service) thumbnailRef(ctx context.Context, doc documents.Document) string {
	if s.Docs == nil {
		return ""
	}
	return s.Docs.ThumbnailRef(ctx, doc)
}

func (s *Service) callTimeout() time.Duration {
	if s.CallTimeout > 0 {
		return s.CallTimeout
	}
	return defaultCallTimeout
}

// fail records the cause for operators and passes the error up unchanged;
// the handler decides what the caller is allowed to see.
func (s *Service) fail(familyID, requestID, state string, err error, startedAt time.Time) error {
	metrics.IncChatFailed()
	durationMs := float64(time.Since(startedAt)) / float64(time.Millisecond)
	metrics.ObserveChatDurationMs(durationMs)
	telemetry.Error("chat.status", map[string]any{
		"request_id":  requestID,
		"family_id":   familyID,
		"status":      "error",
		"state":       state,
		"error":       flattenErr(err),
		"duration_ms": durationMs,
	})
	return err
}

func mergeAbsent(into, add []string) []string {
	for _, v := range add {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		present := false
		for _, existing := range into {
			if strings.EqualFold(existing, v) {
				present = true
				break
			}
		}
		if !present {
			into = append(into, v)
		}
	}
	return into
}

func flattenErr(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	if len(msg) > 500 {
		msg = msg[:500]
	}
	return msg
}
