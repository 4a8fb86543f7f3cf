package chat

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"archive-backend/internal/llm"
	"archive-backend/internal/shared/telemetry"
)

// contentCuePattern marks questions about what a document says rather
// than which documents exist. A fetch decision on a query carrying one of
// these is promoted to search: search produces both a document list and a
// grounded answer, so it is the safe side of the tie.
var contentCuePattern = regexp.MustCompile(`\b(?:what did|what does|what was|what were|say about|says|said|wrote|written|write about|mention|talk about|talks about|talked about|describe|quote|advice|why|how did|tell me what|tell me about)`)

var yearPattern = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)

// Router turns a free-text question into a single retrieval decision.
// A classification failure never fails the request: the query falls back
// to an unfiltered search over its raw text.
type Router struct {
	LLM       llm.Client
	Timeout   time.Duration
	RequestID string
}

// Decide classifies the query and grounds the result against the tenant
// vocabulary. The returned error is non-nil only when the caller's own
// context ended.
func (r Router) Decide(ctx context.Context, query string, history []llm.Turn, vocab llm.Vocabulary) (llm.Decision, error) {
	client := llm.RetryingClient{Base: r.LLM, RequestID: r.RequestID}

	routeCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	decision, err := client.Route(routeCtx, llm.RouteInput{Query: query, History: history, Vocab: vocab})
	if err != nil {
		if ctx.Err() != nil {
			return llm.Decision{}, ctx.Err()
		}
		telemetry.Error("chat.route", map[string]any{
			"request_id": r.RequestID,
			"error":      flattenErr(err),
			"fallback":   llm.ToolSearch,
		})
		return fallbackDecision(query), nil
	}
	return groundDecision(decision, query, vocab), nil
}

// fallbackDecision is used when classification is unavailable or returned
// garbage: search the raw query with no filters.
func fallbackDecision(query string) llm.Decision {
	return llm.Decision{Tool: llm.ToolSearch, QueryText: query}
}

// groundDecision normalizes a raw model decision: filter values snap to
// the tenant vocabulary, a year mentioned in the query backfills a missing
// Year, and content-style questions flip fetch to search.
func groundDecision(decision llm.Decision, query string, vocab llm.Vocabulary) llm.Decision {
	switch decision.Tool {
	case llm.ToolFetch, llm.ToolSearch:
	default:
		return fallbackDecision(query)
	}

	decision.Sender = groundTerm(decision.Sender, vocab.SenderNames)
	decision.EventType = groundTerm(decision.EventType, vocab.EventTypes)
	if decision.Year == 0 {
		decision.Year = yearFromQuery(query)
	}

	if decision.Tool == llm.ToolFetch && hasContentCue(query) {
		decision.Tool = llm.ToolSearch
	}

	if decision.Tool == llm.ToolSearch {
		if strings.TrimSpace(decision.QueryText) == "" {
			decision.QueryText = query
		}
	} else {
		decision.QueryText = ""
	}
	return decision
}

// groundTerm snaps a model-extracted value to the closest known term:
// exact case-insensitive match first, then containment in either
// direction, so "Grandma" finds "Grandma June" and "Mommy" stays as-is.
// Unmatched values pass through verbatim.
func groundTerm(value string, known []string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	for _, k := range known {
		if strings.EqualFold(value, k) {
			return k
		}
	}
	lower := strings.ToLower(value)
	for _, k := range known {
		kl := strings.ToLower(k)
		if strings.Contains(kl, lower) || strings.Contains(lower, kl) {
			return k
		}
	}
	return value
}

func hasContentCue(query string) bool {
	q := strings.ToLower(query)
	if strings.Contains(q, `"`) {
		return true
	}
	return contentCuePattern.MatchString(q)
}

func yearFromQuery(query string) int {
	match := yearPattern.FindString(query)
	if match == "" {
		return 0
	}
	year, err := strconv.Atoi(match)
	if err != nil {
		return 0
	}
	return year
}
