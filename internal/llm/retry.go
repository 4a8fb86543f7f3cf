package llm

import (
	"context"
	"errors"
	"log"
	"net"
	"strings"
	"time"
)

const retryBaseDelay = 300 * time.Millisecond

// RetryingClient wraps a Client with at most one immediate retry on
// transient failures. Non-transient errors pass through unchanged.
type RetryingClient struct {
	Base      Client
	RequestID string
}

// Route classifies the query, retrying once on a transient failure.
func (r RetryingClient) Route(ctx context.Context, input RouteInput) (Decision, error) {
	decision, err := r.Base.Route(ctx, input)
	if err == nil || !shouldRetry(err) {
		return decision, err
	}
	if err := waitRetry(ctx, r.RequestID, "route", err); err != nil {
		return Decision{}, err
	}
	return r.Base.Route(ctx, input)
}

// Synthesize answers the query, retrying once on a transient failure.
func (r RetryingClient) Synthesize(ctx context.Context, input SynthesizeInput) (string, error) {
	answer, err := r.Base.Synthesize(ctx, input)
	if err == nil || !shouldRetry(err) {
		return answer, err
	}
	if err := waitRetry(ctx, r.RequestID, "synthesize", err); err != nil {
		return "", err
	}
	return r.Base.Synthesize(ctx, input)
}

// RetryingDescriber wraps a Describer with at most one immediate retry on
// transient failures.
type RetryingDescriber struct {
	Base      Describer
	RequestID string
}

// Describe transcribes the image, retrying once on a transient failure.
func (r RetryingDescriber) Describe(ctx context.Context, input DescribeInput) (string, error) {
	text, err := r.Base.Describe(ctx, input)
	if err == nil || !shouldRetry(err) {
		return text, err
	}
	if err := waitRetry(ctx, r.RequestID, "describe", err); err != nil {
		return "", err
	}
	return r.Base.Describe(ctx, input)
}

// RetryingEmbedder wraps an Embedder with at most one immediate retry on
// transient failures.
type RetryingEmbedder struct {
	Base      Embedder
	RequestID string
}

// Embed computes the vector, retrying once on a transient failure.
func (r RetryingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := r.Base.Embed(ctx, text)
	if err == nil || !shouldRetry(err) {
		return vec, err
	}
	if err := waitRetry(ctx, r.RequestID, "embed", err); err != nil {
		return nil, err
	}
	return r.Base.Embed(ctx, text)
}

func waitRetry(ctx context.Context, requestID, op string, cause error) error {
	log.Printf("llm retry attempt=1 op=%s request_id=%s error=%s", op, requestID, flattenError(cause))
	select {
	case <-time.After(retryBaseDelay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotImplemented) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "http status 5") || strings.Contains(msg, "server_error") || strings.Contains(msg, "rate_limit") {
		return true
	}
	if strings.Contains(msg, "timeout") && (strings.Contains(msg, "openai") || strings.Contains(msg, "llm") || strings.Contains(msg, "client.timeout")) {
		return true
	}
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "eof") {
		return true
	}

	return false
}

func flattenError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	return strings.TrimSpace(msg)
}

var (
	_ Client    = RetryingClient{}
	_ Describer = RetryingDescriber{}
	_ Embedder  = RetryingEmbedder{}
)
