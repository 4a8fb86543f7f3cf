package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestEmbedder(t *testing.T, handler http.HandlerFunc) *Embedder {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	oldURL := embeddingsURL
	embeddingsURL = server.URL
	t.Cleanup(func() { embeddingsURL = oldURL })

	embedder, err := NewEmbedder("test-key", "text-embedding-3-small")
	if err != nil {
		t.Fatalf("NewEmbedder: %v", err)
	}
	return embedder
}

func TestEmbedReturnsVector(t *testing.T) {
	embedder := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var payload embeddingsRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if payload.Model != "text-embedding-3-small" {
			t.Fatalf("model = %q", payload.Model)
		}
		if len(payload.Input) != 1 || payload.Input[0] != "a letter about the lake house" {
			t.Fatalf("unexpected input: %v", payload.Input)
		}

		resp := map[string]any{
			"data": []any{
				map[string]any{"embedding": []float32{0.1, 0.2, 0.3}, "index": 0},
			},
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	})

	vec, err := embedder.Embed(context.Background(), "  a letter about the lake house  ")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 3 || vec[0] != 0.1 {
		t.Fatalf("unexpected vector: %v", vec)
	}
}

func TestEmbedRejectsEmptyInput(t *testing.T) {
	embedder := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request should not reach the API for empty input")
	})

	if _, err := embedder.Embed(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestEmbedSurfacesAPIError(t *testing.T) {
	embedder := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		resp := map[string]any{
			"error": map[string]any{"message": "rate limited", "type": "rate_limit_error"},
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	})

	if _, err := embedder.Embed(context.Background(), "some text"); err == nil {
		t.Fatal("expected error from API failure")
	}
}

func TestEmbedRejectsMissingData(t *testing.T) {
	embedder := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewEncoder(w).Encode(map[string]any{"data": []any{}}); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	})

	if _, err := embedder.Embed(context.Background(), "some text"); err == nil {
		t.Fatal("expected error for empty data")
	}
}
