package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"archive-backend/internal/llm"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	oldURL := apiURL
	apiURL = server.URL
	t.Cleanup(func() { apiURL = oldURL })

	client, err := NewClient("test-key", "gpt-4o-mini")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestRouteParsesDecision(t *testing.T) {
	var bodyMu sync.Mutex
	var lastBody map[string]any

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		bodyMu.Lock()
		lastBody = payload
		bodyMu.Unlock()

		resp := map[string]any{
			"choices": []any{
				map[string]any{
					"message": map[string]any{
						"role":    "assistant",
						"content": `{"tool":"fetch","sender":"Grandma June","eventType":"Birthday","year":2021,"queryText":"letters from Grandma June"}`,
					},
				},
			},
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	})

	decision, err := client.Route(context.Background(), llm.RouteInput{
		Query: "show me the letters from Grandma June in 2021",
		Vocab: llm.Vocabulary{SenderNames: []string{"Grandma June"}, EventTypes: []string{"Birthday"}},
	})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if decision.Tool != llm.ToolFetch {
		t.Fatalf("tool = %q, want %q", decision.Tool, llm.ToolFetch)
	}
	if decision.Sender != "Grandma June" || decision.EventType != "Birthday" || decision.Year != 2021 {
		t.Fatalf("unexpected decision: %+v", decision)
	}

	bodyMu.Lock()
	defer bodyMu.Unlock()
	format, ok := lastBody["response_format"].(map[string]any)
	if !ok || format["type"] != "json_object" {
		t.Fatalf("route request missing json_object response format: %v", lastBody["response_format"])
	}
	if temp, ok := lastBody["temperature"].(float64); !ok || temp != 0 {
		t.Fatalf("route temperature = %v, want 0", lastBody["temperature"])
	}
	if _, present := lastBody["max_tokens"]; present {
		t.Fatalf("route request should not cap max_tokens: %v", lastBody["max_tokens"])
	}
}

func TestRouteRejectsUnknownTool(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		resp := map[string]any{
			"choices": []any{
				map[string]any{
					"message": map[string]any{
						"role":    "assistant",
						"content": `{"tool":"summarize","queryText":"whatever"}`,
					},
				},
			},
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	})

	if _, err := client.Route(context.Background(), llm.RouteInput{Query: "hello"}); err == nil {
		t.Fatal("expected error for unknown tool")
	}
}

func TestSynthesizeSendsCreativeSettings(t *testing.T) {
	var bodyMu sync.Mutex
	var lastBody map[string]any

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		bodyMu.Lock()
		lastBody = payload
		bodyMu.Unlock()

		resp := map[string]any{
			"choices": []any{
				map[string]any{
					"message": map[string]any{
						"role":    "assistant",
						"content": "Grandma June wrote about the garden [1].",
					},
				},
			},
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	})

	answer, err := client.Synthesize(context.Background(), llm.SynthesizeInput{Query: "what did she write about?"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if answer != "Grandma June wrote about the garden [1]." {
		t.Fatalf("unexpected answer: %q", answer)
	}

	bodyMu.Lock()
	defer bodyMu.Unlock()
	if _, present := lastBody["response_format"]; present {
		t.Fatalf("synthesis request should not force a response format: %v", lastBody["response_format"])
	}
	if temp, ok := lastBody["temperature"].(float64); !ok || temp != 0.7 {
		t.Fatalf("synthesis temperature = %v, want 0.7", lastBody["temperature"])
	}
	if max, ok := lastBody["max_tokens"].(float64); !ok || int(max) != synthesisMaxTokens {
		t.Fatalf("synthesis max_tokens = %v, want %d", lastBody["max_tokens"], synthesisMaxTokens)
	}
}

func TestSynthesizeSurfacesAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		resp := map[string]any{
			"error": map[string]any{
				"message": "model overloaded",
				"type":    "server_error",
			},
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	})

	if _, err := client.Synthesize(context.Background(), llm.SynthesizeInput{Query: "anything"}); err == nil {
		t.Fatal("expected error from API failure")
	}
}

func TestParseDecisionFallsBackToRawQuery(t *testing.T) {
	decision, err := parseDecision([]byte(`{"tool":"search"}`), "who mentioned the lake house?")
	if err != nil {
		t.Fatalf("parseDecision: %v", err)
	}
	if decision.QueryText != "who mentioned the lake house?" {
		t.Fatalf("queryText = %q, want raw query", decision.QueryText)
	}
	if decision.Sender != "" || decision.EventType != "" || decision.Year != 0 {
		t.Fatalf("expected empty filters, got %+v", decision)
	}
}

func TestCoerceYear(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want int
	}{
		{name: "number", raw: float64(2021), want: 2021},
		{name: "string", raw: "2021", want: 2021},
		{name: "padded string", raw: " 1998 ", want: 1998},
		{name: "nil", raw: nil, want: 0},
		{name: "garbage string", raw: "twenty twenty one", want: 0},
		{name: "implausible", raw: float64(21), want: 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := coerceYear(tt.raw); got != tt.want {
				t.Fatalf("coerceYear(%v) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}
