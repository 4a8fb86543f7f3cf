package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"archive-backend/internal/llm"
)

var apiURL = "https://api.openai.com/v1/chat/completions"

const (
	synthesisTemperature = float32(0.7)
	synthesisMaxTokens   = 500
	describeMaxTokens    = 1000
)

// describePrompt asks the vision model for a transcript first and a
// description only when the scan carries no text.
const describePrompt = "Please transcribe any handwritten or typed text in this image. " +
	"If there is no text, describe what you see in the image. " +
	"Be detailed and include any meaningful content."

// Client implements llm.Client using OpenAI Chat Completions.
type Client struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient constructs a new OpenAI client.
func NewClient(apiKey, model string) (*Client, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("CHAT_MODEL is required for OpenAI")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	return &Client{
		apiKey: apiKey,
		model:  model,
		httpClient: &http.Client{
			Timeout: requestTimeout(),
		},
	}, nil
}

func requestTimeout() time.Duration {
	timeout := 30 * time.Second
	if raw := strings.TrimSpace(os.Getenv("OPENAI_TIMEOUT_SECONDS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			timeout = time.Duration(parsed) * time.Second
		}
	}
	return timeout
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    *float32        `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Route classifies a query into a retrieval decision. The model answers in
// JSON mode at temperature zero so repeated questions route the same way.
func (c *Client) Route(ctx context.Context, input llm.RouteInput) (llm.Decision, error) {
	messages := BuildRouterMessages(defaultPromptVersion, input)
	temp := float32(0)
	content, usage, err := c.completeOnce(ctx, messages, &temp, 0, &responseFormat{Type: "json_object"})
	if err != nil {
		return llm.Decision{}, err
	}
	logUsage(c.model, "route", usage)
	return parseDecision(content, input.Query)
}

// Synthesize answers a question over the provided document blocks.
func (c *Client) Synthesize(ctx context.Context, input llm.SynthesizeInput) (string, error) {
	messages := BuildSynthesizerMessages(defaultPromptVersion, input)
	temp := synthesisTemperature
	content, usage, err := c.completeOnce(ctx, messages, &temp, synthesisMaxTokens, nil)
	if err != nil {
		return "", err
	}
	logUsage(c.model, "synthesize", usage)
	return string(content), nil
}

// Describe sends an image scan through the vision path of the chat API.
// The model transcribes any text it finds, or describes the scene when the
// scan carries none.
func (c *Client) Describe(ctx context.Context, input llm.DescribeInput) (string, error) {
	if len(input.Data) == 0 {
		return "", fmt.Errorf("describe: empty image data")
	}
	mimeType := strings.TrimSpace(input.MimeType)
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = "image/jpeg"
	}

	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(input.Data)
	reqBody := visionRequest{
		Model:     c.model,
		MaxTokens: describeMaxTokens,
		Messages: []visionMessage{{
			Role: "user",
			Content: []visionPart{
				{Type: "text", Text: describePrompt},
				{Type: "image_url", ImageURL: &visionImageURL{URL: dataURL}},
			},
		}},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	content, usage, err := c.post(ctx, payload)
	if err != nil {
		return "", err
	}
	logUsage(c.model, "describe", usage)
	return string(content), nil
}

type visionRequest struct {
	Model     string          `json:"model"`
	Messages  []visionMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens,omitempty"`
}

type visionMessage struct {
	Role    string       `json:"role"`
	Content []visionPart `json:"content"`
}

type visionPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *visionImageURL `json:"image_url,omitempty"`
}

type visionImageURL struct {
	URL string `json:"url"`
}

func (c *Client) completeOnce(ctx context.Context, messages []Message, temperature *float32, maxTokens int, format *responseFormat) ([]byte, *chatResponseUsage, error) {
	reqMessages := make([]chatMessage, 0, len(messages))
	for _, m := range messages {
		reqMessages = append(reqMessages, chatMessage{Role: m.Role, Content: m.Content})
	}
	reqBody := chatRequest{
		Model:          c.model,
		Messages:       reqMessages,
		Temperature:    temperature,
		MaxTokens:      maxTokens,
		ResponseFormat: format,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, nil, err
	}
	return c.post(ctx, payload)
}

func (c *Client) post(ctx context.Context, payload []byte) ([]byte, *chatResponseUsage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return nil, nil, fmt.Errorf("openai request timeout: %w", err)
		}
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, nil, fmt.Errorf("openai response parse: %w", err)
	}
	if parsed.Error != nil {
		return nil, nil, fmt.Errorf("openai error: %s (%s)", parsed.Error.Message, parsed.Error.Type)
	}
	if len(parsed.Choices) == 0 {
		return nil, nil, fmt.Errorf("openai response missing choices")
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return nil, nil, fmt.Errorf("openai response empty content")
	}
	return []byte(content), toUsage(parsed.Usage), nil
}

type decisionWire struct {
	Tool      string `json:"tool"`
	QueryText string `json:"queryText"`
	Sender    string `json:"sender"`
	EventType string `json:"eventType"`
	Year      any    `json:"year"`
}

func parseDecision(raw []byte, fallbackQuery string) (llm.Decision, error) {
	var wire decisionWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return llm.Decision{}, fmt.Errorf("router decision parse: %w", err)
	}

	tool := strings.ToLower(strings.TrimSpace(wire.Tool))
	switch tool {
	case llm.ToolFetch, llm.ToolSearch:
	default:
		return llm.Decision{}, fmt.Errorf("router decision unknown tool %q", wire.Tool)
	}

	queryText := strings.TrimSpace(wire.QueryText)
	if queryText == "" {
		queryText = fallbackQuery
	}

	return llm.Decision{
		Tool:      tool,
		QueryText: queryText,
		Sender:    strings.TrimSpace(wire.Sender),
		EventType: strings.TrimSpace(wire.EventType),
		Year:      coerceYear(wire.Year),
	}, nil
}

// coerceYear accepts the year however the model serialized it. Anything
// that is not a plausible calendar year collapses to zero.
func coerceYear(raw any) int {
	var year int
	switch v := raw.(type) {
	case nil:
		return 0
	case float64:
		year = int(v)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		year = parsed
	case json.Number:
		parsed, err := v.Int64()
		if err != nil {
			return 0
		}
		year = int(parsed)
	default:
		return 0
	}
	if year < 1000 || year > 9999 {
		return 0
	}
	return year
}

type chatResponseUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

func toUsage(raw *struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}) *chatResponseUsage {
	if raw == nil {
		return nil
	}
	return &chatResponseUsage{
		PromptTokens:     raw.PromptTokens,
		CompletionTokens: raw.CompletionTokens,
		TotalTokens:      raw.TotalTokens,
	}
}

func logUsage(model, op string, usage *chatResponseUsage) {
	if usage == nil {
		log.Printf("llm response model=%s op=%s", model, op)
		return
	}
	log.Printf("llm response model=%s op=%s prompt_tokens=%d completion_tokens=%d total_tokens=%d",
		model, op, usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens)
}

var (
	_ llm.Client    = (*Client)(nil)
	_ llm.Describer = (*Client)(nil)
)
