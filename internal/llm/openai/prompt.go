package openai

import (
	"fmt"
	"log"
	"strings"

	"archive-backend/internal/llm"
)

// Message represents an OpenAI chat message.
type Message struct {
	Role    string
	Content string
}

const (
	defaultPromptVersion = "v1"

	// historyLimit caps how many prior turns are forwarded to the model.
	historyLimit = 6
)

// BuildRouterMessages creates the chat messages for a routing request.
// The tenant vocabulary is substituted into the system prompt so the model
// grounds sender and event values against names that exist in the archive.
func BuildRouterMessages(promptVersion string, input llm.RouteInput) []Message {
	system, known := llm.RouterPrompt(promptVersion)
	if !known && strings.TrimSpace(promptVersion) != "" {
		log.Printf("unknown router prompt version %q, using %s", promptVersion, defaultPromptVersion)
	}
	system = strings.ReplaceAll(system, "{{SENDERS}}", joinVocab(input.Vocab.SenderNames))
	system = strings.ReplaceAll(system, "{{EVENT_TYPES}}", joinVocab(input.Vocab.EventTypes))

	messages := []Message{{Role: "system", Content: system}}
	messages = appendHistory(messages, input.History)
	return append(messages, Message{Role: "user", Content: input.Query})
}

// BuildSynthesizerMessages creates the chat messages for answer synthesis.
// Retrieved documents are rendered as numbered blocks ahead of the question
// so citations in the answer can refer back to them.
func BuildSynthesizerMessages(promptVersion string, input llm.SynthesizeInput) []Message {
	system, known := llm.SynthesizerPrompt(promptVersion)
	if !known && strings.TrimSpace(promptVersion) != "" {
		log.Printf("unknown synthesizer prompt version %q, using %s", promptVersion, defaultPromptVersion)
	}

	messages := []Message{{Role: "system", Content: system}}
	messages = appendHistory(messages, input.History)
	return append(messages, Message{Role: "user", Content: buildSynthesisUserPrompt(input)})
}

func buildSynthesisUserPrompt(input llm.SynthesizeInput) string {
	var b strings.Builder
	for _, block := range input.Blocks {
		fmt.Fprintf(&b, "[Document %d] From %s, %s (%s):\n%s\n\n",
			block.Ordinal, block.Sender, block.EventType,
			block.DocDate.Format("2006-01-02"), strings.TrimSpace(block.Text))
	}
	b.WriteString("Question: ")
	b.WriteString(input.Query)
	return b.String()
}

func appendHistory(messages []Message, history []llm.Turn) []Message {
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	for _, turn := range history {
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		role := strings.ToLower(strings.TrimSpace(turn.Role))
		if role != "assistant" {
			role = "user"
		}
		messages = append(messages, Message{Role: role, Content: content})
	}
	return messages
}

func joinVocab(values []string) string {
	cleaned := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) == 0 {
		return "(none yet)"
	}
	return strings.Join(cleaned, ", ")
}
