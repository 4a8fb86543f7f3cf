package chat

import (
	"strings"

	"archive-backend/internal/documents"
	"archive-backend/internal/llm"
)

// AskRequest is the inbound question. ConversationHistory is optional and
// ordered oldest first.
type AskRequest struct {
	Query               string        `json:"query"`
	ConversationHistory []TurnPayload `json:"conversationHistory"`
}

// TurnPayload is one prior exchange in the conversation.
type TurnPayload struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// turns converts the history to model turns, dropping blank entries.
func (r AskRequest) turns() []llm.Turn {
	turns := make([]llm.Turn, 0, len(r.ConversationHistory))
	for _, t := range r.ConversationHistory {
		role := strings.TrimSpace(t.Role)
		content := strings.TrimSpace(t.Content)
		if role == "" || content == "" {
			continue
		}
		turns = append(turns, llm.Turn{Role: role, Content: content})
	}
	return turns
}

// AskResponse is the outbound answer. Documents lists only what the answer
// actually rests on; Tool is for request logging, never serialized.
type AskResponse struct {
	Answer    string            `json:"answer"`
	Documents []DocumentSummary `json:"documents,omitempty"`
	Tool      string            `json:"-"`
}

// DocumentSummary is the reference card for one document in an answer.
type DocumentSummary struct {
	ID           string `json:"id"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	SenderName   string `json:"senderName"`
	EventType    string `json:"eventType"`
	DocDate      string `json:"docDate"`
}

func toSummary(doc documents.Document, thumbnailURL string) DocumentSummary {
	return DocumentSummary{
		ID:           doc.ID,
		ThumbnailURL: thumbnailURL,
		SenderName:   doc.SenderName,
		EventType:    doc.EventType,
		DocDate:      doc.DocDate.Format("2006-01-02"),
	}
}
