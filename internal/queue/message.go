package queue

import "encoding/json"

// Message is the ingestion job sent to downstream queue consumers.
// FamilyID travels with the document id so workers scope every lookup
// to the owning tenant.
type Message struct {
	DocumentID string `json:"documentId"`
	FamilyID   string `json:"familyId"`
	RequestID  string `json:"requestId"`
	EnqueuedAt string `json:"enqueuedAt"`
	Version    int    `json:"version"`
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
