package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"archive-backend/internal/bootstrap"
	"archive-backend/internal/documents"
	"archive-backend/internal/queue"
)

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{BodyLen: 0, BodySHA: ""}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

// ErrMissingIDs indicates a message without a document or family id. Both
// are required: the worker never looks up a document unscoped.
type ErrMissingIDs struct {
	Meta      MessageMeta
	RequestID string
}

func (e ErrMissingIDs) Error() string { return "missing document or family id" }

// ErrProcess indicates ingestion failed after successful parsing.
type ErrProcess struct {
	DocumentID string
	FamilyID   string
	RequestID  string
	Err        error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process document"
	}
	return "process document: " + e.Err.Error()
}

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if strings.TrimSpace(msg.DocumentID) == "" || strings.TrimSpace(msg.FamilyID) == "" {
		return msg, meta, ErrMissingIDs{Meta: meta, RequestID: msg.RequestID}
	}
	return msg, meta, nil
}

type parsedMessageKey struct{}

// WithParsedMessage stores a decoded message in the context for reuse.
func WithParsedMessage(ctx context.Context, msg queue.Message) context.Context {
	return context.WithValue(ctx, parsedMessageKey{}, msg)
}

func parsedMessageFromContext(ctx context.Context) (queue.Message, bool) {
	if ctx == nil {
		return queue.Message{}, false
	}
	msg, ok := ctx.Value(parsedMessageKey{}).(queue.Message)
	return msg, ok
}

// HandleMessage parses, validates, and processes an ingestion job.
func HandleMessage(ctx context.Context, app *bootstrap.App, body string) error {
	if app == nil {
		return errors.New("documents service not configured")
	}
	var processor bootstrap.IngestProcessor
	if app.IngestProcessor != nil {
		processor = app.IngestProcessor
	} else if app.DocumentsService != nil {
		processor = app.DocumentsService
	}
	if processor == nil {
		return errors.New("documents service not configured")
	}

	msg, ok := parsedMessageFromContext(ctx)
	if !ok {
		var err error
		msg, _, err = ParseMessage(body)
		if err != nil {
			return err
		}
	}

	if strings.TrimSpace(msg.DocumentID) == "" || strings.TrimSpace(msg.FamilyID) == "" {
		return ErrMissingIDs{Meta: ComputeMeta(body), RequestID: msg.RequestID}
	}

	ctxWithRequest := documents.WithRequestID(ctx, msg.RequestID)
	if err := processor.ProcessDocument(ctxWithRequest, msg.FamilyID, msg.DocumentID); err != nil {
		return ErrProcess{DocumentID: msg.DocumentID, FamilyID: msg.FamilyID, RequestID: msg.RequestID, Err: err}
	}
	return nil
}
