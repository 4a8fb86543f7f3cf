package documents

import "time"

// AI processing states for a document's context blob.
const (
	AIStatusPending = "pending"
	AIStatusReady   = "ready"
	AIStatusFailed  = "failed"
)

// Document represents one archived memory owned by a family. FamilyID is
// assigned at creation and never changes; every read path filters by it.
// Embedding is always derived from ContextText and the two are only ever
// written together.
type Document struct {
	ID            string
	FamilyID      string
	UploaderID    string
	FileName      string
	MimeType      string
	SizeBytes     int64
	StorageKey    string
	ThumbnailKey  string
	SenderName    string
	RecipientName string
	EventType     string
	DocDate       time.Time
	ContextText   string
	Embedding     []float32
	AIStatus      string
	AIError       string
	CreatedAt     time.Time
}
