package documents

import "time"

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	DocumentID    string    `json:"documentId"`
	FileName      string    `json:"fileName"`
	MimeType      string    `json:"mimeType"`
	SizeBytes     int64     `json:"sizeBytes"`
	SenderName    string    `json:"senderName"`
	RecipientName string    `json:"recipientName,omitempty"`
	EventType     string    `json:"eventType"`
	DocDate       string    `json:"docDate"`
	AIStatus      string    `json:"aiStatus"`
	ThumbnailURL  string    `json:"thumbnailUrl,omitempty"`
	UploadedAt    time.Time `json:"uploadedAt"`
}

func toResponse(doc Document, thumbnailURL string) DocumentResponse {
	return DocumentResponse{
		DocumentID:    doc.ID,
		FileName:      doc.FileName,
		MimeType:      doc.MimeType,
		SizeBytes:     doc.SizeBytes,
		SenderName:    doc.SenderName,
		RecipientName: doc.RecipientName,
		EventType:     doc.EventType,
		DocDate:       doc.DocDate.Format("2006-01-02"),
		AIStatus:      doc.AIStatus,
		ThumbnailURL:  thumbnailURL,
		UploadedAt:    doc.CreatedAt,
	}
}
