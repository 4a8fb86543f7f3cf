package settings

import "time"

// DefaultEventTypes seeds the occasion vocabulary for a new family.
var DefaultEventTypes = []string{"Birthday", "Christmas", "Wedding", "Anniversary", "Graduation", "Other"}

// Settings is the per-family metadata vocabulary. Upload forms offer these
// values and chat routing grounds extracted filters against them.
type Settings struct {
	FamilyID       string
	EventTypes     []string
	SenderNames    []string
	RecipientNames []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Values is a batch of vocabulary additions observed during ingestion.
type Values struct {
	EventTypes     []string
	SenderNames    []string
	RecipientNames []string
}

// IsZero reports whether the batch carries no additions.
func (v Values) IsZero() bool {
	return len(v.EventTypes) == 0 && len(v.SenderNames) == 0 && len(v.RecipientNames) == 0
}
