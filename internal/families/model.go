package families

import "time"

// Family is the tenant every document, setting and quota hangs off.
type Family struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}
