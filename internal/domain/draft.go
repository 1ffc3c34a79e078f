package domain

import (
	"encoding/json"
	"time"
)

// Draft is an autosaved, unvalidated listing form. Payload is whatever the
// client sent; it is only checked when the draft is published.
type Draft struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"user_id"`
	PropertyID *int64          `json:"property_id,omitempty"`
	Title      string          `json:"title"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
