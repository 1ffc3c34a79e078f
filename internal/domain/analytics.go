package domain

import (
	"encoding/json"
	"regexp"
	"time"
)

const (
	EventPropertyView = "property_view"
	EventSearch       = "search"
	EventLeadCreated  = "lead_created"
	EventWishlistAdd  = "wishlist_add"
)

var eventTypeRe = regexp.MustCompile(`^[a-z_]{2,50}$`)

func ValidEventType(s string) bool { return eventTypeRe.MatchString(s) }

type Event struct {
	ID         int64           `json:"id"`
	EventType  string          `json:"event_type"`
	PropertyID *int64          `json:"property_id,omitempty"`
	UserID     *int64          `json:"user_id,omitempty"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

type EventCount struct {
	EventType string `json:"event_type"`
	Count     int    `json:"count"`
}

type PropertyViewCount struct {
	PropertyID int64  `json:"property_id"`
	Title      string `json:"title"`
	Views      int    `json:"views"`
}

type DayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

type AnalyticsReport struct {
	Days          int                 `json:"days"`
	Events        []EventCount        `json:"events"`
	TopProperties []PropertyViewCount `json:"top_properties"`
	ViewsPerDay   []DayCount          `json:"views_per_day"`
}

type Stats struct {
	Users              int            `json:"users"`
	UsersByRole        map[string]int `json:"users_by_role"`
	PropertiesByStatus map[string]int `json:"properties_by_status"`
	LeadsByStatus      map[string]int `json:"leads_by_status"`
	Reviews            int            `json:"reviews"`
	WishlistSaves      int            `json:"wishlist_saves"`
	ViewsLast30Days    int            `json:"views_last_30_days"`
}
