package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type PropertyStatus string

const (
	StatusDraft     PropertyStatus = "draft"
	StatusPublished PropertyStatus = "published"
	StatusSold      PropertyStatus = "sold"
	StatusRented    PropertyStatus = "rented"
	StatusArchived  PropertyStatus = "archived"
)

func (s PropertyStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusSold, StatusRented, StatusArchived:
		return true
	}
	return false
}

type ListingType string

const (
	ListingSale ListingType = "sale"
	ListingRent ListingType = "rent"
)

func (t ListingType) Valid() bool { return t == ListingSale || t == ListingRent }

var PropertyTypes = []string{"house", "apartment", "condo", "townhouse", "land", "commercial"}

func ValidPropertyType(t string) bool {
	for _, pt := range PropertyTypes {
		if pt == t {
			return true
		}
	}
	return false
}

// Property is a listing row. Most of the listing detail lives in Payload,
// which is stored as a single JSON column.
type Property struct {
	ID          int64           `json:"id"`
	OwnerID     int64           `json:"owner_id"`
	Title       string          `json:"title"`
	Status      PropertyStatus  `json:"status"`
	ListingType ListingType     `json:"listing_type"`
	Price       decimal.Decimal `json:"price"`
	City        string          `json:"city"`
	Featured    bool            `json:"featured"`
	Payload     PropertyPayload `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type PropertyPayload struct {
	Description  string   `json:"description,omitempty"`
	PropertyType string   `json:"property_type,omitempty"`
	Bedrooms     int      `json:"bedrooms,omitempty"`
	Bathrooms    float64  `json:"bathrooms,omitempty"`
	AreaSqft     float64  `json:"area_sqft,omitempty"`
	Address      string   `json:"address,omitempty"`
	State        string   `json:"state,omitempty"`
	Country      string   `json:"country,omitempty"`
	Zip          string   `json:"zip,omitempty"`
	Lat          *float64 `json:"lat,omitempty"`
	Lon          *float64 `json:"lon,omitempty"`
	YearBuilt    int      `json:"year_built,omitempty"`
	Parking      int      `json:"parking,omitempty"`
	Furnished    bool     `json:"furnished,omitempty"`
	Images       []string `json:"images,omitempty"`
	Amenities    []string `json:"amenities,omitempty"`

	// Extra keeps keys this version does not know about.
	Extra map[string]json.RawMessage `json:"-"`
}

var payloadKeys = map[string]bool{
	"description": true, "property_type": true, "bedrooms": true, "bathrooms": true,
	"area_sqft": true, "address": true, "state": true, "country": true, "zip": true,
	"lat": true, "lon": true, "year_built": true, "parking": true, "furnished": true,
	"images": true, "amenities": true,
}

type payloadAlias PropertyPayload

func (p PropertyPayload) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(payloadAlias(p))
	if err != nil || len(p.Extra) == 0 {
		return known, err
	}
	merged := map[string]json.RawMessage{}
	if err := json.Unmarshal(known, &merged); err != nil {
		return nil, err
	}
	for k, v := range p.Extra {
		if !payloadKeys[k] {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

func (p *PropertyPayload) UnmarshalJSON(b []byte) error {
	var a payloadAlias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(b, &all); err != nil {
		return err
	}
	for k, v := range all {
		if payloadKeys[k] {
			continue
		}
		if a.Extra == nil {
			a.Extra = map[string]json.RawMessage{}
		}
		a.Extra[k] = v
	}
	*p = PropertyPayload(a)
	return nil
}

// PropertyDetail is the public view of a single listing.
type PropertyDetail struct {
	Property
	OwnerName     string  `json:"owner_name"`
	AverageRating float64 `json:"average_rating"`
	ReviewCount   int     `json:"review_count"`
}

type PropertiesPage struct {
	Items      []Property `json:"items"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
	TotalPages int        `json:"total_pages"`
}

type PropertyView struct {
	PropertyID int64
	UserID     *int64
	IP         string
	ViewedAt   time.Time
}
