package domain

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

type PropertySort string

const (
	SortNewest    PropertySort = "newest"
	SortOldest    PropertySort = "oldest"
	SortPriceAsc  PropertySort = "price_asc"
	SortPriceDesc PropertySort = "price_desc"
)

func (s PropertySort) Valid() bool {
	switch s {
	case SortNewest, SortOldest, SortPriceAsc, SortPriceDesc:
		return true
	}
	return false
}

const (
	DefaultPageLimit = 12
	MaxPageLimit     = 100
)

// PropertyFilter is the search over listings. Nil or empty fields match everything.
type PropertyFilter struct {
	Q            string
	City         string
	State        string
	Country      string
	ListingType  ListingType
	PropertyType string
	Statuses     []PropertyStatus
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	MinBeds      *int
	MinBaths     *float64
	MinArea      *float64
	MaxArea      *float64
	Amenities    []string
	Featured     *bool
	OwnerID      *int64

	Sort  PropertySort
	Page  int
	Limit int
}

// Normalize clamps paging and fills defaults.
func (f *PropertyFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
	if !f.Sort.Valid() {
		f.Sort = SortNewest
	}
}

func (f PropertyFilter) Match(p Property) bool {
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, p.Status) {
		return false
	}
	if f.OwnerID != nil && p.OwnerID != *f.OwnerID {
		return false
	}
	if f.Featured != nil && p.Featured != *f.Featured {
		return false
	}
	if f.ListingType != "" && p.ListingType != f.ListingType {
		return false
	}
	if f.PropertyType != "" && !strings.EqualFold(p.Payload.PropertyType, f.PropertyType) {
		return false
	}
	if f.City != "" && !strings.EqualFold(strings.TrimSpace(p.City), strings.TrimSpace(f.City)) {
		return false
	}
	if f.State != "" && !strings.EqualFold(p.Payload.State, f.State) {
		return false
	}
	if f.Country != "" && !strings.EqualFold(p.Payload.Country, f.Country) {
		return false
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	if f.MinBeds != nil && p.Payload.Bedrooms < *f.MinBeds {
		return false
	}
	if f.MinBaths != nil && p.Payload.Bathrooms < *f.MinBaths {
		return false
	}
	if f.MinArea != nil && p.Payload.AreaSqft < *f.MinArea {
		return false
	}
	if f.MaxArea != nil && p.Payload.AreaSqft > *f.MaxArea {
		return false
	}
	if len(f.Amenities) > 0 && !hasAllAmenities(p.Payload.Amenities, f.Amenities) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Q)); q != "" {
		hay := []string{p.Title, p.Payload.Description, p.City, p.Payload.Address}
		found := false
		for _, h := range hay {
			if strings.Contains(strings.ToLower(h), q) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func containsStatus(ss []PropertyStatus, s PropertyStatus) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func hasAllAmenities(have, want []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, a := range have {
		set[strings.ToLower(strings.TrimSpace(a))] = struct{}{}
	}
	for _, w := range want {
		if _, ok := set[strings.ToLower(strings.TrimSpace(w))]; !ok {
			return false
		}
	}
	return true
}

// Apply filters, sorts and pages ps. ps is not modified.
func (f PropertyFilter) Apply(ps []Property) PropertiesPage {
	f.Normalize()
	matched := make([]Property, 0, len(ps))
	for _, p := range ps {
		if f.Match(p) {
			matched = append(matched, p)
		}
	}
	SortProperties(matched, f.Sort)

	total := len(matched)
	start := (f.Page - 1) * f.Limit
	if start > total {
		start = total
	}
	end := start + f.Limit
	if end > total {
		end = total
	}
	pages := total / f.Limit
	if total%f.Limit != 0 {
		pages++
	}
	return PropertiesPage{
		Items:      matched[start:end],
		Total:      total,
		Page:       f.Page,
		Limit:      f.Limit,
		TotalPages: pages,
	}
}

// SortProperties orders in place; ties fall back to id descending.
func SortProperties(ps []Property, by PropertySort) {
	sort.SliceStable(ps, func(i, j int) bool {
		a, b := ps[i], ps[j]
		switch by {
		case SortPriceAsc:
			if c := a.Price.Cmp(b.Price); c != 0 {
				return c < 0
			}
		case SortPriceDesc:
			if c := a.Price.Cmp(b.Price); c != 0 {
				return c > 0
			}
		case SortOldest:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID < b.ID
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		}
		return a.ID > b.ID
	})
}
