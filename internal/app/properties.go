package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"estate_api/internal/domain"
)

type PropertyInput struct {
	Title       string                 `json:"title" validate:"required,min=3,max=200"`
	Status      domain.PropertyStatus  `json:"status" validate:"omitempty,oneof=draft published sold rented archived"`
	ListingType domain.ListingType     `json:"listing_type" validate:"required,oneof=sale rent"`
	Price       decimal.Decimal        `json:"price"`
	City        string                 `json:"city" validate:"required,max=120"`
	Featured    *bool                  `json:"featured"`
	Payload     domain.PropertyPayload `json:"payload"`
}

type PropertyPatch struct {
	Title       *string                `json:"title" validate:"omitempty,min=3,max=200"`
	Status      *domain.PropertyStatus `json:"status" validate:"omitempty,oneof=draft published sold rented archived"`
	ListingType *domain.ListingType    `json:"listing_type" validate:"omitempty,oneof=sale rent"`
	Price       *decimal.Decimal       `json:"price"`
	City        *string                `json:"city" validate:"omitempty,min=1,max=120"`
	Featured    *bool                  `json:"featured"`
	// Payload is merged key by key into the stored payload.
	Payload json.RawMessage `json:"payload"`
}

func checkPayload(p domain.PropertyPayload, ve *ValidationError) {
	if p.PropertyType != "" && !domain.ValidPropertyType(p.PropertyType) {
		ve.add("payload.property_type", "must be one of: "+strings.Join(domain.PropertyTypes, " "))
	}
	if p.Bedrooms < 0 {
		ve.add("payload.bedrooms", "must be >= 0")
	}
	if p.Bathrooms < 0 {
		ve.add("payload.bathrooms", "must be >= 0")
	}
	if p.AreaSqft < 0 {
		ve.add("payload.area_sqft", "must be >= 0")
	}
	if p.Lat != nil && (*p.Lat < -90 || *p.Lat > 90) {
		ve.add("payload.lat", "must be between -90 and 90")
	}
	if p.Lon != nil && (*p.Lon < -180 || *p.Lon > 180) {
		ve.add("payload.lon", "must be between -180 and 180")
	}
	if len(p.Images) > 50 {
		ve.add("payload.images", "must be at most 50")
	}
}

func (in PropertyInput) validate() error {
	ve := &ValidationError{}
	if err := Validate(in); err != nil {
		if !errors.As(err, &ve) {
			return err
		}
	}
	if in.Price.IsNegative() {
		ve.add("price", "must be >= 0")
	}
	checkPayload(in.Payload, ve)
	return ve.orNil()
}

func cleanPayload(p domain.PropertyPayload) domain.PropertyPayload {
	p.Description = cleanText(p.Description)
	p.Address = cleanText(p.Address)
	amen := p.Amenities[:0:0]
	seen := map[string]bool{}
	for _, a := range p.Amenities {
		a = cleanText(a)
		if a == "" || seen[strings.ToLower(a)] {
			continue
		}
		seen[strings.ToLower(a)] = true
		amen = append(amen, a)
	}
	p.Amenities = amen
	return p
}

// mergePayload overlays the keys present in patch onto cur.
func mergePayload(cur domain.PropertyPayload, patch json.RawMessage) (domain.PropertyPayload, error) {
	if len(patch) == 0 || string(patch) == "null" {
		return cur, nil
	}
	var over map[string]json.RawMessage
	if err := json.Unmarshal(patch, &over); err != nil {
		return cur, domain.Invalid("payload must be a JSON object")
	}
	b, err := json.Marshal(cur)
	if err != nil {
		return cur, err
	}
	base := map[string]json.RawMessage{}
	if err := json.Unmarshal(b, &base); err != nil {
		return cur, err
	}
	for k, v := range over {
		if string(v) == "null" {
			delete(base, k)
			continue
		}
		base[k] = v
	}
	merged, err := json.Marshal(base)
	if err != nil {
		return cur, err
	}
	var out domain.PropertyPayload
	if err := json.Unmarshal(merged, &out); err != nil {
		return cur, domain.Invalid("payload: " + err.Error())
	}
	return out, nil
}

type PropertyService struct {
	repo     domain.PropertyRepository
	events   domain.AnalyticsRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewPropertyService(r domain.PropertyRepository, ev domain.AnalyticsRepository, c domain.Cache, ttl time.Duration) *PropertyService {
	return &PropertyService{repo: r, events: ev, cache: c, cacheTTL: ttl}
}

const locationsKey = "locations:all"

func propertyKey(id int64) string { return fmt.Sprintf("property:%d", id) }

func (s *PropertyService) invalidate(ctx context.Context, id int64) {
	if err := s.cache.Del(ctx, propertyKey(id), locationsKey); err != nil {
		log.Warn().Err(err).Int64("property_id", id).Msg("cache invalidation failed")
	}
}

func (s *PropertyService) track(ctx context.Context, e domain.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.RecordEvent(ctx, e); err != nil {
		log.Warn().Err(err).Str("event", e.EventType).Msg("record analytics event failed")
	}
}

func canManage(who *domain.Principal, p domain.Property) bool {
	return who != nil && (who.IsAdmin() || who.UserID == p.OwnerID)
}

// visibleProperty loads a listing, reporting unpublished ones as missing to
// anyone but their owner and admins.
func visibleProperty(ctx context.Context, repo domain.PropertyRepository, who *domain.Principal, id int64) (domain.Property, error) {
	p, err := repo.GetProperty(ctx, id)
	if err != nil {
		return domain.Property{}, err
	}
	if p.Status != domain.StatusPublished && !canManage(who, p) {
		return domain.Property{}, fmt.Errorf("property %d: %w", id, domain.ErrNotFound)
	}
	return p, nil
}

// Search runs f over the visible listings. Anonymous and plain users only
// ever see published listings; admins may ask for any status.
func (s *PropertyService) Search(ctx context.Context, f domain.PropertyFilter, who *domain.Principal) (domain.PropertiesPage, error) {
	if !who.IsAdmin() {
		f.Statuses = []domain.PropertyStatus{domain.StatusPublished}
	}
	all, err := s.repo.ListProperties(ctx, f.Statuses)
	if err != nil {
		return domain.PropertiesPage{}, err
	}
	page := f.Apply(all)
	if !who.IsAdmin() {
		meta, _ := json.Marshal(map[string]any{"q": f.Q, "city": f.City, "results": page.Total})
		e := domain.Event{EventType: domain.EventSearch, Metadata: meta}
		if who != nil {
			e.UserID = &who.UserID
		}
		s.track(ctx, e)
	}
	return page, nil
}

// Mine lists the caller's own listings in every status.
func (s *PropertyService) Mine(ctx context.Context, who domain.Principal, f domain.PropertyFilter) (domain.PropertiesPage, error) {
	all, err := s.repo.ListProperties(ctx, f.Statuses)
	if err != nil {
		return domain.PropertiesPage{}, err
	}
	f.OwnerID = &who.UserID
	return f.Apply(all), nil
}

func (s *PropertyService) Featured(ctx context.Context, limit int) ([]domain.Property, error) {
	if limit <= 0 {
		limit = 6
	}
	if limit > 24 {
		limit = 24
	}
	all, err := s.repo.ListProperties(ctx, []domain.PropertyStatus{domain.StatusPublished})
	if err != nil {
		return nil, err
	}
	yes := true
	return domain.PropertyFilter{Featured: &yes, Limit: limit}.Apply(all).Items, nil
}

// Get returns the detail view. Listings that are not published are only
// visible to their owner and to admins; everybody else gets ErrNotFound.
func (s *PropertyService) Get(ctx context.Context, id int64, who *domain.Principal, ip string) (domain.PropertyDetail, error) {
	key := propertyKey(id)
	var d domain.PropertyDetail
	if ok, err := s.cache.Get(ctx, key, &d); !ok || err != nil {
		d, err = s.repo.GetPropertyDetail(ctx, id)
		if err != nil {
			return domain.PropertyDetail{}, err
		}
		_ = s.cache.Set(ctx, key, d, int(s.cacheTTL.Seconds()))
	}
	if d.Status != domain.StatusPublished && !canManage(who, d.Property) {
		return domain.PropertyDetail{}, fmt.Errorf("property %d: %w", id, domain.ErrNotFound)
	}
	if who == nil || who.UserID != d.OwnerID {
		v := domain.PropertyView{PropertyID: id, IP: ip}
		e := domain.Event{EventType: domain.EventPropertyView, PropertyID: &d.ID}
		if who != nil {
			v.UserID, e.UserID = &who.UserID, &who.UserID
		}
		if err := s.repo.RecordView(ctx, v); err != nil {
			log.Warn().Err(err).Int64("property_id", id).Msg("record view failed")
		}
		s.track(ctx, e)
	}
	return d, nil
}

// Similar returns published listings in the same city with the same
// listing type, closest price first.
func (s *PropertyService) Similar(ctx context.Context, id int64, who *domain.Principal, limit int) ([]domain.Property, error) {
	if limit <= 0 {
		limit = 4
	}
	if limit > 20 {
		limit = 20
	}
	base, err := visibleProperty(ctx, s.repo, who, id)
	if err != nil {
		return nil, err
	}
	all, err := s.repo.ListProperties(ctx, []domain.PropertyStatus{domain.StatusPublished})
	if err != nil {
		return nil, err
	}
	f := domain.PropertyFilter{City: base.City, ListingType: base.ListingType}
	out := make([]domain.Property, 0, limit)
	for _, p := range all {
		if p.ID != base.ID && f.Match(p) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		di := out[i].Price.Sub(base.Price).Abs()
		dj := out[j].Price.Sub(base.Price).Abs()
		if c := di.Cmp(dj); c != 0 {
			return c < 0
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *PropertyService) Create(ctx context.Context, who domain.Principal, in PropertyInput) (domain.Property, error) {
	if !who.Role.CanList() {
		return domain.Property{}, fmt.Errorf("%w: only agents can create listings", domain.ErrForbidden)
	}
	p, err := s.build(who, in)
	if err != nil {
		return domain.Property{}, err
	}
	p.OwnerID = who.UserID
	created, err := s.repo.CreateProperty(ctx, p)
	if err != nil {
		return domain.Property{}, err
	}
	s.invalidate(ctx, created.ID)
	log.Info().Int64("property_id", created.ID).Int64("owner_id", who.UserID).Msg("property created")
	return created, nil
}

func (s *PropertyService) build(who domain.Principal, in PropertyInput) (domain.Property, error) {
	if in.Status == "" {
		in.Status = domain.StatusPublished
	}
	sanitize(&in.Title, &in.City)
	if err := in.validate(); err != nil {
		return domain.Property{}, err
	}
	p := domain.Property{
		Title:       in.Title,
		Status:      in.Status,
		ListingType: in.ListingType,
		Price:       in.Price.Round(2),
		City:        in.City,
		Payload:     cleanPayload(in.Payload),
	}
	if in.Featured != nil && who.IsAdmin() {
		p.Featured = *in.Featured
	}
	return p, nil
}

func (s *PropertyService) load(ctx context.Context, who domain.Principal, id int64) (domain.Property, error) {
	p, err := s.repo.GetProperty(ctx, id)
	if err != nil {
		return domain.Property{}, err
	}
	if !canManage(&who, p) {
		return domain.Property{}, fmt.Errorf("%w: not the owner of property %d", domain.ErrForbidden, id)
	}
	return p, nil
}

func (s *PropertyService) Update(ctx context.Context, who domain.Principal, id int64, in PropertyPatch) (domain.Property, error) {
	in.Title, in.City = sanitized(in.Title), sanitized(in.City)
	if err := Validate(in); err != nil {
		return domain.Property{}, err
	}
	p, err := s.load(ctx, who, id)
	if err != nil {
		return domain.Property{}, err
	}
	if p, err = applyPatch(p, in, who.IsAdmin()); err != nil {
		return domain.Property{}, err
	}
	out, err := s.repo.UpdateProperty(ctx, p)
	if err != nil {
		return domain.Property{}, err
	}
	s.invalidate(ctx, id)
	return out, nil
}

func applyPatch(p domain.Property, in PropertyPatch, admin bool) (domain.Property, error) {
	if in.Title != nil {
		p.Title = *in.Title
	}
	if in.Status != nil {
		p.Status = *in.Status
	}
	if in.ListingType != nil {
		p.ListingType = *in.ListingType
	}
	if in.City != nil {
		p.City = *in.City
	}
	if in.Featured != nil && admin {
		p.Featured = *in.Featured
	}
	ve := &ValidationError{}
	if in.Price != nil {
		if in.Price.IsNegative() {
			ve.add("price", "must be >= 0")
		}
		p.Price = in.Price.Round(2)
	}
	merged, err := mergePayload(p.Payload, in.Payload)
	if err != nil {
		return p, err
	}
	checkPayload(merged, ve)
	if err := ve.orNil(); err != nil {
		return p, err
	}
	p.Payload = cleanPayload(merged)
	return p, nil
}

func (s *PropertyService) Delete(ctx context.Context, who domain.Principal, id int64) error {
	if _, err := s.load(ctx, who, id); err != nil {
		return err
	}
	if err := s.repo.DeleteProperty(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	log.Info().Int64("property_id", id).Int64("by", who.UserID).Msg("property deleted")
	return nil
}

func (s *PropertyService) SetStatus(ctx context.Context, id int64, st domain.PropertyStatus) error {
	if !st.Valid() {
		return domain.Invalid("invalid status " + string(st))
	}
	if err := s.repo.SetPropertyStatus(ctx, id, st); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *PropertyService) SetFeatured(ctx context.Context, id int64, featured bool) error {
	if err := s.repo.SetPropertyFeatured(ctx, id, featured); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

// Invalidate drops cached views of a listing after writes made elsewhere
// (reviews, draft publishing).
func (s *PropertyService) Invalidate(ctx context.Context, id int64) { s.invalidate(ctx, id) }

func (s *PropertyService) Locations(ctx context.Context) ([]domain.Location, error) {
	var out []domain.Location
	if ok, _ := s.cache.Get(ctx, locationsKey, &out); ok {
		return out, nil
	}
	out, err := s.repo.ListLocations(ctx)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, locationsKey, out, int(s.cacheTTL.Seconds()))
	return out, nil
}

// SearchLocations autocompletes city names: prefix matches first, then
// substring matches, each group by listing count.
func (s *PropertyService) SearchLocations(ctx context.Context, q string, limit int) ([]domain.Location, error) {
	if limit <= 0 || limit > 10 {
		limit = 10
	}
	all, err := s.Locations(ctx)
	if err != nil {
		return nil, err
	}
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		if len(all) > limit {
			all = all[:limit]
		}
		return all, nil
	}
	var prefix, inner []domain.Location
	for _, l := range all {
		c := strings.ToLower(l.City)
		switch {
		case strings.HasPrefix(c, q):
			prefix = append(prefix, l)
		case strings.Contains(c, q):
			inner = append(inner, l)
		}
	}
	out := append(prefix, inner...)
	if len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []domain.Location{}
	}
	return out, nil
}
