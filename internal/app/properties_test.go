package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"estate_api/internal/app"
	"estate_api/internal/domain"
)

func listing(id, owner int64, city string, price int64, st domain.PropertyStatus) domain.Property {
	return domain.Property{
		ID: id, OwnerID: owner, Title: "Listing", Status: st, ListingType: domain.ListingSale,
		Price: decimal.NewFromInt(price), City: city,
		CreatedAt: time.Date(2024, 1, int(id), 0, 0, 0, 0, time.UTC),
	}
}

func TestGetProperty_CacheMissThenHit(t *testing.T) {
	repo := newFakeProps(listing(42, 7, "Lisbon", 250000, domain.StatusPublished))
	cache := &fakeCache{}
	ev := &fakeEvents{}
	s := app.NewPropertyService(repo, ev, cache, 10*time.Minute)

	// Miss (first time, populates cache)
	d, err := s.Get(context.Background(), 42, nil, "10.0.0.1")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if d.ID != 42 || d.City != "Lisbon" || d.OwnerName != "Owner" {
		t.Fatalf("unexpected detail: %+v", d)
	}

	// Mutate repo to ensure second read indeed comes from cache
	p := repo.items[42]
	p.City = "SHOULD NOT SEE THIS"
	repo.items[42] = p

	d2, err := s.Get(context.Background(), 42, nil, "10.0.0.1")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if d2.City != "Lisbon" {
		t.Fatalf("expected cached city, got %s", d2.City)
	}
	if repo.detailCalls != 1 {
		t.Fatalf("expected 1 storage read, got %d", repo.detailCalls)
	}
	if len(repo.views) != 2 || ev.count(domain.EventPropertyView) != 2 {
		t.Fatalf("expected 2 views recorded, got %d/%d", len(repo.views), ev.count(domain.EventPropertyView))
	}
}

func TestGetProperty_OwnerViewNotRecorded(t *testing.T) {
	repo := newFakeProps(listing(1, 7, "Porto", 1000, domain.StatusPublished))
	ev := &fakeEvents{}
	s := app.NewPropertyService(repo, ev, &fakeCache{}, time.Minute)

	owner := agent(7)
	if _, err := s.Get(context.Background(), 1, &owner, ""); err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(repo.views) != 0 || ev.count(domain.EventPropertyView) != 0 {
		t.Fatalf("owner view should not be recorded")
	}
}

func TestGetProperty_UnpublishedHidden(t *testing.T) {
	repo := newFakeProps(listing(1, 7, "Porto", 1000, domain.StatusDraft))
	s := app.NewPropertyService(repo, nil, &fakeCache{}, time.Minute)
	ctx := context.Background()

	if _, err := s.Get(ctx, 1, nil, ""); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("anonymous: expected not found, got %v", err)
	}
	other := user(8)
	if _, err := s.Get(ctx, 1, &other, ""); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("other user: expected not found, got %v", err)
	}
	owner := agent(7)
	if _, err := s.Get(ctx, 1, &owner, ""); err != nil {
		t.Fatalf("owner: %v", err)
	}
	adm := admin(1)
	if _, err := s.Get(ctx, 1, &adm, ""); err != nil {
		t.Fatalf("admin: %v", err)
	}
}

func TestSearch_PublicSeesPublishedOnly(t *testing.T) {
	repo := newFakeProps(
		listing(1, 7, "Porto", 100, domain.StatusPublished),
		listing(2, 7, "Porto", 200, domain.StatusDraft),
		listing(3, 7, "Porto", 300, domain.StatusSold),
	)
	ev := &fakeEvents{}
	s := app.NewPropertyService(repo, ev, &fakeCache{}, time.Minute)

	page, err := s.Search(context.Background(), domain.PropertyFilter{Statuses: []domain.PropertyStatus{domain.StatusDraft}}, nil)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if page.Total != 1 || page.Items[0].ID != 1 {
		t.Fatalf("unexpected page: %+v", page)
	}
	if ev.count(domain.EventSearch) != 1 {
		t.Fatalf("expected search event")
	}

	adm := admin(1)
	page, err = s.Search(context.Background(), domain.PropertyFilter{}, &adm)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if page.Total != 3 {
		t.Fatalf("admin should see every status, got %d", page.Total)
	}
}

func TestCreateProperty(t *testing.T) {
	repo := newFakeProps()
	cache := &fakeCache{}
	s := app.NewPropertyService(repo, nil, cache, time.Minute)
	ctx := context.Background()
	in := app.PropertyInput{
		Title:       "Sunny <b>flat</b>",
		ListingType: domain.ListingRent,
		Price:       decimal.RequireFromString("1200.456"),
		City:        "Madrid",
		Featured:    ptr(true),
		Payload:     domain.PropertyPayload{PropertyType: "apartment", Bedrooms: 2, Amenities: []string{"Gym", "gym", "Pool"}},
	}

	if _, err := s.Create(ctx, user(3), in); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("plain user: expected forbidden, got %v", err)
	}

	_ = cache.Set(ctx, "locations:all", []domain.Location{{City: "Old", Count: 1}}, 60)
	p, err := s.Create(ctx, agent(7), in)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if p.OwnerID != 7 || p.Status != domain.StatusPublished || p.Title != "Sunny flat" {
		t.Fatalf("unexpected property: %+v", p)
	}
	if p.Featured {
		t.Fatalf("agents cannot feature their own listing")
	}
	if !p.Price.Equal(decimal.RequireFromString("1200.46")) {
		t.Fatalf("price not rounded: %s", p.Price)
	}
	if len(p.Payload.Amenities) != 2 {
		t.Fatalf("amenities not de-duplicated: %v", p.Payload.Amenities)
	}
	if cache.has("locations:all") {
		t.Fatalf("locations cache not invalidated")
	}
}

func TestCreateProperty_Validation(t *testing.T) {
	s := app.NewPropertyService(newFakeProps(), nil, &fakeCache{}, time.Minute)
	_, err := s.Create(context.Background(), agent(7), app.PropertyInput{
		Title:       "ab",
		ListingType: "lease",
		Price:       decimal.NewFromInt(-1),
		Payload:     domain.PropertyPayload{PropertyType: "castle"},
	})
	var ve *app.ValidationError
	if !errors.As(err, &ve) || !errors.Is(err, domain.ErrInvalid) {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, f := range []string{"title", "listing_type", "city", "price", "payload.property_type"} {
		if _, ok := ve.Fields[f]; !ok {
			t.Fatalf("missing field %q in %v", f, ve.Fields)
		}
	}
}

func TestUpdateProperty_MergesPayload(t *testing.T) {
	base := listing(1, 7, "Porto", 1000, domain.StatusPublished)
	base.Payload = domain.PropertyPayload{Bedrooms: 3, Description: "old", Extra: map[string]json.RawMessage{"view": json.RawMessage(`"sea"`)}}
	repo := newFakeProps(base)
	cache := &fakeCache{}
	s := app.NewPropertyService(repo, nil, cache, time.Minute)
	ctx := context.Background()
	_ = cache.Set(ctx, "property:1", domain.PropertyDetail{Property: base}, 60)

	p, err := s.Update(ctx, agent(7), 1, app.PropertyPatch{
		Title:   ptr("New title"),
		Payload: json.RawMessage(`{"description":"new","bathrooms":2}`),
	})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if p.Title != "New title" || p.Payload.Description != "new" || p.Payload.Bedrooms != 3 || p.Payload.Bathrooms != 2 {
		t.Fatalf("unexpected merge: %+v", p.Payload)
	}
	if string(p.Payload.Extra["view"]) != `"sea"` {
		t.Fatalf("unknown payload key lost: %v", p.Payload.Extra)
	}
	if cache.has("property:1") {
		t.Fatalf("detail cache not invalidated")
	}

	if _, err := s.Update(ctx, agent(8), 1, app.PropertyPatch{Title: ptr("nope nope")}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := s.Update(ctx, agent(7), 1, app.PropertyPatch{Payload: json.RawMessage(`[1]`)}); !errors.Is(err, domain.ErrInvalid) {
		t.Fatalf("expected invalid payload, got %v", err)
	}
}

func TestDeleteProperty(t *testing.T) {
	repo := newFakeProps(listing(1, 7, "Porto", 1000, domain.StatusPublished))
	s := app.NewPropertyService(repo, nil, &fakeCache{}, time.Minute)
	ctx := context.Background()

	if err := s.Delete(ctx, agent(8), 1); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := s.Delete(ctx, admin(1), 1); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if err := s.Delete(ctx, admin(1), 1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSimilar_NearestPriceFirst(t *testing.T) {
	rent := listing(5, 7, "Porto", 500, domain.StatusPublished)
	rent.ListingType = domain.ListingRent
	repo := newFakeProps(
		listing(1, 7, "Porto", 1000, domain.StatusPublished),
		listing(2, 7, "Porto", 1900, domain.StatusPublished),
		listing(3, 7, "Porto", 1100, domain.StatusPublished),
		listing(4, 7, "Faro", 1000, domain.StatusPublished),
		rent,
		listing(6, 7, "Porto", 1000, domain.StatusDraft),
	)
	s := app.NewPropertyService(repo, nil, &fakeCache{}, time.Minute)

	out, err := s.Similar(context.Background(), 1, nil, 0)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(out) != 2 || out[0].ID != 3 || out[1].ID != 2 {
		t.Fatalf("unexpected similar: %+v", out)
	}
}

func TestFeatured(t *testing.T) {
	a := listing(1, 7, "Porto", 1000, domain.StatusPublished)
	a.Featured = true
	b := listing(2, 7, "Porto", 1000, domain.StatusDraft)
	b.Featured = true
	s := app.NewPropertyService(newFakeProps(a, b, listing(3, 7, "Porto", 1, domain.StatusPublished)), nil, &fakeCache{}, time.Minute)

	out, err := s.Featured(context.Background(), 0)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(out) != 1 || out[0].ID != 1 {
		t.Fatalf("unexpected featured: %+v", out)
	}
}

func TestSearchLocations(t *testing.T) {
	repo := newFakeProps(
		listing(1, 7, "Porto", 1, domain.StatusPublished),
		listing(2, 7, "Porto", 1, domain.StatusPublished),
		listing(3, 7, "Lisbon", 1, domain.StatusPublished),
		listing(4, 7, "Oporto Beach", 1, domain.StatusPublished),
	)
	cache := &fakeCache{}
	s := app.NewPropertyService(repo, nil, cache, time.Minute)

	out, err := s.SearchLocations(context.Background(), "por", 10)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(out) != 2 || out[0].City != "Porto" || out[1].City != "Oporto Beach" {
		t.Fatalf("unexpected locations: %+v", out)
	}
	if !cache.has("locations:all") {
		t.Fatalf("locations not cached")
	}
	if out, _ := s.SearchLocations(context.Background(), "zzz", 10); len(out) != 0 {
		t.Fatalf("expected no match, got %+v", out)
	}
}

func TestProperty_MarkupOnlyTextRejected(t *testing.T) {
	repo := newFakeProps(listing(1, 7, "Porto", 1000, domain.StatusPublished))
	s := app.NewPropertyService(repo, nil, &fakeCache{}, time.Minute)
	ctx := context.Background()

	_, err := s.Create(ctx, agent(7), app.PropertyInput{
		Title: "<b></b>", ListingType: domain.ListingSale, Price: decimal.NewFromInt(1), City: "<i> </i>",
	})
	var ve *app.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("create: expected validation error, got %v", err)
	}
	for _, f := range []string{"title", "city"} {
		if _, ok := ve.Fields[f]; !ok {
			t.Fatalf("missing field %q in %v", f, ve.Fields)
		}
	}

	// min length is checked after tags are stripped
	if _, err := s.Create(ctx, agent(7), app.PropertyInput{
		Title: "<em>ab</em>", ListingType: domain.ListingSale, Price: decimal.NewFromInt(1), City: "Porto",
	}); !errors.Is(err, domain.ErrInvalid) {
		t.Fatalf("short title: expected invalid, got %v", err)
	}

	if _, err := s.Update(ctx, agent(7), 1, app.PropertyPatch{Title: ptr("<b></b>")}); !errors.Is(err, domain.ErrInvalid) {
		t.Fatalf("patch title: expected invalid, got %v", err)
	}
	if _, err := s.Update(ctx, agent(7), 1, app.PropertyPatch{City: ptr("<p> </p>")}); !errors.Is(err, domain.ErrInvalid) {
		t.Fatalf("patch city: expected invalid, got %v", err)
	}
	stored, _ := repo.GetProperty(ctx, 1)
	if stored.Title != "Listing" || stored.City != "Porto" {
		t.Fatalf("rejected patch was stored: %+v", stored)
	}
}

func TestSimilar_HiddenBaseListing(t *testing.T) {
	draft := listing(1, 7, "Porto", 1000, domain.StatusDraft)
	repo := newFakeProps(draft, listing(2, 8, "Porto", 1100, domain.StatusPublished))
	s := app.NewPropertyService(repo, nil, &fakeCache{}, time.Minute)
	ctx := context.Background()

	for name, who := range map[string]*domain.Principal{"anonymous": nil, "stranger": ptr(user(3)), "other agent": ptr(agent(8))} {
		if _, err := s.Similar(ctx, 1, who, 0); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("%s: expected not found, got %v", name, err)
		}
	}
	for name, who := range map[string]*domain.Principal{"owner": ptr(agent(7)), "admin": ptr(admin(1))} {
		out, err := s.Similar(ctx, 1, who, 0)
		if err != nil || len(out) != 1 || out[0].ID != 2 {
			t.Fatalf("%s: %+v %v", name, out, err)
		}
	}
}
