package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"estate_api/internal/app"
	"estate_api/internal/domain"
)

func TestDrafts_PublishNew(t *testing.T) {
	r := newStore(t)
	ctx := context.Background()
	owner := mustUser(t, r, "agent@example.com", domain.RoleAgent)
	other := mustUser(t, r, "other@example.com", domain.RoleAgent)
	props := app.NewPropertyService(r, nil, &fakeCache{}, time.Minute)
	s := app.NewDraftService(r, props)

	d, err := s.Create(ctx, owner, app.DraftInput{Title: ptr("Beach house"), Payload: json.RawMessage(`{"listing_type":"sale"}`)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Get(ctx, other, d.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("other agent: expected not found, got %v", err)
	}

	// incomplete draft does not publish
	if _, err := s.Publish(ctx, owner, d.ID); !errors.Is(err, domain.ErrInvalid) {
		t.Fatalf("expected invalid, got %v", err)
	}

	d, err = s.Update(ctx, owner, d.ID, app.DraftInput{
		Payload: json.RawMessage(`{"listing_type":"sale","price":"350000","city":"Faro","payload":{"bedrooms":4,"pier":true}}`),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	p, err := s.Publish(ctx, owner, d.ID)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if p.ID == 0 || p.Title != "Beach house" || p.City != "Faro" || p.Status != domain.StatusPublished || p.OwnerID != owner.UserID {
		t.Fatalf("unexpected property: %+v", p)
	}
	if _, err := s.Get(ctx, owner, d.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("draft should be gone, got %v", err)
	}
	stored, err := r.GetProperty(ctx, p.ID)
	if err != nil || stored.Payload.Bedrooms != 4 || string(stored.Payload.Extra["pier"]) != "true" {
		t.Fatalf("stored: %+v %v", stored.Payload, err)
	}
}

func TestDrafts_PublishOverExisting(t *testing.T) {
	r := newStore(t)
	ctx := context.Background()
	owner := mustUser(t, r, "agent@example.com", domain.RoleAgent)
	other := mustUser(t, r, "other@example.com", domain.RoleAgent)
	existing := mustProperty(t, r, owner.UserID, domain.StatusPublished)
	props := app.NewPropertyService(r, nil, &fakeCache{}, time.Minute)
	s := app.NewDraftService(r, props)

	if _, err := s.Create(ctx, other, app.DraftInput{PropertyID: &existing.ID}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("foreign listing: expected forbidden, got %v", err)
	}
	if _, err := s.Create(ctx, owner, app.DraftInput{Payload: json.RawMessage(`"text"`)}); !errors.Is(err, domain.ErrInvalid) {
		t.Fatalf("non-object payload: expected invalid, got %v", err)
	}

	d, err := s.Create(ctx, owner, app.DraftInput{
		PropertyID: &existing.ID,
		Payload:    json.RawMessage(`{"title":"Renovated home","listing_type":"rent","price":1500,"city":"Porto"}`),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	p, err := s.Publish(ctx, owner, d.ID)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if p.ID != existing.ID || p.Title != "Renovated home" || p.ListingType != domain.ListingRent {
		t.Fatalf("unexpected property: %+v", p)
	}
	list, err := s.List(ctx, owner)
	if err != nil || len(list) != 0 {
		t.Fatalf("drafts left: %+v %v", list, err)
	}
}

func TestDrafts_Delete(t *testing.T) {
	r := newStore(t)
	ctx := context.Background()
	owner := mustUser(t, r, "agent@example.com", domain.RoleAgent)
	other := mustUser(t, r, "other@example.com", domain.RoleAgent)
	s := app.NewDraftService(r, app.NewPropertyService(r, nil, &fakeCache{}, time.Minute))

	d, err := s.Create(ctx, owner, app.DraftInput{Title: ptr("tmp")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Delete(ctx, other, d.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("other: expected not found, got %v", err)
	}
	if err := s.Delete(ctx, owner, d.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestDrafts_UpdateKeepsAbsentFields(t *testing.T) {
	r := newStore(t)
	ctx := context.Background()
	owner := mustUser(t, r, "agent@example.com", domain.RoleAgent)
	s := app.NewDraftService(r, app.NewPropertyService(r, nil, &fakeCache{}, time.Minute))

	d, err := s.Create(ctx, owner, app.DraftInput{Title: ptr("Cottage"), Payload: json.RawMessage(`{"city":"Braga"}`)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	d, err = s.Update(ctx, owner, d.ID, app.DraftInput{Payload: json.RawMessage(`{"city":"Evora"}`)})
	if err != nil {
		t.Fatalf("update payload: %v", err)
	}
	if d.Title != "Cottage" {
		t.Fatalf("title must survive an update without it, got %q", d.Title)
	}

	d, err = s.Update(ctx, owner, d.ID, app.DraftInput{Title: ptr("<i>Stone</i> cottage")})
	if err != nil {
		t.Fatalf("update title: %v", err)
	}
	got, err := s.Get(ctx, owner, d.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Stone cottage" || string(got.Payload) != `{"city":"Evora"}` {
		t.Fatalf("unexpected draft: %q %s", got.Title, got.Payload)
	}
}
