package app_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"estate_api/internal/app"
	"estate_api/internal/domain"
)

func TestAdmin_Stats(t *testing.T) {
	r := newStore(t)
	ctx := context.Background()
	owner := mustUser(t, r, "agent@example.com", domain.RoleAgent)
	ana := mustUser(t, r, "ana@example.com", domain.RoleUser)
	mustUser(t, r, "root@example.com", domain.RoleAdmin)
	p := mustProperty(t, r, owner.UserID, domain.StatusPublished)
	mustProperty(t, r, owner.UserID, domain.StatusDraft)
	if _, err := r.AddWishlist(ctx, ana.UserID, p.ID); err != nil {
		t.Fatalf("wishlist: %v", err)
	}
	props := app.NewPropertyService(r, r, &fakeCache{}, time.Minute)
	if _, err := props.Get(ctx, p.ID, &ana, "127.0.0.1"); err != nil {
		t.Fatalf("view: %v", err)
	}

	s := app.NewAdminService(r, r, r, nil)
	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Users != 3 || st.UsersByRole["agent"] != 1 {
		t.Fatalf("users: %+v", st)
	}
	if st.PropertiesByStatus["published"] != 1 || st.PropertiesByStatus["draft"] != 1 {
		t.Fatalf("properties: %+v", st.PropertiesByStatus)
	}
	if st.WishlistSaves != 1 || st.ViewsLast30Days != 1 {
		t.Fatalf("wishlist/views: %+v", st)
	}

	rep, err := s.Analytics(ctx, 0)
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	if rep.Days != 30 || len(rep.TopProperties) != 1 || rep.TopProperties[0].PropertyID != p.ID {
		t.Fatalf("report: %+v", rep)
	}
	if _, err := s.Analytics(ctx, 400); !errors.Is(err, domain.ErrInvalid) {
		t.Fatalf("days 400: expected invalid, got %v", err)
	}
}

func TestAdmin_Users(t *testing.T) {
	users := newFakeUsers()
	s := app.NewAdminService(nil, users, nil, nil)
	ctx := context.Background()
	root, _ := users.CreateUser(ctx, domain.User{Email: "root@example.com", Role: domain.RoleAdmin})
	bob, _ := users.CreateUser(ctx, domain.User{Email: "bob@example.com", Role: domain.RoleUser})
	me := admin(root.ID)

	if err := s.DeleteUser(ctx, me, root.ID); !errors.Is(err, domain.ErrInvalid) {
		t.Fatalf("self delete: expected invalid, got %v", err)
	}
	if _, err := s.SetRole(ctx, me, bob.ID, "owner"); !errors.Is(err, domain.ErrInvalid) {
		t.Fatalf("bad role: expected invalid, got %v", err)
	}
	u, err := s.SetRole(ctx, me, bob.ID, domain.RoleAgent)
	if err != nil || u.Role != domain.RoleAgent {
		t.Fatalf("set role: %+v %v", u, err)
	}
	page, err := s.Users(ctx, domain.UsersQuery{Role: domain.RoleAgent})
	if err != nil || page.Total != 1 {
		t.Fatalf("list: %+v %v", page, err)
	}
	if err := s.DeleteUser(ctx, me, bob.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteUser(ctx, me, bob.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("delete again: expected not found, got %v", err)
	}
}

func TestAdmin_Settings(t *testing.T) {
	r := newStore(t)
	ctx := context.Background()
	s := app.NewAdminService(r, r, r, nil)

	if _, err := s.PutSettings(ctx, map[string]string{"bad key!": "x"}); !errors.Is(err, domain.ErrInvalid) {
		t.Fatalf("bad key: expected invalid, got %v", err)
	}
	if _, err := s.PutSettings(ctx, map[string]string{"site.name": "Estate", "contact_email": "hi@example.com"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := s.PutSettings(ctx, map[string]string{"site.name": "Estate Hub"})
	if err != nil {
		t.Fatalf("put again: %v", err)
	}
	if len(got) != 2 || got["site.name"] != "Estate Hub" {
		t.Fatalf("settings: %v", got)
	}
}

func TestAdmin_DeleteUserEvictsListings(t *testing.T) {
	r := newStore(t)
	ctx := context.Background()
	owner := mustUser(t, r, "agent@example.com", domain.RoleAgent)
	other := mustUser(t, r, "other@example.com", domain.RoleAgent)
	critic := mustUser(t, r, "critic@example.com", domain.RoleUser)
	root := mustUser(t, r, "root@example.com", domain.RoleAdmin)
	owned := mustProperty(t, r, owner.UserID, domain.StatusPublished)
	reviewed := mustProperty(t, r, other.UserID, domain.StatusPublished)
	if _, err := r.CreateReview(ctx, domain.Review{PropertyID: reviewed.ID, UserID: critic.UserID, Rating: 5, Comment: "great"}); err != nil {
		t.Fatalf("review: %v", err)
	}

	cache := &fakeCache{}
	svc := app.NewServices(r, cache, fakeTokens{}, nil, app.Options{CacheTTL: time.Minute})
	for _, id := range []int64{owned.ID, reviewed.ID} {
		if _, err := svc.Properties.Get(ctx, id, nil, "127.0.0.1"); err != nil {
			t.Fatalf("warm %d: %v", id, err)
		}
	}
	if _, err := svc.Properties.Locations(ctx); err != nil {
		t.Fatalf("locations: %v", err)
	}

	if err := svc.Admin.DeleteUser(ctx, root, owner.UserID); err != nil {
		t.Fatalf("delete owner: %v", err)
	}
	if cache.has(fmt.Sprintf("property:%d", owned.ID)) || cache.has("locations:all") {
		t.Fatalf("owned listing still cached: %v", cache.store)
	}
	if _, err := svc.Properties.Get(ctx, owned.ID, nil, "127.0.0.1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("owned listing after delete: expected not found, got %v", err)
	}

	if err := svc.Admin.DeleteUser(ctx, root, critic.UserID); err != nil {
		t.Fatalf("delete critic: %v", err)
	}
	d, err := svc.Properties.Get(ctx, reviewed.ID, nil, "127.0.0.1")
	if err != nil || d.ReviewCount != 0 {
		t.Fatalf("reviewed listing must drop the deleted review: %+v %v", d, err)
	}
}
