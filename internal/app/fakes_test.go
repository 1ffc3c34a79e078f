package app_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"estate_api/internal/domain"
)

// ---- fakes ----

type fakeProps struct {
	mu    sync.Mutex
	items map[int64]domain.Property
	views []domain.PropertyView
	next  int64
	// detailCalls counts trips to storage for the detail view
	detailCalls int
}

func newFakeProps(ps ...domain.Property) *fakeProps {
	f := &fakeProps{items: map[int64]domain.Property{}}
	for _, p := range ps {
		f.items[p.ID] = p
		if p.ID > f.next {
			f.next = p.ID
		}
	}
	return f
}

func (f *fakeProps) CreateProperty(ctx context.Context, p domain.Property) (domain.Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	p.ID = f.next
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	f.items[p.ID] = p
	return p, nil
}

func (f *fakeProps) GetProperty(ctx context.Context, id int64) (domain.Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok {
		return domain.Property{}, fmt.Errorf("property %d: %w", id, domain.ErrNotFound)
	}
	return p, nil
}

func (f *fakeProps) UpdateProperty(ctx context.Context, p domain.Property) (domain.Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[p.ID]; !ok {
		return domain.Property{}, domain.ErrNotFound
	}
	f.items[p.ID] = p
	return p, nil
}

func (f *fakeProps) DeleteProperty(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeProps) SetPropertyStatus(ctx context.Context, id int64, s domain.PropertyStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Status = s
	f.items[id] = p
	return nil
}

func (f *fakeProps) SetPropertyFeatured(ctx context.Context, id int64, featured bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Featured = featured
	f.items[id] = p
	return nil
}

func (f *fakeProps) ListProperties(ctx context.Context, statuses []domain.PropertyStatus) ([]domain.Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Property
	for _, p := range f.items {
		if len(statuses) == 0 {
			out = append(out, p)
			continue
		}
		for _, s := range statuses {
			if p.Status == s {
				out = append(out, p)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeProps) GetPropertyDetail(ctx context.Context, id int64) (domain.PropertyDetail, error) {
	p, err := f.GetProperty(ctx, id)
	if err != nil {
		return domain.PropertyDetail{}, err
	}
	f.mu.Lock()
	f.detailCalls++
	f.mu.Unlock()
	return domain.PropertyDetail{Property: p, OwnerName: "Owner"}, nil
}

func (f *fakeProps) RecordView(ctx context.Context, v domain.PropertyView) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.views = append(f.views, v)
	return nil
}

func (f *fakeProps) ListLocations(ctx context.Context) ([]domain.Location, error) {
	all, _ := f.ListProperties(ctx, []domain.PropertyStatus{domain.StatusPublished})
	counts := map[string]int{}
	for _, p := range all {
		counts[p.City]++
	}
	out := []domain.Location{}
	for c, n := range counts {
		out = append(out, domain.Location{City: c, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].City < out[j].City
	})
	return out, nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []domain.Event
}

func (f *fakeEvents) RecordEvent(ctx context.Context, e domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return nil
}

func (f *fakeEvents) Report(ctx context.Context, since time.Time, top int) (domain.AnalyticsReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[string]int{}
	for _, e := range f.events {
		counts[e.EventType]++
	}
	rep := domain.AnalyticsReport{}
	for t, n := range counts {
		rep.Events = append(rep.Events, domain.EventCount{EventType: t, Count: n})
	}
	return rep, nil
}

func (f *fakeEvents) count(t string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.EventType == t {
			n++
		}
	}
	return n
}

// fakeCache round-trips values through JSON like the redis adapter does.
type fakeCache struct {
	mu    sync.Mutex
	store map[string][]byte
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.store, k)
	}
	return nil
}

func (c *fakeCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.store[key]
	return ok
}

type fakeUsers struct {
	mu   sync.Mutex
	byID map[int64]domain.User
	next int64
}

func newFakeUsers() *fakeUsers { return &fakeUsers{byID: map[int64]domain.User{}} }

func (f *fakeUsers) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, x := range f.byID {
		if x.Email == u.Email {
			return domain.User{}, domain.ErrConflict
		}
	}
	f.next++
	u.ID = f.next
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUsers) GetUser(ctx context.Context, id int64) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (f *fakeUsers) UpdateUser(ctx context.Context, u domain.User) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUsers) UpdatePassword(ctx context.Context, id int64, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.byID[id]
	u.PasswordHash = hash
	f.byID[id] = u
	return nil
}

func (f *fakeUsers) SetUserRole(ctx context.Context, id int64, role domain.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.Role = role
	f.byID[id] = u
	return nil
}

func (f *fakeUsers) DeleteUser(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeUsers) ListUsers(ctx context.Context, q domain.UsersQuery) (domain.UsersPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	page := domain.UsersPage{Page: 1, Limit: 20}
	for _, u := range f.byID {
		if q.Role == "" || u.Role == q.Role {
			page.Items = append(page.Items, u)
		}
	}
	page.Total = len(page.Items)
	return page, nil
}

// fakeTokens issues "tok-<id>-<role>" and parses it back without touching
// storage, so the role is a snapshot like a real JWT claim.
type fakeTokens struct{}

func (fakeTokens) Issue(u domain.User) (string, error) {
	return fmt.Sprintf("tok-%d-%s", u.ID, u.Role), nil
}

func (fakeTokens) Parse(tok string) (domain.Principal, error) {
	var (
		id   int64
		role string
	)
	if _, err := fmt.Sscanf(tok, "tok-%d-%s", &id, &role); err != nil {
		return domain.Principal{}, domain.ErrUnauthorized
	}
	return domain.Principal{UserID: id, Role: domain.Role(role)}, nil
}

func ptr[T any](v T) *T { return &v }

func agent(id int64) domain.Principal { return domain.Principal{UserID: id, Role: domain.RoleAgent} }
func admin(id int64) domain.Principal { return domain.Principal{UserID: id, Role: domain.RoleAdmin} }
func user(id int64) domain.Principal  { return domain.Principal{UserID: id, Role: domain.RoleUser} }
