package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	server "estate_api/internal/adapters/http_server"
	redisad "estate_api/internal/adapters/redis"
	"estate_api/internal/adapters/token"
	"estate_api/internal/app"
	"estate_api/internal/domain"
	"estate_api/internal/storage/sqlstore"
)

// ---------- helpers ----------

type api struct {
	t    *testing.T
	base string
	repo *sqlstore.Repo
	auth *app.AuthService
}

func newAPI(t *testing.T) *api {
	t.Helper()
	return newAPIWithCache(t, redisad.Nop{})
}

func newAPIWithCache(t *testing.T, cache domain.Cache) *api {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "e2e.db") + "?_pragma=foreign_keys(1)&_time_format=sqlite"
	db, d, err := sqlstore.Open("sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlstore.Migrate(context.Background(), db, d))
	repo := sqlstore.New(db, d)

	jwt, err := token.NewJWT("e2e-secret-0123456789", time.Hour)
	require.NoError(t, err)
	svc := app.NewServices(repo, cache, jwt, nil, app.Options{CacheTTL: time.Minute, BcryptCost: bcrypt.MinCost})

	srv := server.New(server.Options{Timeout: 5 * time.Second})
	srv.MountHandlers(&server.Handlers{
		Services: svc,
		Ready:    func(r *http.Request) error { return repo.Ping(r.Context()) },
	})
	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return &api{t: t, base: ts.URL + "/api", repo: repo, auth: svc.Auth}
}

type resp struct {
	status int
	header http.Header
	body   []byte
}

func (r resp) decode(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.body, v), string(r.body))
}

func (a *api) do(method, path, tok string, body any, hdr ...string) resp {
	a.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, a.base+path, rd)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(a.t, err)
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	require.NoError(a.t, err)
	return resp{status: res.StatusCode, header: res.Header, body: b}
}

func (a *api) register(name, email string) (string, domain.User) {
	a.t.Helper()
	r := a.do(http.MethodPost, "/auth/register", "", map[string]string{"name": name, "email": email, "password": "password123"})
	require.Equal(a.t, http.StatusCreated, r.status, string(r.body))
	var out app.AuthResult
	r.decode(a.t, &out)
	return out.Token, out.User
}

// promote changes the role and logs in again so the token carries it.
func (a *api) promote(id int64, email string, role domain.Role) string {
	a.t.Helper()
	require.NoError(a.t, a.repo.SetUserRole(context.Background(), id, role))
	r := a.do(http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": "password123"})
	require.Equal(a.t, http.StatusOK, r.status, string(r.body))
	var out app.AuthResult
	r.decode(a.t, &out)
	return out.Token
}

// ---------- the tests ----------

func TestHTTP_EndToEnd_Listing(t *testing.T) {
	a := newAPI(t)

	_, agentUser := a.register("Agent Smith", "agent@example.com")
	agentTok := a.promote(agentUser.ID, "agent@example.com", domain.RoleAgent)
	buyerTok, _ := a.register("Buyer", "buyer@example.com")

	// duplicate email
	r := a.do(http.MethodPost, "/auth/register", "", map[string]string{"name": "Again", "email": "AGENT@example.com", "password": "password123"})
	assert.Equal(t, http.StatusConflict, r.status)
	assert.JSONEq(t, `{"error":"email already registered"}`, string(r.body))

	// plain users cannot list
	listing := map[string]any{
		"title": "Loft by the river", "listing_type": "rent", "price": "1850.00", "city": "Porto",
		"payload": map[string]any{"property_type": "apartment", "bedrooms": 2, "amenities": []string{"Gym"}, "view": "river"},
	}
	r = a.do(http.MethodPost, "/properties", buyerTok, listing)
	assert.Equal(t, http.StatusForbidden, r.status)

	r = a.do(http.MethodPost, "/properties", agentTok, listing)
	require.Equal(t, http.StatusCreated, r.status, string(r.body))
	var p domain.Property
	r.decode(t, &p)
	assert.Equal(t, domain.StatusPublished, p.Status)
	assert.Equal(t, `"river"`, string(p.Payload.Extra["view"]))

	// validation failures carry fields
	r = a.do(http.MethodPost, "/properties", agentTok, map[string]any{"title": "x"})
	require.Equal(t, http.StatusBadRequest, r.status)
	var ve struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	r.decode(t, &ve)
	assert.Equal(t, "validation failed", ve.Error)
	assert.Contains(t, ve.Fields, "title")
	assert.Contains(t, ve.Fields, "city")

	// search
	r = a.do(http.MethodGet, "/properties?city=porto&min_beds=2&amenities=gym", "", nil)
	require.Equal(t, http.StatusOK, r.status)
	var page domain.PropertiesPage
	r.decode(t, &page)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 1, page.TotalPages)

	r = a.do(http.MethodGet, "/properties?min_price=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, r.status)

	// detail + ETag
	path := fmt.Sprintf("/properties/%d", p.ID)
	r = a.do(http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, r.status)
	etag := r.header.Get("ETag")
	require.NotEmpty(t, etag)
	var d domain.PropertyDetail
	r.decode(t, &d)
	assert.Equal(t, "Agent Smith", d.OwnerName)

	r = a.do(http.MethodGet, path, "", nil, "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, r.status)

	// lead from an anonymous visitor
	r = a.do(http.MethodPost, "/leads", "", map[string]any{"property_id": p.ID, "name": "Visitor", "email": "v@example.com", "message": "Still free?"})
	require.Equal(t, http.StatusCreated, r.status, string(r.body))
	r = a.do(http.MethodGet, "/leads", agentTok, nil)
	require.Equal(t, http.StatusOK, r.status)
	var leads domain.LeadsPage
	r.decode(t, &leads)
	assert.Equal(t, 1, leads.Total)
	r = a.do(http.MethodGet, "/leads", buyerTok, nil)
	assert.Equal(t, http.StatusForbidden, r.status)

	// wishlist
	r = a.do(http.MethodPost, "/wishlist", buyerTok, map[string]any{"property_id": p.ID})
	require.Equal(t, http.StatusCreated, r.status, string(r.body))
	r = a.do(http.MethodPost, "/wishlist", buyerTok, map[string]any{"property_id": p.ID})
	assert.Equal(t, http.StatusConflict, r.status)
	r = a.do(http.MethodGet, fmt.Sprintf("/wishlist/%d/status", p.ID), buyerTok, nil)
	assert.JSONEq(t, `{"saved":true}`, string(r.body))

	// review changes the cached detail
	r = a.do(http.MethodPost, "/reviews", buyerTok, map[string]any{"property_id": p.ID, "rating": 4, "comment": "Lovely light"})
	require.Equal(t, http.StatusCreated, r.status, string(r.body))
	r = a.do(http.MethodGet, path, "", nil, "If-None-Match", etag)
	require.Equal(t, http.StatusOK, r.status)
	r.decode(t, &d)
	assert.Equal(t, 1, d.ReviewCount)
	assert.Equal(t, 4.0, d.AverageRating)

	// auth failures
	r = a.do(http.MethodGet, "/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, r.status)
	r = a.do(http.MethodGet, "/auth/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, r.status)
	r = a.do(http.MethodGet, "/admin/stats", agentTok, nil)
	assert.Equal(t, http.StatusForbidden, r.status)

	// delete by owner
	r = a.do(http.MethodDelete, path, agentTok, nil)
	assert.Equal(t, http.StatusNoContent, r.status)
	r = a.do(http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, r.status)
}

func TestHTTP_EndToEnd_Admin(t *testing.T) {
	a := newAPI(t)
	ctx := context.Background()
	root, _, err := a.auth.EnsureAdmin(ctx, "Root", "root@example.com", "password123")
	require.NoError(t, err)
	adminTok := a.promote(root.ID, "root@example.com", domain.RoleAdmin)
	_, u := a.register("Someone", "someone@example.com")

	r := a.do(http.MethodGet, "/admin/stats", adminTok, nil)
	require.Equal(t, http.StatusOK, r.status, string(r.body))
	var st domain.Stats
	r.decode(t, &st)
	assert.Equal(t, 2, st.Users)

	r = a.do(http.MethodPatch, fmt.Sprintf("/admin/users/%d/role", u.ID), adminTok, map[string]string{"role": "agent"})
	require.Equal(t, http.StatusOK, r.status, string(r.body))

	r = a.do(http.MethodDelete, fmt.Sprintf("/admin/users/%d", root.ID), adminTok, nil)
	assert.Equal(t, http.StatusBadRequest, r.status)

	r = a.do(http.MethodPut, "/admin/settings", adminTok, map[string]string{"site.name": "Estate"})
	require.Equal(t, http.StatusOK, r.status, string(r.body))
	r = a.do(http.MethodGet, "/admin/settings", adminTok, nil)
	assert.JSONEq(t, `{"site.name":"Estate"}`, string(r.body))

	r = a.do(http.MethodPost, "/amenities", adminTok, map[string]string{"name": "Sauna", "category": "interior"})
	require.Equal(t, http.StatusCreated, r.status, string(r.body))
	r = a.do(http.MethodGet, "/amenities", "", nil)
	var am []domain.Amenity
	r.decode(t, &am)
	assert.Len(t, am, 1)

	r = a.do(http.MethodPost, "/analytics/track", "", map[string]any{"event_type": "share_click"})
	assert.Equal(t, http.StatusAccepted, r.status)
	r = a.do(http.MethodGet, "/admin/analytics?days=7", adminTok, nil)
	require.Equal(t, http.StatusOK, r.status)
	var rep domain.AnalyticsReport
	r.decode(t, &rep)
	assert.Equal(t, 7, rep.Days)

	// media without a configured store
	r = a.do(http.MethodDelete, "/media/abc", adminTok, nil)
	assert.Equal(t, http.StatusServiceUnavailable, r.status)
}

func TestHTTP_StaleTokenFollowsStoredAccount(t *testing.T) {
	a := newAPI(t)
	ctx := context.Background()
	root, _, err := a.auth.EnsureAdmin(ctx, "Root", "root@example.com", "password123")
	require.NoError(t, err)
	adminTok := a.promote(root.ID, "root@example.com", domain.RoleAdmin)
	_, u := a.register("Agent", "agent@example.com")
	agentTok := a.promote(u.ID, "agent@example.com", domain.RoleAgent)

	listing := map[string]any{"title": "Studio flat", "listing_type": "rent", "price": "900", "city": "Lisbon"}
	r := a.do(http.MethodPost, "/properties", agentTok, listing)
	require.Equal(t, http.StatusCreated, r.status, string(r.body))

	r = a.do(http.MethodPatch, fmt.Sprintf("/admin/users/%d/role", u.ID), adminTok, map[string]string{"role": "user"})
	require.Equal(t, http.StatusOK, r.status, string(r.body))

	// the token still says agent, the account does not
	r = a.do(http.MethodPost, "/properties", agentTok, listing)
	assert.Equal(t, http.StatusForbidden, r.status)
	r = a.do(http.MethodGet, "/auth/me", agentTok, nil)
	require.Equal(t, http.StatusOK, r.status)
	var me domain.User
	r.decode(t, &me)
	assert.Equal(t, domain.RoleUser, me.Role)

	r = a.do(http.MethodDelete, fmt.Sprintf("/admin/users/%d", u.ID), adminTok, nil)
	require.Equal(t, http.StatusNoContent, r.status, string(r.body))
	r = a.do(http.MethodGet, "/auth/me", agentTok, nil)
	assert.Equal(t, http.StatusUnauthorized, r.status)
}

func TestHTTP_DeleteUserEvictsCachedListings(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redisad.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = cache.Close() })
	a := newAPIWithCache(t, cache)
	ctx := context.Background()

	root, _, err := a.auth.EnsureAdmin(ctx, "Root", "root@example.com", "password123")
	require.NoError(t, err)
	adminTok := a.promote(root.ID, "root@example.com", domain.RoleAdmin)
	_, u := a.register("Agent", "agent@example.com")
	agentTok := a.promote(u.ID, "agent@example.com", domain.RoleAgent)

	r := a.do(http.MethodPost, "/properties", agentTok, map[string]any{"title": "Harbour view", "listing_type": "sale", "price": "250000", "city": "Faro"})
	require.Equal(t, http.StatusCreated, r.status, string(r.body))
	var p domain.Property
	r.decode(t, &p)
	path := fmt.Sprintf("/properties/%d", p.ID)

	require.Equal(t, http.StatusOK, a.do(http.MethodGet, path, "", nil).status)
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/locations", "", nil).status)
	propKey := fmt.Sprintf("%sproperty:%d", redisad.KeyPrefix, p.ID)
	locKey := redisad.KeyPrefix + "locations:all"
	require.True(t, mr.Exists(propKey))
	require.True(t, mr.Exists(locKey))

	r = a.do(http.MethodDelete, fmt.Sprintf("/admin/users/%d", u.ID), adminTok, nil)
	require.Equal(t, http.StatusNoContent, r.status, string(r.body))

	assert.False(t, mr.Exists(propKey))
	assert.False(t, mr.Exists(locKey))
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, path, "", nil).status)
	r = a.do(http.MethodGet, "/locations", "", nil)
	require.Equal(t, http.StatusOK, r.status)
	assert.NotContains(t, string(r.body), "Faro")
}

func TestHTTP_UnpublishedListingHidden(t *testing.T) {
	a := newAPI(t)
	_, u := a.register("Agent", "agent@example.com")
	agentTok := a.promote(u.ID, "agent@example.com", domain.RoleAgent)
	buyerTok, _ := a.register("Buyer", "buyer@example.com")

	r := a.do(http.MethodPost, "/properties", agentTok, map[string]any{"title": "Coming soon", "status": "draft", "listing_type": "sale", "price": "99000", "city": "Braga"})
	require.Equal(t, http.StatusCreated, r.status, string(r.body))
	var p domain.Property
	r.decode(t, &p)

	for _, tok := range []string{"", buyerTok} {
		assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, fmt.Sprintf("/properties/%d/similar", p.ID), tok, nil).status)
		assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, fmt.Sprintf("/reviews/property/%d", p.ID), tok, nil).status)
	}
	r = a.do(http.MethodPost, "/reviews", buyerTok, map[string]any{"property_id": p.ID, "rating": 5, "comment": "Early bird"})
	assert.Equal(t, http.StatusNotFound, r.status, string(r.body))
	r = a.do(http.MethodPost, "/wishlist", buyerTok, map[string]any{"property_id": p.ID})
	assert.Equal(t, http.StatusNotFound, r.status, string(r.body))

	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, fmt.Sprintf("/properties/%d/similar", p.ID), agentTok, nil).status)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, fmt.Sprintf("/reviews/property/%d", p.ID), agentTok, nil).status)
}

func TestHTTP_Health(t *testing.T) {
	a := newAPI(t)
	res, err := http.Get(a.base[:len(a.base)-len("/api")] + "/healthz")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}
