package observability_test

import (
	"database/sql"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/collectors"
	_ "modernc.org/sqlite"

	"estate_api/internal/adapters/observability"
)

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	return string(body)
}

func TestRegistry_ExposesServiceMetrics(t *testing.T) {
	reg := observability.InitRegistry()

	observability.ObserveHTTP("/api/properties/{id}", http.MethodGet, 200, 12*time.Millisecond)
	observability.ObserveAuthFailure("bad_token")
	observability.ObserveRateLimited("/api/auth/login")
	observability.ObserveCache("redis", "hit")

	out := scrape(t, observability.MetricsHandler(reg))
	for _, want := range []string{
		`estate_http_requests_total{method="GET",route="/api/properties/{id}",status="200"}`,
		`estate_auth_failures_total{reason="bad_token"}`,
		`estate_rate_limited_total{route="/api/auth/login"}`,
		`estate_cache_events_total{cache="redis",event="hit"}`,
		"go_goroutines",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in output", want)
		}
	}
}

func TestRegistry_ExtraCollectors(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	reg := observability.InitRegistry(collectors.NewDBStatsCollector(db, "sqlite"))
	out := scrape(t, observability.MetricsHandler(reg))
	if !strings.Contains(out, `go_sql_max_open_connections{db_name="sqlite"}`) {
		t.Fatalf("expected db pool stats in output")
	}
}
