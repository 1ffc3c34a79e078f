package app_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"estate_api/internal/domain"
	"estate_api/internal/storage/sqlstore"
)

// newStore returns a migrated SQLite repository in a temp dir.
func newStore(t *testing.T) *sqlstore.Repo {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "app.db") + "?_pragma=foreign_keys(1)&_time_format=sqlite"
	db, d, err := sqlstore.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := sqlstore.Migrate(context.Background(), db, d); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return sqlstore.New(db, d)
}

func mustUser(t *testing.T, r *sqlstore.Repo, email string, role domain.Role) domain.Principal {
	t.Helper()
	u, err := r.CreateUser(context.Background(), domain.User{Name: "User " + email, Email: email, PasswordHash: "x", Role: role})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return domain.Principal{UserID: u.ID, Email: u.Email, Role: u.Role}
}

func mustProperty(t *testing.T, r *sqlstore.Repo, owner int64, st domain.PropertyStatus) domain.Property {
	t.Helper()
	p, err := r.CreateProperty(context.Background(), domain.Property{
		OwnerID: owner, Title: "Home", Status: st, ListingType: domain.ListingSale,
		Price: decimal.NewFromInt(100000), City: "Porto",
	})
	if err != nil {
		t.Fatalf("create property: %v", err)
	}
	return p
}
