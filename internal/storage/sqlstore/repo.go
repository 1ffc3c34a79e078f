package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"estate_api/internal/domain"
)

type Repo struct {
	db *sql.DB
	d  Dialect
	// now is swapped in tests.
	now func() time.Time
}

func New(db *sql.DB, d Dialect) *Repo {
	return &Repo{db: db, d: d, now: func() time.Time { return time.Now().UTC().Truncate(time.Second) }}
}

func (r *Repo) DB() *sql.DB { return r.db }

func (r *Repo) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func valInt64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func valJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

// mapErr converts driver errors into domain errors.
func (r *Repo) mapErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	case r.d.IsUniqueViolation(err):
		return fmt.Errorf("%s: %w", op, domain.ErrConflict)
	case r.d.IsForeignKeyViolation(err):
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// affected returns ErrNotFound when res touched no rows.
func (r *Repo) affected(op string, res sql.Result, err error) error {
	if err != nil {
		return r.mapErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return nil
}

func pageBounds(page, limit, def, max int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	return page, limit, (page - 1) * limit
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
