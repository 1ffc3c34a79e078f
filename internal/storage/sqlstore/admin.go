package sqlstore

import (
	"context"
	"time"
)

func (r *Repo) countBy(ctx context.Context, op, q string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, r.mapErr(op, err)
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var k string
		var n int
		if err := rows.Scan(&k, &n); err != nil {
			return nil, err
		}
		out[k] = n
	}
	return out, rows.Err()
}

func (r *Repo) count(ctx context.Context, op, q string, args ...any) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, r.mapErr(op, err)
	}
	return n, nil
}

func (r *Repo) CountUsersByRole(ctx context.Context) (map[string]int, error) {
	return r.countBy(ctx, "count users", `SELECT role, COUNT(*) FROM users GROUP BY role`)
}

func (r *Repo) CountPropertiesByStatus(ctx context.Context) (map[string]int, error) {
	return r.countBy(ctx, "count properties", `SELECT status, COUNT(*) FROM properties GROUP BY status`)
}

func (r *Repo) CountLeadsByStatus(ctx context.Context) (map[string]int, error) {
	return r.countBy(ctx, "count leads", `SELECT status, COUNT(*) FROM leads GROUP BY status`)
}

func (r *Repo) CountReviews(ctx context.Context) (int, error) {
	return r.count(ctx, "count reviews", `SELECT COUNT(*) FROM reviews`)
}

func (r *Repo) CountWishlist(ctx context.Context) (int, error) {
	return r.count(ctx, "count wishlist", `SELECT COUNT(*) FROM wishlist`)
}

func (r *Repo) CountViewsSince(ctx context.Context, since time.Time) (int, error) {
	return r.count(ctx, "count views", `SELECT COUNT(*) FROM property_views WHERE viewed_at >= ?`, since)
}

func (r *Repo) PropertyIDsByUser(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM properties WHERE owner_id = ? UNION SELECT property_id FROM reviews WHERE user_id = ?`,
		userID, userID)
	if err != nil {
		return nil, r.mapErr("property ids by user", err)
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *Repo) GetSettings(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT setting_key, value FROM settings ORDER BY setting_key`)
	if err != nil {
		return nil, r.mapErr("get settings", err)
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

func (r *Repo) PutSettings(ctx context.Context, kv map[string]string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	now := r.now()
	q := r.d.UpsertSettingSQL()
	for k, v := range kv {
		if _, err := tx.ExecContext(ctx, q, k, v, now); err != nil {
			_ = tx.Rollback()
			return r.mapErr("put setting "+k, err)
		}
	}
	return tx.Commit()
}
