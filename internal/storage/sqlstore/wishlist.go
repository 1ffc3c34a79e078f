package sqlstore

import (
	"context"

	"estate_api/internal/domain"
)

func (r *Repo) AddWishlist(ctx context.Context, userID, propertyID int64) (domain.WishlistItem, error) {
	w := domain.WishlistItem{UserID: userID, PropertyID: propertyID, CreatedAt: r.now()}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO wishlist (user_id, property_id, created_at) VALUES (?, ?, ?)`,
		userID, propertyID, w.CreatedAt)
	if err != nil {
		return domain.WishlistItem{}, r.mapErr("add wishlist", err)
	}
	if w.ID, err = res.LastInsertId(); err != nil {
		return domain.WishlistItem{}, err
	}
	return w, nil
}

func (r *Repo) RemoveWishlist(ctx context.Context, userID, propertyID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM wishlist WHERE user_id = ? AND property_id = ?`, userID, propertyID)
	return r.affected("remove wishlist", res, err)
}

func (r *Repo) ListWishlist(ctx context.Context, userID int64) ([]domain.WishlistItem, error) {
	rows, err := r.db.QueryContext(ctx, listWishlistSQL, userID)
	if err != nil {
		return nil, r.mapErr("list wishlist", err)
	}
	defer rows.Close()
	out := []domain.WishlistItem{}
	for rows.Next() {
		var w domain.WishlistItem
		p, err := scanProperty(rows, &w.ID, &w.UserID, &w.CreatedAt)
		if err != nil {
			return nil, err
		}
		w.PropertyID = p.ID
		w.Property = &p
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *Repo) InWishlist(ctx context.Context, userID, propertyID int64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM wishlist WHERE user_id = ? AND property_id = ?`, userID, propertyID).Scan(&n)
	if err != nil {
		return false, r.mapErr("in wishlist", err)
	}
	return n > 0, nil
}
