package sqlstore

import (
	"context"

	"estate_api/internal/domain"
)

func (r *Repo) CreateReview(ctx context.Context, rv domain.Review) (domain.Review, error) {
	now := r.now()
	rv.CreatedAt, rv.UpdatedAt = now, now
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO reviews (property_id, user_id, rating, comment, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rv.PropertyID, rv.UserID, rv.Rating, rv.Comment, rv.CreatedAt, rv.UpdatedAt)
	if err != nil {
		return domain.Review{}, r.mapErr("create review", err)
	}
	if rv.ID, err = res.LastInsertId(); err != nil {
		return domain.Review{}, err
	}
	return rv, nil
}

func (r *Repo) GetReview(ctx context.Context, id int64) (domain.Review, error) {
	var rv domain.Review
	err := r.db.QueryRowContext(ctx,
		`SELECT rv.id, rv.property_id, rv.user_id, u.name, rv.rating, rv.comment, rv.created_at, rv.updated_at
FROM reviews rv JOIN users u ON u.id = rv.user_id WHERE rv.id = ?`, id).
		Scan(&rv.ID, &rv.PropertyID, &rv.UserID, &rv.AuthorName, &rv.Rating, &rv.Comment, &rv.CreatedAt, &rv.UpdatedAt)
	return rv, r.mapErr("get review", err)
}

func (r *Repo) UpdateReview(ctx context.Context, rv domain.Review) (domain.Review, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE reviews SET rating = ?, comment = ?, updated_at = ? WHERE id = ?`,
		rv.Rating, rv.Comment, r.now(), rv.ID)
	if err := r.affected("update review", res, err); err != nil {
		return domain.Review{}, err
	}
	return r.GetReview(ctx, rv.ID)
}

func (r *Repo) DeleteReview(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
	return r.affected("delete review", res, err)
}

func (r *Repo) ListReviews(ctx context.Context, propertyID int64) (domain.ReviewsPage, error) {
	rows, err := r.db.QueryContext(ctx, listReviewsSQL, propertyID)
	if err != nil {
		return domain.ReviewsPage{}, r.mapErr("list reviews", err)
	}
	defer rows.Close()

	out := domain.ReviewsPage{Items: []domain.Review{}}
	sum := 0
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(&rv.ID, &rv.PropertyID, &rv.UserID, &rv.AuthorName, &rv.Rating, &rv.Comment, &rv.CreatedAt, &rv.UpdatedAt); err != nil {
			return domain.ReviewsPage{}, err
		}
		sum += rv.Rating
		out.Items = append(out.Items, rv)
	}
	if err := rows.Err(); err != nil {
		return domain.ReviewsPage{}, err
	}
	out.Summary.Count = len(out.Items)
	if out.Summary.Count > 0 {
		out.Summary.Average = float64(sum) / float64(out.Summary.Count)
	}
	return out, nil
}
