package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"estate_api/internal/domain"
)

const propertyColumns = `p.id, p.owner_id, p.title, p.status, p.listing_type, p.price, p.city, p.featured, p.payload, p.created_at, p.updated_at`

func scanProperty(s scanner, extra ...any) (domain.Property, error) {
	var p domain.Property
	var status, lt string
	var payload []byte
	dest := append([]any{&p.ID, &p.OwnerID, &p.Title, &status, &lt, &p.Price, &p.City, &p.Featured, &payload, &p.CreatedAt, &p.UpdatedAt}, extra...)
	if err := s.Scan(dest...); err != nil {
		return domain.Property{}, err
	}
	p.Status = domain.PropertyStatus(status)
	p.ListingType = domain.ListingType(lt)
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &p.Payload); err != nil {
			return domain.Property{}, fmt.Errorf("property %d payload: %w", p.ID, err)
		}
	}
	return p, nil
}

func insertProperty(ctx context.Context, ex execer, p domain.Property) (int64, error) {
	payload, err := json.Marshal(p.Payload)
	if err != nil {
		return 0, err
	}
	res, err := ex.ExecContext(ctx, insertPropertySQL,
		p.OwnerID, p.Title, string(p.Status), string(p.ListingType), p.Price.StringFixed(2),
		p.City, p.Featured, string(payload), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func updateProperty(ctx context.Context, ex execer, p domain.Property) (int64, error) {
	payload, err := json.Marshal(p.Payload)
	if err != nil {
		return 0, err
	}
	res, err := ex.ExecContext(ctx, updatePropertySQL,
		p.Title, string(p.Status), string(p.ListingType), p.Price.StringFixed(2),
		p.City, p.Featured, string(payload), p.UpdatedAt, p.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *Repo) CreateProperty(ctx context.Context, p domain.Property) (domain.Property, error) {
	now := r.now()
	p.CreatedAt, p.UpdatedAt = now, now
	id, err := insertProperty(ctx, r.db, p)
	if err != nil {
		return domain.Property{}, r.mapErr("create property", err)
	}
	p.ID = id
	return p, nil
}

func (r *Repo) GetProperty(ctx context.Context, id int64) (domain.Property, error) {
	p, err := scanProperty(r.db.QueryRowContext(ctx, `SELECT `+propertyColumns+` FROM properties p WHERE p.id = ?`, id))
	return p, r.mapErr("get property", err)
}

func (r *Repo) UpdateProperty(ctx context.Context, p domain.Property) (domain.Property, error) {
	p.UpdatedAt = r.now()
	n, err := updateProperty(ctx, r.db, p)
	if err != nil {
		return domain.Property{}, r.mapErr("update property", err)
	}
	if n == 0 {
		return domain.Property{}, fmt.Errorf("update property: %w", domain.ErrNotFound)
	}
	return r.GetProperty(ctx, p.ID)
}

func (r *Repo) DeleteProperty(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM properties WHERE id = ?`, id)
	return r.affected("delete property", res, err)
}

func (r *Repo) SetPropertyStatus(ctx context.Context, id int64, s domain.PropertyStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE properties SET status = ?, updated_at = ? WHERE id = ?`, string(s), r.now(), id)
	return r.affected("set property status", res, err)
}

func (r *Repo) SetPropertyFeatured(ctx context.Context, id int64, featured bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE properties SET featured = ?, updated_at = ? WHERE id = ?`, featured, r.now(), id)
	return r.affected("set property featured", res, err)
}

func (r *Repo) ListProperties(ctx context.Context, statuses []domain.PropertyStatus) ([]domain.Property, error) {
	q := `SELECT ` + propertyColumns + ` FROM properties p`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		marks := make([]string, len(statuses))
		for i, s := range statuses {
			marks[i] = "?"
			args = append(args, string(s))
		}
		q += ` WHERE p.status IN (` + strings.Join(marks, ",") + `)`
	}
	q += ` ORDER BY p.created_at DESC, p.id DESC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, r.mapErr("list properties", err)
	}
	defer rows.Close()

	out := []domain.Property{}
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) GetPropertyDetail(ctx context.Context, id int64) (domain.PropertyDetail, error) {
	var d domain.PropertyDetail
	p, err := scanProperty(r.db.QueryRowContext(ctx, getPropertyDetailSQL, id), &d.OwnerName, &d.AverageRating, &d.ReviewCount)
	if err != nil {
		return domain.PropertyDetail{}, r.mapErr("get property detail", err)
	}
	d.Property = p
	return d, nil
}

func (r *Repo) RecordView(ctx context.Context, v domain.PropertyView) error {
	if v.ViewedAt.IsZero() {
		v.ViewedAt = r.now()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO property_views (property_id, user_id, ip, viewed_at) VALUES (?, ?, ?, ?)`,
		v.PropertyID, valInt64(v.UserID), v.IP, v.ViewedAt)
	return r.mapErr("record view", err)
}

func (r *Repo) ListLocations(ctx context.Context) ([]domain.Location, error) {
	rows, err := r.db.QueryContext(ctx, listLocationsSQL, string(domain.StatusPublished))
	if err != nil {
		return nil, r.mapErr("list locations", err)
	}
	defer rows.Close()
	out := []domain.Location{}
	for rows.Next() {
		var l domain.Location
		if err := rows.Scan(&l.City, &l.Count); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
