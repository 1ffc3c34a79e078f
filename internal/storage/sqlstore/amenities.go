package sqlstore

import (
	"context"
	"database/sql"

	"estate_api/internal/domain"
)

func scanAmenity(s scanner) (domain.Amenity, error) {
	var a domain.Amenity
	var icon, cat sql.NullString
	if err := s.Scan(&a.ID, &a.Name, &icon, &cat, &a.CreatedAt); err != nil {
		return domain.Amenity{}, err
	}
	a.Icon, a.Category = strPtr(icon), strPtr(cat)
	return a, nil
}

func (r *Repo) ListAmenities(ctx context.Context) ([]domain.Amenity, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, icon, category, created_at FROM amenities ORDER BY COALESCE(category, ''), name`)
	if err != nil {
		return nil, r.mapErr("list amenities", err)
	}
	defer rows.Close()
	out := []domain.Amenity{}
	for rows.Next() {
		a, err := scanAmenity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *Repo) GetAmenity(ctx context.Context, id int64) (domain.Amenity, error) {
	a, err := scanAmenity(r.db.QueryRowContext(ctx, `SELECT id, name, icon, category, created_at FROM amenities WHERE id = ?`, id))
	return a, r.mapErr("get amenity", err)
}

func (r *Repo) CreateAmenity(ctx context.Context, a domain.Amenity) (domain.Amenity, error) {
	a.CreatedAt = r.now()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO amenities (name, icon, category, created_at) VALUES (?, ?, ?, ?)`,
		a.Name, valStr(a.Icon), valStr(a.Category), a.CreatedAt)
	if err != nil {
		return domain.Amenity{}, r.mapErr("create amenity", err)
	}
	if a.ID, err = res.LastInsertId(); err != nil {
		return domain.Amenity{}, err
	}
	return a, nil
}

func (r *Repo) UpdateAmenity(ctx context.Context, a domain.Amenity) (domain.Amenity, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE amenities SET name = ?, icon = ?, category = ? WHERE id = ?`,
		a.Name, valStr(a.Icon), valStr(a.Category), a.ID)
	if err := r.affected("update amenity", res, err); err != nil {
		return domain.Amenity{}, err
	}
	return r.GetAmenity(ctx, a.ID)
}

func (r *Repo) DeleteAmenity(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM amenities WHERE id = ?`, id)
	return r.affected("delete amenity", res, err)
}
