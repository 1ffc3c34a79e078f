package sqlstore

import (
	"context"
	"database/sql"
	"strings"

	"estate_api/internal/domain"
)

func scanLead(s scanner) (domain.Lead, error) {
	var l domain.Lead
	var title, phone sql.NullString
	var userID sql.NullInt64
	var status string
	if err := s.Scan(&l.ID, &l.PropertyID, &title, &userID, &l.Name, &l.Email, &phone, &l.Message, &status, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return domain.Lead{}, err
	}
	l.PropertyTitle = title.String
	l.UserID = int64Ptr(userID)
	l.Phone = strPtr(phone)
	l.Status = domain.LeadStatus(status)
	return l, nil
}

func (r *Repo) CreateLead(ctx context.Context, l domain.Lead) (domain.Lead, error) {
	now := r.now()
	l.CreatedAt, l.UpdatedAt = now, now
	if l.Status == "" {
		l.Status = domain.LeadNew
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO leads (property_id, user_id, name, email, phone, message, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.PropertyID, valInt64(l.UserID), l.Name, l.Email, valStr(l.Phone), l.Message, string(l.Status), l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return domain.Lead{}, r.mapErr("create lead", err)
	}
	if l.ID, err = res.LastInsertId(); err != nil {
		return domain.Lead{}, err
	}
	return l, nil
}

func (r *Repo) GetLead(ctx context.Context, id int64) (domain.Lead, error) {
	l, err := scanLead(r.db.QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM leads l LEFT JOIN properties p ON p.id = l.property_id WHERE l.id = ?`, id))
	return l, r.mapErr("get lead", err)
}

func (r *Repo) ListLeads(ctx context.Context, q domain.LeadsQuery) (domain.LeadsPage, error) {
	page, limit, offset := pageBounds(q.Page, q.Limit, 20, 100)

	var where []string
	var args []any
	if q.Status != "" {
		where = append(where, `l.status = ?`)
		args = append(args, string(q.Status))
	}
	if q.PropertyID != nil {
		where = append(where, `l.property_id = ?`)
		args = append(args, *q.PropertyID)
	}
	if q.OwnerID != nil {
		where = append(where, `p.owner_id = ?`)
		args = append(args, *q.OwnerID)
	}
	from := ` FROM leads l LEFT JOIN properties p ON p.id = l.property_id`
	if len(where) > 0 {
		from += " WHERE " + strings.Join(where, " AND ")
	}

	out := domain.LeadsPage{Page: page, Limit: limit, Items: []domain.Lead{}}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*)`+from, args...).Scan(&out.Total); err != nil {
		return domain.LeadsPage{}, r.mapErr("count leads", err)
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+leadColumns+from+` ORDER BY l.created_at DESC, l.id DESC LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return domain.LeadsPage{}, r.mapErr("list leads", err)
	}
	defer rows.Close()
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return domain.LeadsPage{}, err
		}
		out.Items = append(out.Items, l)
	}
	return out, rows.Err()
}

func (r *Repo) SetLeadStatus(ctx context.Context, id int64, s domain.LeadStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE leads SET status = ?, updated_at = ? WHERE id = ?`, string(s), r.now(), id)
	return r.affected("set lead status", res, err)
}

func (r *Repo) DeleteLead(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM leads WHERE id = ?`, id)
	return r.affected("delete lead", res, err)
}
