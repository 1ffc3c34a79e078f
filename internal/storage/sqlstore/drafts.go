package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"estate_api/internal/domain"
)

const draftColumns = `id, user_id, property_id, title, payload, created_at, updated_at`

func scanDraft(s scanner) (domain.Draft, error) {
	var d domain.Draft
	var pid sql.NullInt64
	var payload []byte
	if err := s.Scan(&d.ID, &d.UserID, &pid, &d.Title, &payload, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return domain.Draft{}, err
	}
	d.PropertyID = int64Ptr(pid)
	d.Payload = append([]byte(nil), payload...)
	return d, nil
}

func (r *Repo) CreateDraft(ctx context.Context, d domain.Draft) (domain.Draft, error) {
	now := r.now()
	d.CreatedAt, d.UpdatedAt = now, now
	if len(d.Payload) == 0 {
		d.Payload = []byte(`{}`)
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO property_drafts (user_id, property_id, title, payload, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		d.UserID, valInt64(d.PropertyID), d.Title, string(d.Payload), d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return domain.Draft{}, r.mapErr("create draft", err)
	}
	if d.ID, err = res.LastInsertId(); err != nil {
		return domain.Draft{}, err
	}
	return d, nil
}

func (r *Repo) GetDraft(ctx context.Context, id int64) (domain.Draft, error) {
	d, err := scanDraft(r.db.QueryRowContext(ctx, `SELECT `+draftColumns+` FROM property_drafts WHERE id = ?`, id))
	return d, r.mapErr("get draft", err)
}

func (r *Repo) UpdateDraft(ctx context.Context, d domain.Draft) (domain.Draft, error) {
	if len(d.Payload) == 0 {
		d.Payload = []byte(`{}`)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE property_drafts SET title = ?, property_id = ?, payload = ?, updated_at = ? WHERE id = ?`,
		d.Title, valInt64(d.PropertyID), string(d.Payload), r.now(), d.ID)
	if err := r.affected("update draft", res, err); err != nil {
		return domain.Draft{}, err
	}
	return r.GetDraft(ctx, d.ID)
}

func (r *Repo) DeleteDraft(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM property_drafts WHERE id = ?`, id)
	return r.affected("delete draft", res, err)
}

func (r *Repo) ListDrafts(ctx context.Context, userID int64) ([]domain.Draft, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+draftColumns+` FROM property_drafts WHERE user_id = ? ORDER BY updated_at DESC, id DESC`, userID)
	if err != nil {
		return nil, r.mapErr("list drafts", err)
	}
	defer rows.Close()
	out := []domain.Draft{}
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *Repo) PublishDraft(ctx context.Context, draftID int64, p domain.Property) (out domain.Property, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Property{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := r.now()
	p.UpdatedAt = now
	if p.ID == 0 {
		p.CreatedAt = now
		id, ierr := insertProperty(ctx, tx, p)
		if ierr != nil {
			return domain.Property{}, r.mapErr("publish draft insert", ierr)
		}
		p.ID = id
	} else {
		n, uerr := updateProperty(ctx, tx, p)
		if uerr != nil {
			return domain.Property{}, r.mapErr("publish draft update", uerr)
		}
		if n == 0 {
			return domain.Property{}, fmt.Errorf("publish draft update: %w", domain.ErrNotFound)
		}
	}

	res, derr := tx.ExecContext(ctx, `DELETE FROM property_drafts WHERE id = ?`, draftID)
	if err = r.affected("publish draft delete", res, derr); err != nil {
		return domain.Property{}, err
	}
	if err = tx.Commit(); err != nil {
		return domain.Property{}, err
	}
	return p, nil
}
