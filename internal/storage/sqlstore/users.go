package sqlstore

import (
	"context"
	"database/sql"
	"strings"

	"estate_api/internal/domain"
)

const userColumns = `id, name, email, password_hash, role, phone, avatar_url, created_at, updated_at`

type scanner interface{ Scan(dest ...any) error }

func scanUser(s scanner) (domain.User, error) {
	var u domain.User
	var role string
	var phone, avatar sql.NullString
	if err := s.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &phone, &avatar, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return domain.User{}, err
	}
	u.Role = domain.Role(role)
	u.Phone = strPtr(phone)
	u.AvatarURL = strPtr(avatar)
	return u, nil
}

func (r *Repo) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	now := r.now()
	u.CreatedAt, u.UpdatedAt = now, now
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash, role, phone, avatar_url, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Name, u.Email, u.PasswordHash, string(u.Role), valStr(u.Phone), valStr(u.AvatarURL), u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return domain.User{}, r.mapErr("create user", err)
	}
	if u.ID, err = res.LastInsertId(); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func (r *Repo) GetUser(ctx context.Context, id int64) (domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	return u, r.mapErr("get user", err)
}

func (r *Repo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	return u, r.mapErr("get user by email", err)
}

func (r *Repo) UpdateUser(ctx context.Context, u domain.User) (domain.User, error) {
	u.UpdatedAt = r.now()
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET name = ?, phone = ?, avatar_url = ?, updated_at = ? WHERE id = ?`,
		u.Name, valStr(u.Phone), valStr(u.AvatarURL), u.UpdatedAt, u.ID)
	if err := r.affected("update user", res, err); err != nil {
		return domain.User{}, err
	}
	return r.GetUser(ctx, u.ID)
}

func (r *Repo) UpdatePassword(ctx context.Context, id int64, hash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`, hash, r.now(), id)
	return r.affected("update password", res, err)
}

func (r *Repo) SetUserRole(ctx context.Context, id int64, role domain.Role) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET role = ?, updated_at = ? WHERE id = ?`, string(role), r.now(), id)
	return r.affected("set user role", res, err)
}

func (r *Repo) DeleteUser(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	return r.affected("delete user", res, err)
}

func (r *Repo) ListUsers(ctx context.Context, q domain.UsersQuery) (domain.UsersPage, error) {
	page, limit, offset := pageBounds(q.Page, q.Limit, 20, 100)

	var where []string
	var args []any
	if s := strings.TrimSpace(q.Q); s != "" {
		where = append(where, `(name LIKE ? OR email LIKE ?)`)
		like := "%" + s + "%"
		args = append(args, like, like)
	}
	if q.Role != "" {
		where = append(where, `role = ?`)
		args = append(args, string(q.Role))
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	out := domain.UsersPage{Page: page, Limit: limit, Items: []domain.User{}}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+cond, args...).Scan(&out.Total); err != nil {
		return domain.UsersPage{}, r.mapErr("count users", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users`+cond+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return domain.UsersPage{}, r.mapErr("list users", err)
	}
	defer rows.Close()
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return domain.UsersPage{}, err
		}
		out.Items = append(out.Items, u)
	}
	return out, rows.Err()
}
