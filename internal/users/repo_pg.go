package users

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const userColumns = `id, name, email, password_hash, role, status, theme, language, created_at, updated_at`

func (r *PGRepo) Create(ctx context.Context, u User) error {
	const query = `
INSERT INTO users (` + userColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.DB.ExecContext(ctx, query,
		u.ID,
		u.Name,
		u.Email,
		u.PasswordHash,
		u.Role,
		u.Status,
		u.Preferences.Theme,
		u.Preferences.Language,
		u.CreatedAt,
		u.UpdatedAt,
	)
	return mapWriteError(err)
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (User, error) {
	return scanOne(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *PGRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	return scanOne(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *PGRepo) List(ctx context.Context) ([]User, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAll(rows)
}

func (r *PGRepo) ListSince(ctx context.Context, since time.Time) ([]User, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT `+userColumns+`
FROM users
WHERE created_at >= $1
ORDER BY created_at DESC`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAll(rows)
}

func (r *PGRepo) Update(ctx context.Context, u User) error {
	res, err := r.DB.ExecContext(ctx, `
UPDATE users
SET name = $2, email = $3, role = $4, status = $5, theme = $6, language = $7, updated_at = $8
WHERE id = $1`,
		u.ID,
		u.Name,
		u.Email,
		u.Role,
		u.Status,
		u.Preferences.Theme,
		u.Preferences.Language,
		u.UpdatedAt,
	)
	if err != nil {
		return mapWriteError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) UpdatePassword(ctx context.Context, id, hash string, at time.Time) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`, id, hash, at)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOne(row rowScanner) (User, error) {
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func scanAll(rows *sql.Rows) ([]User, error) {
	out := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func scanUser(row rowScanner) (User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.Status,
		&u.Preferences.Theme,
		&u.Preferences.Language,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrEmailTaken
	}
	return err
}

var _ Repo = (*PGRepo)(nil)
