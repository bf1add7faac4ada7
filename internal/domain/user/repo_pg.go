package user

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vanuse/clinic/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type userRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &userRepoPG{pool: pool}
}

func (r *userRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const userCols = `id, email, name, role, password_hash, created_at, updated_at`

func (r *userRepoPG) scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	return &u, err
}

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO users (email, name, role, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`,
		u.Email, u.Name, u.Role, u.PasswordHash,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
}

func (r *userRepoPG) GetByID(ctx context.Context, id int64) (*User, error) {
	return r.scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

func (r *userRepoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE email = $1`, email))
}

func (r *userRepoPG) Update(ctx context.Context, u *User) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE users SET email=$2, name=$3, role=$4, updated_at=NOW()
		WHERE id = $1`,
		u.ID, u.Email, u.Name, u.Role)
	return err
}

func (r *userRepoPG) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE users SET password_hash=$2, updated_at=NOW() WHERE id = $1`,
		id, passwordHash)
	return err
}

func (r *userRepoPG) Delete(ctx context.Context, id int64) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}

func (r *userRepoPG) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+userCols+` FROM users ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*User
	for rows.Next() {
		u, err := r.scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, u)
	}
	return items, total, nil
}

func (r *userRepoPG) ListByRole(ctx context.Context, role string, limit, offset int) ([]*User, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role = $1`, role).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+userCols+` FROM users WHERE role = $1 ORDER BY id LIMIT $2 OFFSET $3`, role, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*User
	for rows.Next() {
		u, err := r.scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, u)
	}
	return items, total, nil
}

func (r *userRepoPG) CreateResetToken(ctx context.Context, t *PasswordResetToken) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO password_reset_tokens (token, user_id)
		VALUES ($1, $2)
		RETURNING created_at`,
		t.Token, t.UserID,
	).Scan(&t.CreatedAt)
}

func (r *userRepoPG) ConsumeResetToken(ctx context.Context, token uuid.UUID) (*PasswordResetToken, error) {
	var t PasswordResetToken
	err := r.conn(ctx).QueryRow(ctx, `
		DELETE FROM password_reset_tokens WHERE token = $1
		RETURNING token, user_id, created_at`,
		token,
	).Scan(&t.Token, &t.UserID, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
