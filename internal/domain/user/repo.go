package user

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence operations for user accounts and password
// reset tokens.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, limit, offset int) ([]*User, int, error)
	ListByRole(ctx context.Context, role string, limit, offset int) ([]*User, int, error)
	// Reset tokens
	CreateResetToken(ctx context.Context, t *PasswordResetToken) error
	// ConsumeResetToken deletes the token and returns it. A token can only
	// ever be consumed once; unknown tokens return pgx.ErrNoRows.
	ConsumeResetToken(ctx context.Context, token uuid.UUID) (*PasswordResetToken, error)
}
