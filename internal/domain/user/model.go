package user

import (
	"time"

	"github.com/google/uuid"
)

// Clinic staff roles.
const (
	RoleSecretary  = "secretary"
	RoleDoctor     = "doctor"
	RoleLaboratory = "laboratory"
	RoleAdmin      = "admin"
)

// ValidRole reports whether r is a known staff role.
func ValidRole(r string) bool {
	switch r {
	case RoleSecretary, RoleDoctor, RoleLaboratory, RoleAdmin:
		return true
	}
	return false
}

// User is a clinic staff account.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ResetTokenTTL is how long a password reset token stays valid.
const ResetTokenTTL = 5 * time.Minute

// PasswordResetToken is a single-use credential mailed to a user who forgot
// their password. It is deleted on the first validation attempt regardless of
// outcome.
type PasswordResetToken struct {
	Token     uuid.UUID `json:"token"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the token's validity window has passed.
func (t *PasswordResetToken) Expired(now time.Time) bool {
	return now.Sub(t.CreatedAt) > ResetTokenTTL
}
