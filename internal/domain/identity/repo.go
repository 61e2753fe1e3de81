package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists staff accounts. Every read skips deactivated users.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	// GetByResetToken finds the user holding digest whose token expires
	// after now.
	GetByResetToken(ctx context.Context, digest string, now time.Time) (*User, error)
	// Update writes email and role.
	Update(ctx context.Context, u *User) error
	// SetPassword stores a new hash and clears any pending reset token.
	SetPassword(ctx context.Context, id uuid.UUID, hash string, changedAt time.Time) error
	// SetResetToken stores or, with nil arguments, clears the reset token.
	SetResetToken(ctx context.Context, id uuid.UUID, digest *string, expiresAt *time.Time) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*User, int, error)
}
