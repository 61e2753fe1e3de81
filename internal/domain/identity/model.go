package identity

import (
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nutritrack/dietary/internal/platform/apperr"
	"github.com/nutritrack/dietary/internal/platform/auth"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 40

	// ResetTokenTTL bounds how long an emailed reset link stays usable.
	ResetTokenTTL = 10 * time.Minute

	// passwordChangeSkew backdates PasswordChangedAt so a token issued in
	// the same request as the change is not rejected by CheckTokenHolder.
	passwordChangeSkew = 2500 * time.Millisecond
)

// User is a staff account. Secrets never leave the service in JSON.
type User struct {
	ID                uuid.UUID  `json:"id"`
	Username          string     `json:"username"`
	Email             string     `json:"email"`
	Role              string     `json:"role"`
	PasswordHash      string     `json:"-"`
	PasswordChangedAt *time.Time `json:"password_changed_at,omitempty"`
	ResetTokenDigest  *string    `json:"-"`
	ResetExpiresAt    *time.Time `json:"-"`
	Active            bool       `json:"-"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// ChangedPasswordAfter reports whether the password changed after a token
// issued at issuedAt. Token times have second resolution.
func (u *User) ChangedPasswordAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return issuedAt.Unix() < u.PasswordChangedAt.Unix()
}

// RegisterInput is the self-service sign-up payload.
type RegisterInput struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	Role            string `json:"role,omitempty"`
}

// PasswordInput carries a new password and its confirmation.
type PasswordInput struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

func (in PasswordInput) Validate() error {
	if len(in.Password) < auth.MinPasswordLength {
		return apperr.Validationf("A password of at least %d characters is required", auth.MinPasswordLength)
	}
	if in.Password != in.PasswordConfirm {
		return apperr.Validationf("Passwords do not match")
	}
	return nil
}

// ChangePasswordInput is the signed-in user's password change.
type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password"`
	PasswordInput
}

// ProfileInput is what a user may change on their own account.
type ProfileInput struct {
	Email           *string `json:"email"`
	Password        *string `json:"password"`
	PasswordConfirm *string `json:"password_confirm"`
}

// AdminInput is what an admin may change on another account.
type AdminInput struct {
	Email           *string `json:"email"`
	Role            *string `json:"role"`
	Password        *string `json:"password"`
	PasswordConfirm *string `json:"password_confirm"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return apperr.Validationf("An email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return apperr.Validationf("Please provide a valid email")
	}
	return nil
}

// Normalize trims the username and lowercases the email.
func (u *User) Normalize() {
	u.Username = strings.TrimSpace(u.Username)
	u.Email = normalizeEmail(u.Email)
	if u.Role == "" {
		u.Role = auth.RoleNCA
	}
}

func (u *User) Validate() error {
	if n := len(u.Username); n < MinUsernameLength || n > MaxUsernameLength {
		return apperr.Validationf("A user name of %d to %d characters is required", MinUsernameLength, MaxUsernameLength)
	}
	if err := validateEmail(u.Email); err != nil {
		return err
	}
	if !auth.IsValidRole(u.Role) {
		return apperr.Validationf("Unknown role %q", u.Role)
	}
	return nil
}
