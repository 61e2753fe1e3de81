package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nutritrack/dietary/internal/platform/apperr"
	"github.com/nutritrack/dietary/internal/platform/auth"
	"github.com/nutritrack/dietary/internal/platform/db"
)

const (
	msgNoUser         = "There is no user with that ID."
	msgNoEmail        = "There is no user registered with that email."
	msgBadCredentials = "The email or password you provided is incorrect."
	msgBadResetToken  = "Token is invalid or has expired"
	msgGoneUser       = "The user belonging to this token no longer exists."
	msgStaleToken     = "Your password has recently changed. Please log in again."
)

// ResetMailer delivers password reset links.
type ResetMailer interface {
	SendPasswordReset(ctx context.Context, to, token string) error
}

// Session is a freshly signed-in user and the token proving it.
type Session struct {
	User      *User
	Token     string
	ExpiresAt time.Time
}

type Service struct {
	users  Repository
	tokens *auth.TokenIssuer
	mailer ResetMailer
	now    func() time.Time

	// SelfAssignRoles lets registration pick a role. Only development
	// servers turn it on; otherwise every new account is an nca.
	SelfAssignRoles bool
}

func NewService(users Repository, tokens *auth.TokenIssuer, mailer ResetMailer) *Service {
	return &Service{users: users, tokens: tokens, mailer: mailer, now: time.Now}
}

func (s *Service) session(u *User) (*Session, error) {
	token, claims, err := s.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return nil, err
	}
	return &Session{User: u, Token: token, ExpiresAt: claims.ExpiresAt.Time}, nil
}

func mapUniqueUser(err error) error {
	if db.IsUniqueViolation(err) {
		return apperr.Wrap(err, apperr.Conflict, "That user name or email is already registered")
	}
	return db.MapError(err, msgNoUser)
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	u := &User{Username: in.Username, Email: in.Email}
	if s.SelfAssignRoles {
		u.Role = in.Role
	}
	u.Normalize()
	if err := u.Validate(); err != nil {
		return nil, err
	}
	if err := (PasswordInput{Password: in.Password, PasswordConfirm: in.PasswordConfirm}).Validate(); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = hash
	if err := s.users.Create(ctx, u); err != nil {
		return nil, mapUniqueUser(err)
	}
	return s.session(u)
}

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperr.Validationf("Please enter your email and password")
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, apperr.New(apperr.Unauthenticated, msgBadCredentials)
		}
		return nil, err
	}
	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperr.New(apperr.Unauthenticated, msgBadCredentials)
		}
		return nil, err
	}
	return s.session(u)
}

// ForgotPassword emails a one-time reset token. Only its digest is stored;
// a failed delivery clears it again.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return db.MapError(err, msgNoEmail)
	}
	plain, digest, err := auth.NewResetToken()
	if err != nil {
		return err
	}
	expires := s.now().Add(ResetTokenTTL)
	if err := s.users.SetResetToken(ctx, u.ID, &digest, &expires); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}
	if err := s.mailer.SendPasswordReset(ctx, u.Email, plain); err != nil {
		if clearErr := s.users.SetResetToken(ctx, u.ID, nil, nil); clearErr != nil {
			return fmt.Errorf("send reset email: %w (clear token: %v)", err, clearErr)
		}
		return fmt.Errorf("send reset email: %w", err)
	}
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, token string, in PasswordInput) (*Session, error) {
	u, err := s.users.GetByResetToken(ctx, auth.HashResetToken(token), s.now())
	if err != nil {
		if db.IsNoRows(err) {
			return nil, apperr.Validationf(msgBadResetToken)
		}
		return nil, err
	}
	if err := s.setPassword(ctx, u, in); err != nil {
		return nil, err
	}
	return s.session(u)
}

func (s *Service) setPassword(ctx context.Context, u *User, in PasswordInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return err
	}
	changed := s.now().Add(-passwordChangeSkew)
	if err := s.users.SetPassword(ctx, u.ID, hash, changed); err != nil {
		return db.MapError(err, msgNoUser)
	}
	u.PasswordHash = hash
	u.PasswordChangedAt = &changed
	u.ResetTokenDigest, u.ResetExpiresAt = nil, nil
	return nil
}

// UpdatePassword changes the signed-in user's password and signs them in
// again, since older tokens stop working.
func (s *Service) UpdatePassword(ctx context.Context, id uuid.UUID, in ChangePasswordInput) (*Session, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.CheckPassword(u.PasswordHash, in.CurrentPassword); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperr.New(apperr.Unauthenticated, "Your current password is incorrect")
		}
		return nil, err
	}
	if err := s.setPassword(ctx, u, in.PasswordInput); err != nil {
		return nil, err
	}
	return s.session(u)
}

func (s *Service) update(ctx context.Context, u *User) error {
	u.Normalize()
	if err := u.Validate(); err != nil {
		return err
	}
	if err := s.users.Update(ctx, u); err != nil {
		return mapUniqueUser(err)
	}
	return nil
}

// UpdateProfile changes the signed-in user's own email.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, in ProfileInput) (*User, error) {
	if in.Password != nil || in.PasswordConfirm != nil {
		return nil, apperr.Validationf("This route is not for password updates. Please use /users/me/password.")
	}
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Email != nil {
		u.Email = *in.Email
	}
	if err := s.update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// AdminUpdate changes another user's email or role.
func (s *Service) AdminUpdate(ctx context.Context, id uuid.UUID, in AdminInput) (*User, error) {
	if in.Password != nil || in.PasswordConfirm != nil {
		return nil, apperr.Validationf("You can only update your own password.")
	}
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Email != nil {
		u.Email = *in.Email
	}
	if in.Role != nil {
		u.Role = *in.Role
	}
	if err := s.update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Deactivate soft-deletes the account. It disappears from every read and
// its tokens stop working.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	return db.MapError(s.users.Deactivate(ctx, id), msgNoUser)
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, db.MapError(err, msgNoUser)
	}
	return u, nil
}

func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.users.List(ctx, limit, offset)
}

// CheckTokenHolder implements auth.UserChecker.
func (s *Service) CheckTokenHolder(ctx context.Context, userID uuid.UUID, issuedAt time.Time) (string, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if db.IsNoRows(err) {
			return "", apperr.Wrap(err, apperr.Unauthenticated, msgGoneUser)
		}
		return "", err
	}
	if u.ChangedPasswordAfter(issuedAt) {
		return "", apperr.New(apperr.Unauthenticated, msgStaleToken)
	}
	return u.Role, nil
}
