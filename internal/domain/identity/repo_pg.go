package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nutritrack/dietary/internal/platform/db"
)

type userRepoPG struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) Repository {
	return &userRepoPG{pool: pool}
}

func (r *userRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const userColumns = `id, username, email, role, password_hash, password_changed_at,
	password_reset_token, password_reset_expires_at, active, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.PasswordHash, &u.PasswordChangedAt,
		&u.ResetTokenDigest, &u.ResetExpiresAt, &u.Active, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	u.Active = true
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO app_user (id, username, email, role, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		u.ID, u.Username, u.Email, u.Role, u.PasswordHash,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
}

func (r *userRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx,
		`SELECT `+userColumns+` FROM app_user WHERE id = $1 AND active`, id))
}

func (r *userRepoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx,
		`SELECT `+userColumns+` FROM app_user WHERE email = $1 AND active`, email))
}

func (r *userRepoPG) GetByResetToken(ctx context.Context, digest string, now time.Time) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx, `
		SELECT `+userColumns+` FROM app_user
		WHERE password_reset_token = $1 AND password_reset_expires_at > $2 AND active`, digest, now))
}

func (r *userRepoPG) Update(ctx context.Context, u *User) error {
	return r.conn(ctx).QueryRow(ctx, `
		UPDATE app_user SET email = $2, role = $3, updated_at = NOW()
		WHERE id = $1 AND active
		RETURNING created_at, updated_at`,
		u.ID, u.Email, u.Role,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
}

func (r *userRepoPG) exec(ctx context.Context, sql string, args ...interface{}) error {
	tag, err := r.conn(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepoPG) SetPassword(ctx context.Context, id uuid.UUID, hash string, changedAt time.Time) error {
	return r.exec(ctx, `
		UPDATE app_user SET password_hash = $2, password_changed_at = $3,
			password_reset_token = NULL, password_reset_expires_at = NULL, updated_at = NOW()
		WHERE id = $1 AND active`, id, hash, changedAt)
}

func (r *userRepoPG) SetResetToken(ctx context.Context, id uuid.UUID, digest *string, expiresAt *time.Time) error {
	return r.exec(ctx, `
		UPDATE app_user SET password_reset_token = $2, password_reset_expires_at = $3
		WHERE id = $1`, id, digest, expiresAt)
}

func (r *userRepoPG) Deactivate(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx, `UPDATE app_user SET active = FALSE, updated_at = NOW() WHERE id = $1 AND active`, id)
}

func (r *userRepoPG) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM app_user WHERE active`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+userColumns+` FROM app_user WHERE active ORDER BY username LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}
