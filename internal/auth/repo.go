package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned for missing users, sessions, and reset tokens.
var ErrNotFound = errors.New("auth: not found")

// UserRecord is the stored account row, password hash included.
type UserRecord struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session is one refresh-token grant. RefreshTokenHash stores the SHA-256 of
// the opaque token, never the token itself.
type Session struct {
	ID               string
	UserID           string
	RefreshTokenHash string
	UserAgent        string
	IP               string
	ExpiresAt        time.Time
}

// PasswordReset is a single-use reset grant.
type PasswordReset struct {
	UserID    string
	Token     string
	ExpiresAt time.Time
	Used      bool
}

type Repo struct {
	Pool *pgxpool.Pool
}

var _ store = Repo{}

func (r Repo) CreateUser(ctx context.Context, name, email, passwordHash string) (UserRecord, error) {
	u := UserRecord{ID: uuid.NewString(), Name: name, Email: email, PasswordHash: passwordHash}
	err := r.Pool.QueryRow(ctx,
		`INSERT INTO users (id, name, email, password_hash)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at, updated_at`,
		u.ID, u.Name, u.Email, u.PasswordHash,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r Repo) GetUserByEmail(ctx context.Context, email string) (UserRecord, error) {
	return r.scanUser(r.Pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, created_at, updated_at FROM users WHERE email = $1`,
		email,
	))
}

func (r Repo) GetUserByID(ctx context.Context, id string) (UserRecord, error) {
	return r.scanUser(r.Pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, created_at, updated_at FROM users WHERE id = $1`,
		id,
	))
}

func (r Repo) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	_, err := r.Pool.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`,
		userID, passwordHash,
	)
	return err
}

func (r Repo) CreateSession(ctx context.Context, s Session) error {
	_, err := r.Pool.Exec(ctx,
		`INSERT INTO sessions (id, user_id, refresh_token_hash, user_agent, ip, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, s.UserID, s.RefreshTokenHash, s.UserAgent, s.IP, s.ExpiresAt,
	)
	return err
}

func (r Repo) GetSessionByTokenHash(ctx context.Context, hash string) (Session, error) {
	var s Session
	err := r.Pool.QueryRow(ctx,
		`SELECT id, user_id, refresh_token_hash, user_agent, ip, expires_at
		 FROM sessions WHERE refresh_token_hash = $1`,
		hash,
	).Scan(&s.ID, &s.UserID, &s.RefreshTokenHash, &s.UserAgent, &s.IP, &s.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	return s, err
}

func (r Repo) RotateSessionToken(ctx context.Context, sessionID, newHash string, expiresAt time.Time) error {
	tag, err := r.Pool.Exec(ctx,
		`UPDATE sessions SET refresh_token_hash = $2, expires_at = $3 WHERE id = $1`,
		sessionID, newHash, expiresAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteSessionByTokenHash(ctx context.Context, hash string) error {
	_, err := r.Pool.Exec(ctx, `DELETE FROM sessions WHERE refresh_token_hash = $1`, hash)
	return err
}

func (r Repo) DeleteSessionsByUser(ctx context.Context, userID string) error {
	_, err := r.Pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	return err
}

func (r Repo) CreatePasswordReset(ctx context.Context, reset PasswordReset) error {
	_, err := r.Pool.Exec(ctx,
		`INSERT INTO password_resets (user_id, token, expires_at) VALUES ($1, $2, $3)`,
		reset.UserID, reset.Token, reset.ExpiresAt,
	)
	return err
}

func (r Repo) GetPasswordResetByToken(ctx context.Context, token string) (PasswordReset, error) {
	var reset PasswordReset
	err := r.Pool.QueryRow(ctx,
		`SELECT user_id, token, expires_at, used_at IS NOT NULL
		 FROM password_resets WHERE token = $1`,
		token,
	).Scan(&reset.UserID, &reset.Token, &reset.ExpiresAt, &reset.Used)
	if errors.Is(err, pgx.ErrNoRows) {
		return PasswordReset{}, ErrNotFound
	}
	return reset, err
}

func (r Repo) UsePasswordReset(ctx context.Context, token string) error {
	_, err := r.Pool.Exec(ctx, `UPDATE password_resets SET used_at = now() WHERE token = $1`, token)
	return err
}

func (r Repo) DeletePasswordResetsByUser(ctx context.Context, userID string) error {
	_, err := r.Pool.Exec(ctx, `DELETE FROM password_resets WHERE user_id = $1`, userID)
	return err
}

func (r Repo) scanUser(row pgx.Row) (UserRecord, error) {
	var u UserRecord
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return UserRecord{}, ErrNotFound
	}
	return u, err
}
