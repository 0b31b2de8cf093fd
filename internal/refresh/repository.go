package refresh

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("refresh token not found")
	ErrExpired  = errors.New("refresh token expired")
)

type Token struct {
	Token     uuid.UUID
	UserID    uuid.UUID
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Repository persists refresh tokens in Postgres. Tokens are opaque UUIDv4
// identifiers; the row is the only proof the token was ever issued.
type Repository struct {
	db  *sql.DB
	ttl time.Duration
}

func NewRepository(db *sql.DB, ttl time.Duration) *Repository {
	return &Repository{db: db, ttl: ttl}
}

func (r *Repository) Issue(ctx context.Context, userID uuid.UUID) (*Token, error) {
	t := &Token{
		Token:     uuid.New(),
		UserID:    userID,
		ExpiresAt: time.Now().UTC().Add(r.ttl),
		CreatedAt: time.Now().UTC(),
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (token, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)`,
		t.Token, t.UserID, t.ExpiresAt, t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return t, nil
}

// Consume removes the token and returns its owner in one statement. The
// delete-and-return makes the token single-use: of two racing calls only one
// sees the row, the other gets ErrNotFound. An expired row is removed the
// same way and reported as ErrExpired.
func (r *Repository) Consume(ctx context.Context, token uuid.UUID) (uuid.UUID, error) {
	var (
		userID    uuid.UUID
		expiresAt time.Time
	)
	err := r.db.QueryRowContext(ctx, `
		DELETE FROM refresh_tokens WHERE token = $1 RETURNING user_id, expires_at`,
		token,
	).Scan(&userID, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, ErrNotFound
		}
		return uuid.Nil, err
	}

	if time.Now().After(expiresAt) {
		return uuid.Nil, ErrExpired
	}

	return userID, nil
}

// Delete removes the token only when it belongs to userID, so one caller
// cannot invalidate another user's session by guessing token strings.
func (r *Repository) Delete(ctx context.Context, token, userID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM refresh_tokens WHERE token = $1 AND user_id = $2`,
		token, userID,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}
