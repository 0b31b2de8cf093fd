package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/opentodo/backend/internal/refresh"
	"github.com/opentodo/backend/internal/token"
	"github.com/opentodo/backend/internal/user"
)

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)

type UserRepository interface {
	Save(ctx context.Context, email, passwordHash string) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

type RefreshRepository interface {
	Issue(ctx context.Context, userID uuid.UUID) (*refresh.Token, error)
	Consume(ctx context.Context, token uuid.UUID) (uuid.UUID, error)
	Delete(ctx context.Context, token, userID uuid.UUID) error
}

type RevocationStore interface {
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
	VerifyDummy(password string) bool
}

type TokenSigner interface {
	IssueAccess(userID, email string) (string, error)
	Verify(tokenStr string) (*token.Claims, error)
	Expiry(tokenStr string) (time.Time, error)
}

// Session is what register and login hand back: the created or matched user
// plus a fresh token pair.
type Session struct {
	User         *user.User
	AccessToken  string
	RefreshToken string
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type Service struct {
	log     *slog.Logger
	users   UserRepository
	refresh RefreshRepository
	revoked RevocationStore
	hasher  Hasher
	signer  TokenSigner
}

func NewService(log *slog.Logger, users UserRepository, refreshRepo RefreshRepository, revoked RevocationStore, hasher Hasher, signer TokenSigner) *Service {
	return &Service{
		log:     log,
		users:   users,
		refresh: refreshRepo,
		revoked: revoked,
		hasher:  hasher,
		signer:  signer,
	}
}

func (s *Service) Register(ctx context.Context, email, password string) (*Session, error) {
	const op = "auth.Register"

	email = NormalizeEmail(email)
	log := s.log.With(slog.String("op", op), slog.String("email", email))

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		log.Error("failed to hash password", "error", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	u, err := s.users.Save(ctx, email, passwordHash)
	if err != nil {
		if errors.Is(err, user.ErrExists) {
			log.Info("email already registered")
			return nil, ErrEmailTaken
		}
		log.Error("failed to save user", "error", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	session, err := s.newSession(ctx, u)
	if err != nil {
		log.Error("failed to issue tokens", "error", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user registered", slog.String("user_id", u.ID.String()))
	return session, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	const op = "auth.Login"

	email = NormalizeEmail(email)
	log := s.log.With(slog.String("op", op), slog.String("email", email))

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			// Burn the same bcrypt cost as a real comparison so response
			// time does not reveal whether the email exists.
			s.hasher.VerifyDummy(password)
			log.Info("login failed")
			return nil, ErrInvalidCredentials
		}
		log.Error("failed to fetch user", "error", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !s.hasher.Verify(password, u.PasswordHash) {
		log.Info("login failed")
		return nil, ErrInvalidCredentials
	}

	session, err := s.newSession(ctx, u)
	if err != nil {
		log.Error("failed to issue tokens", "error", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user logged in", slog.String("user_id", u.ID.String()))
	return session, nil
}

// Refresh trades a refresh token for a new pair. Consume removes the old
// token before anything else happens, so a replayed token fails no matter
// which of two concurrent calls got there first.
func (s *Service) Refresh(ctx context.Context, refreshToken uuid.UUID) (*TokenPair, error) {
	const op = "auth.Refresh"

	log := s.log.With(slog.String("op", op))

	userID, err := s.refresh.Consume(ctx, refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, refresh.ErrNotFound):
			log.Info("refresh token not found")
			return nil, ErrInvalidRefreshToken
		case errors.Is(err, refresh.ErrExpired):
			log.Info("refresh token expired")
			return nil, ErrRefreshTokenExpired
		default:
			log.Error("failed to consume refresh token", "error", err)
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			log.Info("refresh token owner no longer exists")
			return nil, ErrInvalidRefreshToken
		}
		log.Error("failed to fetch user", "error", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	session, err := s.newSession(ctx, u)
	if err != nil {
		log.Error("failed to issue tokens", "error", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("tokens refreshed", slog.String("user_id", u.ID.String()))
	return &TokenPair{AccessToken: session.AccessToken, RefreshToken: session.RefreshToken}, nil
}

// Logout blacklists the access token until its natural expiry and, when a
// refresh token is supplied, deletes it if it belongs to the caller. The
// access token arrives already verified by the gate, so only its exp claim
// is decoded here.
func (s *Service) Logout(ctx context.Context, accessToken string, userID uuid.UUID, refreshToken *uuid.UUID) error {
	const op = "auth.Logout"

	log := s.log.With(slog.String("op", op), slog.String("user_id", userID.String()))

	expiresAt, err := s.signer.Expiry(accessToken)
	if err != nil {
		log.Error("failed to decode token expiry", "error", err)
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.revoked.Revoke(ctx, accessToken, expiresAt); err != nil {
		log.Error("failed to blacklist access token", "error", err)
		return fmt.Errorf("%s: %w", op, err)
	}

	if refreshToken != nil {
		err := s.refresh.Delete(ctx, *refreshToken, userID)
		if err != nil && !errors.Is(err, refresh.ErrNotFound) {
			log.Error("failed to delete refresh token", "error", err)
			return fmt.Errorf("%s: %w", op, err)
		}
		// ErrNotFound covers both an unknown token and one owned by a
		// different user; neither blocks the logout itself.
	}

	log.Info("user logged out")
	return nil
}

func (s *Service) newSession(ctx context.Context, u *user.User) (*Session, error) {
	accessToken, err := s.signer.IssueAccess(u.ID.String(), u.Email)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.refresh.Issue(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	return &Session{
		User:         u,
		AccessToken:  accessToken,
		RefreshToken: refreshToken.Token.String(),
	}, nil
}
