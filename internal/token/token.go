package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const TypeAccess = "access"

var (
	// ErrMalformed covers garbage input that is not a JWT at all.
	ErrMalformed = errors.New("malformed token")
	// ErrSignatureInvalid covers a well-formed token signed with the wrong key.
	ErrSignatureInvalid = errors.New("invalid token signature")
	// ErrExpired covers a valid token whose exp has passed.
	ErrExpired = errors.New("token expired")
)

type Claims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// Signer issues and verifies access tokens with a symmetric secret. The
// secret is injected at construction and never read from the environment.
type Signer struct {
	secret    []byte
	accessTTL time.Duration
}

func NewSigner(secret string, accessTTL time.Duration) *Signer {
	return &Signer{secret: []byte(secret), accessTTL: accessTTL}
}

func (s *Signer) IssueAccess(userID, email string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:    userID,
		Email:     email,
		TokenType: TypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	return token.SignedString(s.secret)
}

// Verify checks signature and expiry and returns the embedded identity.
// Callers that face the network should collapse the three error values into
// one generic response.
func (s *Signer) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrSignatureInvalid
		default:
			return nil, ErrMalformed
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.TokenType != TypeAccess {
		return nil, ErrMalformed
	}

	return claims, nil
}

// Expiry decodes the exp claim without checking the signature. Used on
// logout, where the gate has already verified the token and only the
// remaining lifetime is needed for the revocation record.
func (s *Signer) Expiry(tokenStr string) (time.Time, error) {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(tokenStr, &Claims{})
	if err != nil {
		return time.Time{}, ErrMalformed
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.ExpiresAt == nil {
		return time.Time{}, ErrMalformed
	}

	return claims.ExpiresAt.Time, nil
}
