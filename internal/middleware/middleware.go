package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/opentodo/backend/internal/token"
)

// Context keys under which the gate stores the authenticated identity and
// the raw bearer token (logout needs the exact string it was called with).
const (
	ContextUserID      = "user_id"
	ContextEmail       = "email"
	ContextAccessToken = "access_token"
)

const bearerPrefix = "Bearer "

type TokenVerifier interface {
	Verify(tokenStr string) (*token.Claims, error)
}

type RevocationChecker interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// Auth is the gate in front of every protected route: bearer extraction,
// signature and expiry check, then a blacklist lookup. Malformed, forged,
// expired and revoked tokens all get the same 401 body so a caller cannot
// tell which check failed.
func Auth(verifier TokenVerifier, revoked RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		if !strings.HasPrefix(header, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization format, expected 'Bearer <token>'"})
			return
		}

		accessToken := header[len(bearerPrefix):]

		claims, err := verifier.Verify(accessToken)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		isRevoked, err := revoked.IsRevoked(c.Request.Context(), accessToken)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if isRevoked {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextAccessToken, accessToken)

		c.Next()
	}
}
