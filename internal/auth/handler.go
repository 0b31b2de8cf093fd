package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/opentodo/backend/internal/middleware"
	"github.com/opentodo/backend/internal/user"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires the four auth operations plus the identity probe onto
// rg. The gate guards logout and /me; register, login and refresh are public.
func RegisterRoutes(rg *gin.RouterGroup, handler *Handler, gate gin.HandlerFunc) {
	rg.POST("/register", handler.Register)
	rg.POST("/login", handler.Login)
	rg.POST("/refresh", handler.Refresh)

	protected := rg.Group("/")
	protected.Use(gate)

	protected.POST("/logout", handler.Logout)
	protected.GET("/me", handler.Me)
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type sessionResponse struct {
	User         userResponse `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

func (h *Handler) Register(c *gin.Context) {
	var req credentialsRequest
	if !bindStrict(c, &req) {
		return
	}

	if err := ValidateEmail(req.Email); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := ValidatePassword(req.Password); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.service.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusCreated, newSessionResponse(session))
}

func (h *Handler) Login(c *gin.Context) {
	var req credentialsRequest
	if !bindStrict(c, &req) {
		return
	}

	if req.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrEmailRequired.Error()})
		return
	}
	if req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrPasswordRequired.Error()})
		return
	}

	session, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, newSessionResponse(session))
}

func (h *Handler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindStrict(c, &req) {
		return
	}

	if req.RefreshToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refreshToken is required"})
		return
	}

	refreshToken, err := uuid.Parse(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refreshToken format is invalid"})
		return
	}

	pair, err := h.service.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRefreshToken):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
		case errors.Is(err, ErrRefreshTokenExpired):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Refresh token expired"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"accessToken": pair.AccessToken, "refreshToken": pair.RefreshToken})
}

func (h *Handler) Logout(c *gin.Context) {
	userID, err := uuid.Parse(c.GetString(middleware.ContextUserID))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}
	accessToken := c.GetString(middleware.ContextAccessToken)

	// The body is optional: a bare logout only blacklists the access token.
	var refreshToken *uuid.UUID
	if c.Request.ContentLength != 0 {
		var req refreshRequest
		if !bindStrict(c, &req) {
			return
		}
		if req.RefreshToken != "" {
			parsed, err := uuid.Parse(req.RefreshToken)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "refreshToken format is invalid"})
				return
			}
			refreshToken = &parsed
		}
	}

	if err := h.service.Logout(c.Request.Context(), accessToken, userID, refreshToken); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (h *Handler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"id":    c.GetString(middleware.ContextUserID),
		"email": c.GetString(middleware.ContextEmail),
	})
}

// bindStrict enforces the closed request contract: JSON content type and no
// unknown fields. It writes the error response itself and reports whether
// the handler may continue.
func bindStrict(c *gin.Context, dst any) bool {
	if c.ContentType() != "application/json" {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "Content-Type must be application/json"})
		return false
	}

	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}

	return true
}

func newSessionResponse(session *Session) sessionResponse {
	return sessionResponse{
		User:         newUserResponse(session.User),
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
	}
}

func newUserResponse(u *user.User) userResponse {
	return userResponse{
		ID:        u.ID.String(),
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}
