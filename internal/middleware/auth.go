package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/votehub/core/internal/models"
	"github.com/votehub/core/internal/pkg/jwt"
	"github.com/votehub/core/internal/pkg/response"
)

const (
	ContextKeyUserID = "user_id"
	ContextKeyRole   = "user_role"

	// InviteTokenHeader carries an invite token for users voting by invite.
	InviteTokenHeader = "X-Invite-Token"
)

// Auth returns a middleware that enforces JWT authentication.
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := ValidateToken(extractToken(c))
		if err != nil {
			response.Unauthorized(c)
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuth sets the user if a valid token is present, but does not block the request.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, err := ValidateToken(extractToken(c)); err == nil {
			setClaims(c, claims)
		}
		c.Next()
	}
}

// RequireAdmin must run after Auth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentRole(c) != models.RoleAdmin {
			response.Forbidden(c)
			return
		}
		c.Next()
	}
}

// ValidateToken parses a bearer token and returns its claims.
func ValidateToken(rawToken string) (*jwt.Claims, error) {
	token := NormalizeToken(rawToken)
	if token == "" {
		return nil, errors.New("token is required")
	}
	return jwt.Parse(token)
}

func setClaims(c *gin.Context, claims *jwt.Claims) {
	c.Set(ContextKeyUserID, claims.UserID)
	role := models.Role(strings.ToUpper(claims.Role))
	if role != models.RoleAdmin {
		role = models.RoleUser
	}
	c.Set(ContextKeyRole, role)
}

// CurrentUserID extracts the authenticated user ID from context (0 when anonymous).
func CurrentUserID(c *gin.Context) uint64 {
	v, _ := c.Get(ContextKeyUserID)
	id, _ := v.(uint64)
	return id
}

// CurrentUserIDPtr returns nil for anonymous callers.
func CurrentUserIDPtr(c *gin.Context) *uint64 {
	id := CurrentUserID(c)
	if id == 0 {
		return nil
	}
	return &id
}

// CurrentRole extracts the authenticated role from context.
func CurrentRole(c *gin.Context) models.Role {
	v, _ := c.Get(ContextKeyRole)
	role, _ := v.(models.Role)
	return role
}

// IsAuthenticated returns true if the request has a valid auth token.
func IsAuthenticated(c *gin.Context) bool {
	return CurrentUserID(c) != 0
}

// InviteToken returns the invite token header, if any.
func InviteToken(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(InviteTokenHeader))
}

func extractToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if auth != "" {
		return NormalizeToken(auth)
	}
	return NormalizeToken(c.Query("token"))
}

// NormalizeToken trims spaces and strips optional Bearer prefix.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if token == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
