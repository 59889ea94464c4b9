package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"gridwatch/internal/logger"
	"gridwatch/internal/models"
	"gridwatch/internal/services"
)

// AuthCookieName is the session cookie carrying the JWT
const AuthCookieName = "gridwatch_token"

const claimsContextKey = "auth_claims"

// AuthMiddleware guards routes with JWT validation
type AuthMiddleware struct {
	auth *services.AuthService
}

// NewAuthMiddleware creates the auth middleware
func NewAuthMiddleware(auth *services.AuthService) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

// tokenFromRequest extracts the JWT from the session cookie, the
// Authorization header, or the token query parameter (websocket clients
// cannot set headers).
func tokenFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie(AuthCookieName); err == nil && cookie != "" {
		return cookie
	}
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}

// RequireAuth rejects requests without a valid token
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromRequest(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		claims, err := m.auth.ValidateToken(token)
		if err != nil {
			logger.Debug().Err(err).Str("ip", c.ClientIP()).Msg("rejected invalid token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(claimsContextKey, claims)
		c.Next()
	}
}

// RequireAdmin rejects non-admin requests. Must run after RequireAuth.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := ClaimsFrom(c)
		if claims == nil || claims.Role != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// ClaimsFrom returns the validated claims set by RequireAuth, or nil
func ClaimsFrom(c *gin.Context) *services.AuthClaims {
	value, exists := c.Get(claimsContextKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*services.AuthClaims)
	if !ok {
		return nil
	}
	return claims
}
