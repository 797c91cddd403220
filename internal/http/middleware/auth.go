// README: Firebase auth middleware; resolves caller identity and role.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"lustre/internal/infra"
)

const (
	// ContextUID and ContextRole are the gin context keys set after a token
	// verifies.
	ContextUID  = "auth_uid"
	ContextRole = "auth_role"
)

// Auth verifies the Bearer token on every request and stores the caller's uid
// and role claim in the context. Requests without a valid token are rejected.
func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		token, err := verifier.VerifyIDToken(c.Request.Context(), raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		setIdentity(c, token)
		c.Next()
	}
}

// OptionalAuth verifies a token when one is presented but lets anonymous
// requests through; the guest create/lookup paths identify themselves by
// contact bundle instead.
func OptionalAuth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			c.Next()
			return
		}
		token, err := verifier.VerifyIDToken(c.Request.Context(), raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		setIdentity(c, token)
		c.Next()
	}
}

// RequireRole gates a route group on the role claim set by Auth.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextRole) != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

func setIdentity(c *gin.Context, token *infra.FirebaseToken) {
	c.Set(ContextUID, token.UID)
	role, _ := token.Claims["role"].(string)
	if role == "" {
		role = "customer"
	}
	c.Set(ContextRole, role)
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}
