package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ClaimsKey is the gin context key holding parsed session claims.
const ClaimsKey = "claims"

// RequireSession enforces bearer access tokens signed with HS256; refresh
// tokens share the key but carry a different kind claim and are rejected
// here. An invalid or
// expired token answers with code "session_expired" so clients drop any
// cached credentials and return to the login entry point instead of looping.
func RequireSession(signingKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "session_expired", "error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		claims, err := Parse(tokenStr, signingKey, issuer)
		if err != nil || claims.Kind != TokenAccess {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "session_expired", "error": "invalid or expired session"})
			return
		}
		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// StudentID extracts the authenticated student id set by RequireSession.
func StudentID(c *gin.Context) string {
	claimsAny, ok := c.Get(ClaimsKey)
	if !ok {
		return ""
	}
	claims, _ := claimsAny.(Claims)
	return claims.Subject
}
