package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ClaimsKey is the gin context key holding the verified Claims.
const ClaimsKey = "claims"

// BearerAuth enforces bearer JWT tokens signed with HS256.
func BearerAuth(signingKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		claims, err := Parse(tokenStr, signingKey, issuer)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// RequireRole aborts with 403 unless BearerAuth stored claims carrying role.
func RequireRole(role, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsAny, _ := c.Get(ClaimsKey)
		claims, _ := claimsAny.(Claims)
		if claims.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": message})
			return
		}
		c.Next()
	}
}

// ClaimsFrom returns the claims stored by BearerAuth.
func ClaimsFrom(c *gin.Context) Claims {
	claimsAny, _ := c.Get(ClaimsKey)
	claims, _ := claimsAny.(Claims)
	return claims
}
