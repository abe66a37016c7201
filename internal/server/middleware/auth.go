// Package middleware holds the HTTP middleware for the presence server.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"presence-tracker/internal/security"
)

// StatsKeyHeader carries the shared secret for the read endpoint.
const StatsKeyHeader = "x-stats-key"

// CallerKey is the gin context key under which event auth stores the
// authenticated caller identity.
const CallerKey = "caller"

// StatsKeyAuth guards the read endpoint with a shared-secret header. The
// comparison is constant-time so the key cannot be probed byte by byte.
func StatsKeyAuth(statsKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !keyMatches(c.GetHeader(StatsKeyHeader), statsKey) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// EventAuth guards the event triggers. When a token provider is configured
// the authentication system presents a bearer service token; otherwise the
// shared stats key is accepted so small deployments need only one secret.
func EventAuth(tokens *security.TokenProvider, statsKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokens != nil {
			raw := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
			if raw != "" && raw != c.GetHeader("Authorization") {
				subject, err := tokens.Validate(raw)
				if err == nil {
					c.Set(CallerKey, subject)
					c.Next()
					return
				}
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if !keyMatches(c.GetHeader(StatsKeyHeader), statsKey) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func keyMatches(got, want string) bool {
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
