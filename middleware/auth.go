package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nrebei2/lunarhaze/config"
)

const (
	SessionIDKey   = "session_id"
	AdminKeyHeader = "X-Admin-Key"
)

// bearerToken reads the token from the Authorization header, or from the
// token query parameter for clients (EventSource, WebSocket) that cannot
// set headers.
func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}

// requestedSession is the session a request targets: the :id path
// parameter, else the session query parameter.
func requestedSession(c *gin.Context) string {
	if id := c.Param("id"); id != "" {
		return id
	}
	return c.Query("session")
}

// SessionAuth validates the session JWT and rejects requests that target a
// session other than the one the token was issued for.
func SessionAuth(sec config.SecurityConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c)
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		claims, err := ParseToken(tokenStr, sec.JWTSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if want := requestedSession(c); want != "" && want != claims.SessionID {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "token is for another session"})
			return
		}
		c.Set(SessionIDKey, claims.SessionID)
		c.Next()
	}
}

// GetSessionID retrieves the authenticated session ID from the Gin context.
func GetSessionID(c *gin.Context) string {
	if v, exists := c.Get(SessionIDKey); exists {
		return v.(string)
	}
	return ""
}

// AdminAuth checks the X-Admin-Key header. With no key configured the admin
// API answers 503 so it cannot be deployed unprotected.
func AdminAuth(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				gin.H{"error": "admin endpoints disabled: set server.admin_key in config"})
			return
		}
		got := c.GetHeader(AdminKeyHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
