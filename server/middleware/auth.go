package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/llmx/errors"
	"github.com/kbukum/llmx/util"
)

// ContextKeyClient is the Gin context key holding the masked caller key.
const ContextKeyClient = "client_key"

// AuthConfig configures bearer-key authentication.
type AuthConfig struct {
	// Keys are the accepted bearer tokens. An empty list disables the check.
	Keys []string
	// SkipPaths are URL path prefixes that bypass authentication.
	SkipPaths []string
}

// Auth returns a Gin middleware that accepts requests carrying one of the
// configured keys as "Authorization: Bearer <key>".
func Auth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(cfg.Keys) == 0 {
			c.Next()
			return
		}
		path := c.Request.URL.Path
		for _, skip := range cfg.SkipPaths {
			if strings.HasPrefix(path, skip) {
				c.Next()
				return
			}
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "Authorization header required")
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			unauthorized(c, "Invalid authorization header format")
			return
		}
		if !knownKey(parts[1], cfg.Keys) {
			unauthorized(c, "Invalid API key")
			return
		}

		c.Set(ContextKeyClient, util.MaskSecret(parts[1], 4))
		c.Next()
	}
}

func knownKey(token string, keys []string) bool {
	found := false
	for _, k := range keys {
		if subtle.ConstantTimeCompare([]byte(token), []byte(k)) == 1 {
			found = true
		}
	}
	return found
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, errors.New(errors.ErrCodeAuthentication, msg).ToResponse())
}
