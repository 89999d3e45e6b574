package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// requestLog tags every request with an id and logs its outcome.
func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		c.Header("X-Request-ID", id)

		start := time.Now()
		c.Next()

		s.logger.Info("request",
			"id", id,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// requireAPIKey gates mutating routes behind the configured key, accepted
// either as X-API-Key or as a bearer token. With no key configured every
// request passes.
func (s *Server) requireAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.apiKey == "" {
			return
		}
		if c.GetHeader("X-API-Key") == s.apiKey {
			return
		}
		if token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok && token == s.apiKey {
			return
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	}
}

// clientID resolves the caller identity for rate limiting. Proxied setups
// put the real client first in X-Forwarded-For.
func clientID(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
