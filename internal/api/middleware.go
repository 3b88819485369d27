package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"finance-coach-backend/internal/logger"
)

const (
	// UserIDHeader carries the authenticated user's identifier, set by the
	// session layer in front of this service.
	UserIDHeader    = "X-User-ID"
	RequestIDHeader = "X-Request-ID"

	userIDKey    = "user_id"
	requestIDKey = "request_id"
)

// RequestID propagates or assigns a request ID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// RequestLogger attaches a request-scoped logger to the context and logs
// each request once it completes.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqLog := log.With().Str("request_id", c.GetString(requestIDKey)).Logger()
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), reqLog))

		c.Next()

		ev := reqLog.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			ev = reqLog.Error()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

// RequireUser rejects requests without a user identity.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(UserIDHeader))
		if id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Set(userIDKey, id)
		c.Next()
	}
}

func currentUser(c *gin.Context) string {
	if id := c.GetString(userIDKey); id != "" {
		return id
	}
	return strings.TrimSpace(c.GetHeader(UserIDHeader))
}

func requestLog(c *gin.Context) zerolog.Logger {
	return logger.FromContext(c.Request.Context())
}
