package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderRequestID = "X-Request-ID"
	ctxRequestID    = "request_id"
)

// RequestID propagates the caller's request ID or assigns a new one.
func RequestID() Handler {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Writer.Header().Set(HeaderRequestID, id)
		c.Set(ctxRequestID, id)
		c.Next()
	}
}

// AccessLog logs every request once it has been served. Unmatched paths are
// logged by their raw URL.
func AccessLog(l *slog.Logger) Handler {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		l.Debug("http_access",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"bytes", c.Writer.Size(),
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", c.ClientIP(),
			"req_id", c.GetString(ctxRequestID),
		)
	}
}

// RecoveryProblem turns a handler panic into an RFC 7807 problem response.
func RecoveryProblem(l *slog.Logger) Handler {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				id := c.GetString(ctxRequestID)
				l.Error("handler panic", "error", rec, "path", c.Request.URL.Path, "req_id", id)
				c.Header("Content-Type", "application/problem+json")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"type":     "about:blank",
					"title":    http.StatusText(http.StatusInternalServerError),
					"status":   http.StatusInternalServerError,
					"detail":   "unexpected server error",
					"instance": id,
				})
			}
		}()
		c.Next()
	}
}
