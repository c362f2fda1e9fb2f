package web

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/leonardotrapani/diarscribe/internal/logger"
)

const (
	headerRequestID = "X-Request-Id"
	ctxRequestID    = "request_id"
)

// requestID injects a unique X-Request-Id header into every request/response.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(ctxRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

func recovery(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error("panic recovered", logger.Fields(
					"error", fmt.Sprintf("%v", err),
					"stack", string(debug.Stack()),
					"path", c.Request.URL.Path,
					logger.FieldRequestID, c.GetString(ctxRequestID),
				))
				c.AbortWithStatusJSON(http.StatusInternalServerError, response{Message: "internal server error"})
			}
		}()
		c.Next()
	}
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := logger.Fields(
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			logger.FieldDuration, time.Since(start).Milliseconds(),
			logger.FieldRequestID, c.GetString(ctxRequestID),
		)

		switch {
		case status >= 500:
			log.Error("request completed", fields)
		case status >= 400:
			log.Warn("request completed", fields)
		default:
			log.Debug("request completed", fields)
		}
	}
}

// bodyLimit caps request bodies at limit bytes.
func bodyLimit(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
