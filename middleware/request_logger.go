package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MichelMeloG/JurChat/pkg/logger"
)

// RequestLogger logs incoming requests and their responses
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"status", status,
			"method", c.Request.Method,
			"path", path,
			"route", c.FullPath(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
			"bytes", c.Writer.Size(),
		}

		if query != "" {
			attrs = append(attrs, "query", query)
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		// request_id and username come from the request context, which the
		// auth middleware may have replaced during c.Next
		ctx := c.Request.Context()
		switch {
		case status >= 500:
			logger.Error(ctx, "request completed", attrs...)
		case status >= 400:
			logger.Warn(ctx, "request completed", attrs...)
		default:
			logger.Info(ctx, "request completed", attrs...)
		}
	}
}
