package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/MichelMeloG/JurChat/pkg/logger"
)

const (
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	maxRequestIDLen = 128
)

// RequestID middleware tags each request with an id, reusing a sane one sent
// by the caller
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if !validRequestID(requestID) {
			requestID = uuid.New().String()
		}

		c.Header(RequestIDHeader, requestID)
		c.Set(requestIDKey, requestID)

		ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey, requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// validRequestID accepts printable ASCII ids of bounded length so that caller
// supplied values cannot inject into headers or logs
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}

// GetRequestID gets the request ID from gin context
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
