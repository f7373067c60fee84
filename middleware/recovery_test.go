package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MichelMeloG/JurChat/pkg/logger"
)

func TestRecoveryMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger.Init(&logger.Config{Level: "info", Format: "text", Output: &buf})

	router := gin.New()
	router.Use(RequestID())
	router.Use(Recovery())
	router.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})
	router.GET("/normal", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	t.Run("panic recovery", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/panic", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusInternalServerError, w.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "Internal server error", body["error"])
		assert.Equal(t, w.Header().Get(RequestIDHeader), body["request_id"])

		assert.Contains(t, buf.String(), "panic recovered")
		assert.Contains(t, buf.String(), "test panic")
		assert.Contains(t, buf.String(), "request_id="+body["request_id"])
	})

	t.Run("normal request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/normal", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}
