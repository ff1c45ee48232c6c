package http

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	newRouter := func(rps float64, burst int) *gin.Engine {
		router := gin.New()
		router.Use(RateLimitMiddleware(rps, burst, logger))
		router.POST("/v1/webhooks/square", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"ok": true})
		})
		return router
	}

	post := func(router *gin.Engine, remoteAddr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/square", nil)
		req.RemoteAddr = remoteAddr
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)
		return recorder
	}

	t.Run("allows requests within the limit", func(t *testing.T) {
		router := newRouter(100, 10)

		for i := 0; i < 5; i++ {
			assert.Equal(t, http.StatusOK, post(router, "10.0.0.1:1234").Code)
		}
	})

	t.Run("rejects requests over the burst", func(t *testing.T) {
		router := newRouter(0.001, 1)

		assert.Equal(t, http.StatusOK, post(router, "10.0.0.2:1234").Code)

		recorder := post(router, "10.0.0.2:1234")
		assert.Equal(t, http.StatusTooManyRequests, recorder.Code)
		assert.NotEmpty(t, recorder.Header().Get("Retry-After"))
	})

	t.Run("limits are independent per source ip", func(t *testing.T) {
		router := newRouter(0.001, 1)

		assert.Equal(t, http.StatusOK, post(router, "10.0.0.3:1234").Code)
		assert.Equal(t, http.StatusTooManyRequests, post(router, "10.0.0.3:1234").Code)
		assert.Equal(t, http.StatusOK, post(router, "10.0.0.4:1234").Code)
	})
}
