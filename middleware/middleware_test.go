package middleware_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/CorrelAid/sbv2_web/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

func get(r http.Handler, host, remote string) int {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = host
	req.RemoteAddr = remote
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestDomainWhitelistMiddleware(t *testing.T) {
	r := newRouter(middleware.DomainWhitelistMiddleware([]string{"tts.example.org"}))

	assert.Equal(t, http.StatusOK, get(r, "tts.example.org", "10.0.0.1:1234"))
	assert.Equal(t, http.StatusOK, get(r, "TTS.example.org:8080", "10.0.0.1:1234"))
	assert.Equal(t, http.StatusForbidden, get(r, "evil.example.org", "10.0.0.1:1234"))
}

func TestDomainWhitelistMiddleware_EmptyAllowsAll(t *testing.T) {
	r := newRouter(middleware.DomainWhitelistMiddleware(nil))

	assert.Equal(t, http.StatusOK, get(r, "anything", "10.0.0.1:1234"))
}

func TestRateLimitMiddleware(t *testing.T) {
	r := newRouter(middleware.RateLimitMiddleware(1))

	assert.Equal(t, http.StatusOK, get(r, "h", "10.0.0.2:1234"))
	assert.Equal(t, http.StatusTooManyRequests, get(r, "h", "10.0.0.2:1234"))
	assert.Equal(t, http.StatusOK, get(r, "h", "10.0.0.3:1234"))
}

func TestRateLimitMiddleware_Disabled(t *testing.T) {
	r := newRouter(middleware.RateLimitMiddleware(0))

	for range 5 {
		assert.Equal(t, http.StatusOK, get(r, "h", "10.0.0.4:1234"))
	}
}

func TestBodyLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.BodyLimitMiddleware(8))
	r.POST("/", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.String(http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		c.String(http.StatusOK, "ok")
	})

	post := func(body string, contentLength int64) int {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.ContentLength = contentLength
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, post("small", 5))
	assert.Equal(t, http.StatusRequestEntityTooLarge, post("far too large", 13))
	assert.Equal(t, http.StatusRequestEntityTooLarge, post("far too large", -1))
}
