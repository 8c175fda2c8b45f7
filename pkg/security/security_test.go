package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiterAllowsBurstThenBlocks(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	now := time.Now()

	for i := 0; i < 3; i++ {
		assert.True(t, rl.allow("1.1.1.1", now), "request %d", i)
	}
	assert.False(t, rl.allow("1.1.1.1", now))
	// 各 IP 独立计数
	assert.True(t, rl.allow("2.2.2.2", now))
	// 令牌按窗口均匀恢复
	assert.True(t, rl.allow("1.1.1.1", now.Add(21*time.Second)))
}

func TestRateLimiterUpdateResetsVisitors(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	now := time.Now()
	assert.True(t, rl.allow("ip", now))
	assert.False(t, rl.allow("ip", now))

	rl.Update(5, time.Minute)
	assert.True(t, rl.allow("ip", now))
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(10, time.Minute)
	now := time.Now()
	rl.allow("old", now.Add(-10*time.Minute))
	rl.allow("fresh", now)

	rl.Cleanup(now)
	_, oldKept := rl.visitors["old"]
	_, freshKept := rl.visitors["fresh"]
	assert.False(t, oldKept)
	assert.True(t, freshKept)
}

func TestMiddlewareChain(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:3000"}), Secure(), NewRateLimiter(1, time.Minute).Middleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	req = httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
