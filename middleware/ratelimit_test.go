package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hit(r http.Handler, ip string) int {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Real-IP", ip)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimit_BurstThenReject(t *testing.T) {
	eng := gin.New()
	eng.Use(RateLimit(NewRateLimiter(0.001, 3), ByClientIP))
	eng.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit(eng, "10.0.1.1"), "request %d", i+1)
	}
	assert.Equal(t, http.StatusTooManyRequests, hit(eng, "10.0.1.1"))
	assert.Equal(t, http.StatusOK, hit(eng, "10.0.1.2"), "other clients keep their own bucket")
}

func TestRateLimit_RetryAfterHeader(t *testing.T) {
	eng := gin.New()
	eng.Use(RateLimit(NewRateLimiter(0.001, 1), ByClientIP))
	eng.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	hit(eng, "10.0.2.1")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Real-IP", "10.0.2.1")
	w := httptest.NewRecorder()
	eng.ServeHTTP(w, req)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, w.Body.String())
}

func TestRateLimit_BySessionSharesAcrossAddresses(t *testing.T) {
	eng := gin.New()
	eng.Use(func(c *gin.Context) {
		c.Set(SessionIDKey, "room-1")
		c.Next()
	})
	eng.Use(RateLimit(NewRateLimiter(0.001, 2), BySession))
	eng.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, hit(eng, "10.1.1.1"))
	assert.Equal(t, http.StatusOK, hit(eng, "10.1.1.2"))
	assert.Equal(t, http.StatusTooManyRequests, hit(eng, "10.1.1.3"))
}

func TestBySession_FallsBackToIP(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = "192.0.2.7:4000"
	assert.Equal(t, "ip:192.0.2.7", BySession(c))

	c.Set(SessionIDKey, "abc")
	assert.Equal(t, "session:abc", BySession(c))
}

func TestRateLimiter_Sweep(t *testing.T) {
	l := NewRateLimiter(1, 1)
	start := time.Now()
	l.Allow("ip:a", start)
	l.Allow("ip:b", start.Add(DefaultIdleTTL))
	require.Equal(t, 2, l.Len())

	assert.Equal(t, 1, l.Sweep(start.Add(DefaultIdleTTL+time.Second)))
	assert.Equal(t, 1, l.Len())
	assert.Equal(t, 0, l.Sweep(start.Add(DefaultIdleTTL+time.Second)))
}
