package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"wacrm/internal/config"
	"wacrm/internal/constants"
)

func TestFromConfig(t *testing.T) {
	cfg := FromConfig(config.RateLimitConfig{RPS: 50, CleanupInterval: 30})
	assert.Equal(t, 50.0, cfg.RPS)
	assert.Equal(t, 20, cfg.Burst)
	assert.Equal(t, 30*time.Second, cfg.CleanupInterval)
	assert.Equal(t, 10*time.Minute, cfg.MaxAge)
}

func TestRateLimitMiddleware_PerOwner(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := NewStore(RateLimitConfig{RPS: 0.001, Burst: 2, CleanupInterval: time.Minute, MaxAge: time.Minute})

	router := gin.New()
	router.Use(RateLimitMiddleware(store))
	router.GET("/contacts", func(c *gin.Context) { c.Status(http.StatusOK) })

	call := func(owner string) int {
		req := httptest.NewRequest(http.MethodGet, "/contacts", nil)
		req.Header.Set(constants.HeaderOwnerID, owner)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, call("owner-a"))
	assert.Equal(t, http.StatusOK, call("owner-a"))
	assert.Equal(t, http.StatusTooManyRequests, call("owner-a"))
	assert.Equal(t, http.StatusOK, call("owner-b"))
}

func TestStore_Cleanup(t *testing.T) {
	now := time.Date(2025, 7, 20, 12, 0, 0, 0, time.UTC)
	store := NewStore(RateLimitConfig{RPS: 1, Burst: 1, MaxAge: time.Minute})
	store.now = func() time.Time { return now }

	store.Allow("a")
	now = now.Add(30 * time.Second)
	store.Allow("b")
	now = now.Add(45 * time.Second)

	store.Cleanup()
	assert.Equal(t, 1, store.size())
}
