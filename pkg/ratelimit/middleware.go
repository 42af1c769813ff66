package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
	"wacrm/internal/config"
	"wacrm/internal/constants"
	"wacrm/pkg/errors"
	"wacrm/pkg/metrics"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type RateLimitConfig struct {
	RPS             float64
	Burst           int
	CleanupInterval time.Duration
	MaxAge          time.Duration
}

func DefaultConfig() RateLimitConfig {
	return RateLimitConfig{
		RPS:             10.0,
		Burst:           20,
		CleanupInterval: 5 * time.Minute,
		MaxAge:          10 * time.Minute,
	}
}

// FromConfig converts the api.rate_limit section, keeping defaults for
// unset values.
func FromConfig(cfg config.RateLimitConfig) RateLimitConfig {
	c := DefaultConfig()
	if cfg.RPS > 0 {
		c.RPS = cfg.RPS
	}
	if cfg.Burst > 0 {
		c.Burst = cfg.Burst
	}
	if cfg.CleanupInterval > 0 {
		c.CleanupInterval = time.Duration(cfg.CleanupInterval) * time.Second
	}
	if cfg.MaxAge > 0 {
		c.MaxAge = time.Duration(cfg.MaxAge) * time.Second
	}
	return c
}

// Store keeps one token bucket per client key.
type Store struct {
	cfg      RateLimitConfig
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	now      func() time.Time
}

func NewStore(cfg RateLimitConfig) *Store {
	return &Store{
		cfg:      cfg,
		limiters: make(map[string]*limiterEntry),
		now:      time.Now,
	}
}

// Allow takes one token from key's bucket and returns the tokens left.
func (s *Store) Allow(key string) (bool, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(s.cfg.RPS), s.cfg.Burst)}
		s.limiters[key] = entry
	}
	entry.lastSeen = s.now()

	allowed := entry.limiter.Allow()
	remaining := int(entry.limiter.Tokens())
	if remaining < 0 {
		remaining = 0
	}
	return allowed, remaining
}

// Cleanup forgets buckets idle for longer than MaxAge.
func (s *Store) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, entry := range s.limiters {
		if now.Sub(entry.lastSeen) > s.cfg.MaxAge {
			delete(s.limiters, key)
		}
	}
}

// Run calls Cleanup every CleanupInterval until ctx is done.
func (s *Store) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Cleanup()
		}
	}
}

func (s *Store) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}

// RateLimitMiddleware limits per owner when the scope header is present and
// per client IP otherwise.
func RateLimitMiddleware(store *Store) gin.HandlerFunc {
	limit := strconv.Itoa(int(store.cfg.RPS))

	return func(c *gin.Context) {
		key := c.GetHeader(constants.HeaderOwnerID)
		if key == "" {
			key = c.ClientIP()
		}
		if key == "" {
			key = c.RemoteIP()
		}

		allowed, remaining := store.Allow(key)
		c.Header("X-RateLimit-Limit", limit)

		if !allowed {
			metrics.RateLimitRequestsTotal.WithLabelValues("limited").Inc()
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errors.ErrorResponse{
				Error:     "rate limit exceeded",
				ErrorCode: "RATE_LIMIT_EXCEEDED",
			})
			return
		}

		metrics.RateLimitRequestsTotal.WithLabelValues("allowed").Inc()
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Next()
	}
}
