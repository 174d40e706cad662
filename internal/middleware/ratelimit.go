package middleware

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"

	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/apperr"
)

type limiterEntry struct {
	limiter *rate.Limiter
	last    time.Time
}

// RateLimiter is a per-caller token bucket. Callers are keyed by user id
// when authenticated, otherwise by IP.
type RateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*limiterEntry
	limit     rate.Limit
	burst     int
	idleAfter time.Duration
	lastSweep time.Time
}

// NewRateLimiter allows perMinute requests per caller with the same burst.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	return &RateLimiter{
		visitors:  map[string]*limiterEntry{},
		limit:     rate.Every(time.Minute / time.Duration(perMinute)),
		burst:     perMinute,
		idleAfter: 10 * time.Minute,
		lastSweep: time.Now(),
	}
}

func (rl *RateLimiter) allow(key string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) > rl.idleAfter {
		for k, v := range rl.visitors {
			if now.Sub(v.last) > rl.idleAfter {
				delete(rl.visitors, k)
			}
		}
		rl.lastSweep = now
	}

	le, ok := rl.visitors[key]
	if !ok {
		le = &limiterEntry{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[key] = le
	}
	le.last = now
	return le.limiter.AllowN(now, 1)
}

func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.IP()
		if uid, _, ok := CurrentUser(c); ok {
			key = uid.String()
		}
		if !rl.allow(key, time.Now()) {
			return apperr.New(apperr.CodeRateLimited, "too many requests, slow down")
		}
		return c.Next()
	}
}
