package middlewares

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

// KeyedLimiter one token bucket per caller
type KeyedLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewKeyedLimiter perSecond <= 0 disables limiting
func NewKeyedLimiter(perSecond float64, burst int) *KeyedLimiter {
	if burst < 1 {
		burst = 1
	}
	return &KeyedLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

// Allow consume one token for key
func (k *KeyedLimiter) Allow(key string) bool {
	if k == nil || k.limit <= 0 {
		return true
	}
	k.mu.Lock()
	l, ok := k.limiters[key]
	if !ok {
		l = rate.NewLimiter(k.limit, k.burst)
		k.limiters[key] = l
	}
	k.mu.Unlock()
	return l.Allow()
}

// RateLimit reject callers that exhausted their bucket, must run after JWTMiddleware
func RateLimit(k *KeyedLimiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !k.Allow(CallerIdentity(c)) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests",
			})
		}
		return c.Next()
	}
}
