package ratelimit

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

// maxTrackedKeys bounds the limiter map; it is reset wholesale when exceeded.
const maxTrackedKeys = 10000

// Limiter keeps one token bucket per caller.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

func New(requestsPerSecond float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		limiters: map[string]*rate.Limiter{},
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
	}
}

func (l *Limiter) limiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.limiters) > maxTrackedKeys {
		l.limiters = map[string]*rate.Limiter{}
	}
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.rate, l.burst)
		l.limiters[key] = lim
	}
	return lim
}

// Allow reports whether key may proceed now.
func (l *Limiter) Allow(key string) bool {
	return l.limiter(key).Allow()
}

// Handler limits writes by the authenticated user_id, falling back to the
// client IP. Reads pass through. It must run after the JWT middleware to see
// the user.
func (l *Limiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}
		key, _ := c.Locals("user_id").(string)
		if key == "" {
			key = c.IP()
		}
		if !l.Allow(key) {
			return fiber.NewError(fiber.StatusTooManyRequests, "rate limit exceeded")
		}
		return c.Next()
	}
}
